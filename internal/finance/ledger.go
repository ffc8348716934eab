package finance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
)

// LedgerRepository manages persistence for ledger events.
type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository
	Create(ctx context.Context, event *models.LedgerEvent) error
	HasEvent(ctx context.Context, kind enums.EntityKind, entityID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListByEntity(ctx context.Context, kind enums.EntityKind, entityID uuid.UUID) ([]models.LedgerEvent, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository returns a ledger repository bound to the provided database.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	if tx == nil {
		return r
	}
	return &ledgerRepository{db: tx}
}

func (r *ledgerRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *ledgerRepository) HasEvent(ctx context.Context, kind enums.EntityKind, entityID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("entity_kind = ? AND entity_id = ? AND type = ?", kind, entityID, eventType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ledgerRepository) ListByEntity(ctx context.Context, kind enums.EntityKind, entityID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	if err := r.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", kind, entityID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
