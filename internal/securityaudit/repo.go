package securityaudit

import (
	"context"

	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
)

// Repository persists security audit rows. There is no WithTx: audit rows
// ride the root connection so a rolled-back webhook transaction cannot take
// the evidence with it.
type Repository interface {
	Insert(ctx context.Context, row *models.SecurityAuditLog) error
	ListRecent(ctx context.Context, category enums.SecurityAuditCategory, limit int) ([]models.SecurityAuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a security audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, row *models.SecurityAuditLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListRecent(ctx context.Context, category enums.SecurityAuditCategory, limit int) ([]models.SecurityAuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.SecurityAuditLog
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
