package visibility

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
)

// Repository manages visibility order persistence for payment reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.VisibilityOrder, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.VisibilityOrder, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, prior enums.PaymentStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a visibility order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VisibilityOrder, error) {
	var order models.VisibilityOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindByTransactionID matches the provider transaction id kept in meta. The
// key carries no unique constraint, so a transaction id recorded on more
// than one row is ambiguous and resolves to nothing rather than an
// arbitrary row.
func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.VisibilityOrder, error) {
	var rows []models.VisibilityOrder
	err := r.db.WithContext(ctx).
		Where("meta->>'payment_transaction_id' = ?", transactionID).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdatePayment applies the transition patch only while the row still carries
// the payment status the patch was planned against.
func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, prior enums.PaymentStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VisibilityOrder{}).
		Where("id = ? AND payment_status = ?", id, prior).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
