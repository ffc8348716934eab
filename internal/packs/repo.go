package packs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
)

// Repository manages pack purchase persistence for payment reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.PackPurchase, error)
	FindByPurchaseReference(ctx context.Context, reference string) (*models.PackPurchase, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PackPurchase, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, prior enums.PaymentStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pack purchase repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PackPurchase, error) {
	var purchase models.PackPurchase
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&purchase).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// FindByPurchaseReference matches the public alias issued at checkout, kept
// in meta under purchase_reference. Neither meta key carries a unique
// constraint, so a value recorded on more than one row is ambiguous and
// resolves to nothing rather than an arbitrary row.
func (r *repository) FindByPurchaseReference(ctx context.Context, reference string) (*models.PackPurchase, error) {
	return r.findOneByMeta(ctx, "purchase_reference", reference)
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.PackPurchase, error) {
	return r.findOneByMeta(ctx, "payment_transaction_id", transactionID)
}

func (r *repository) findOneByMeta(ctx context.Context, key, value string) (*models.PackPurchase, error) {
	var rows []models.PackPurchase
	err := r.db.WithContext(ctx).
		Where("meta->>'"+key+"' = ?", value).
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
		Model(&models.PackPurchase{}).
		Where("id = ? AND payment_status = ?", id, prior).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
