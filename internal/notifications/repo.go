package notifications

import (
	"context"

	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
)

// Repository persists notification rows for the in-app feed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx returns a repository view bound to the transaction. A nil tx
// keeps the root connection, so callers can pass through whatever
// handle they were given.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}
