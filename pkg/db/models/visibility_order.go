package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

// VisibilityOrder is a paid promotion campaign order for an establishment.
type VisibilityOrder struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID                   `gorm:"column:establishment_id;type:uuid;not null"`
	CreatedByUserID uuid.UUID                   `gorm:"column:created_by_user_id;type:uuid;not null"`
	SubtotalCents   int64                       `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents        int64                       `gorm:"column:tax_cents;not null;default:0"`
	TotalCents      int64                       `gorm:"column:total_cents;not null;default:0"`
	Currency        string                      `gorm:"column:currency;not null;default:'EUR'"`
	Status          enums.VisibilityOrderStatus `gorm:"column:status;type:visibility_order_status;not null;default:'draft'"`
	PaymentStatus   enums.PaymentStatus         `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaidAt          *time.Time                  `gorm:"column:paid_at"`
	Meta            types.Meta                  `gorm:"column:meta;type:jsonb;not null;default:'{}'"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
