package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

// PackPurchase is a bundled-offer purchase. Its public alias, when one was
// issued at checkout, lives in meta under purchase_reference.
type PackPurchase struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID                `gorm:"column:establishment_id;type:uuid;not null"`
	UserID          uuid.UUID                `gorm:"column:user_id;type:uuid;not null"`
	PackID          uuid.UUID                `gorm:"column:pack_id;type:uuid;not null"`
	Quantity        int                      `gorm:"column:quantity;not null;default:1"`
	UnitPriceCents  int64                    `gorm:"column:unit_price_cents;not null;default:0"`
	TotalPriceCents int64                    `gorm:"column:total_price_cents;not null;default:0"`
	Currency        string                   `gorm:"column:currency;not null;default:'EUR'"`
	Status          enums.PackPurchaseStatus `gorm:"column:status;type:pack_purchase_status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus      `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Meta            types.Meta               `gorm:"column:meta;type:jsonb;not null;default:'{}'"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
