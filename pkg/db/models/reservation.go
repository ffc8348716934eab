package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

// Reservation is a booking on an establishment slot. Amount columns are
// written at creation time by checkout and never patched from webhook data;
// the commission columns are filled exactly once when the deposit settles.
type Reservation struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingReference string                  `gorm:"column:booking_reference;not null;uniqueIndex:ux_reservations_booking_reference"`
	EstablishmentID  uuid.UUID               `gorm:"column:establishment_id;type:uuid;not null"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	SlotID           *uuid.UUID              `gorm:"column:slot_id;type:uuid"`
	PartySize        int                     `gorm:"column:party_size;not null;default:1"`
	Status           enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'requested'"`
	PaymentStatus    enums.PaymentStatus     `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	AmountDeposit    int64                   `gorm:"column:amount_deposit;not null;default:0"`
	AmountTotal      int64                   `gorm:"column:amount_total;not null;default:0"`
	Currency         string                  `gorm:"column:currency;not null;default:'EUR'"`

	CommissionPercent *decimal.Decimal `gorm:"column:commission_percent;type:numeric(5,2)"`
	CommissionAmount  *int64           `gorm:"column:commission_amount"`

	Meta        types.Meta `gorm:"column:meta;type:jsonb;not null;default:'{}'"`
	CheckedInAt *time.Time `gorm:"column:checked_in_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
