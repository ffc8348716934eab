package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
)

// Invoice is the issuance record for a settled payment. The idempotency key
// is unique so re-processing a webhook can never issue a second invoice for
// the same settlement.
type Invoice struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number          string           `gorm:"column:number;not null;uniqueIndex:ux_invoices_number"`
	EntityKind      enums.EntityKind `gorm:"column:entity_kind;type:entity_kind;not null"`
	EntityID        uuid.UUID        `gorm:"column:entity_id;type:uuid;not null"`
	EstablishmentID uuid.UUID        `gorm:"column:establishment_id;type:uuid;not null"`
	IdempotencyKey  string           `gorm:"column:idempotency_key;not null;uniqueIndex:ux_invoices_idempotency_key"`
	AmountCents     int64            `gorm:"column:amount_cents;not null"`
	Currency        string           `gorm:"column:currency;not null;default:'EUR'"`
	IssuedAt        time.Time        `gorm:"column:issued_at;not null"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
}
