package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

// LedgerEvent records an immutable money lifecycle event tied to a commerce
// entity. Escrow holds and releases are modelled as ledger events; the
// ledger itself never mutates entity state.
type LedgerEvent struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntityKind      enums.EntityKind      `gorm:"column:entity_kind;type:entity_kind;not null"`
	EntityID        uuid.UUID             `gorm:"column:entity_id;type:uuid;not null"`
	EstablishmentID uuid.UUID             `gorm:"column:establishment_id;type:uuid;not null"`
	Actor           string                `gorm:"column:actor;not null"`
	Type            enums.LedgerEventType `gorm:"column:type;type:ledger_event_type;not null"`
	AmountCents     int64                 `gorm:"column:amount_cents;not null"`
	Currency        string                `gorm:"column:currency;not null;default:'EUR'"`
	Metadata        *types.JSONMap        `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
