package payments

import (
	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

// Entity is the resolved target of a payment event: exactly one of the three
// variants is set, tagged by Kind. Accessors fold the per-variant fields the
// reconciliation flow needs so the transition logic stays branch-free.
type Entity struct {
	Kind            enums.EntityKind
	Reservation     *models.Reservation
	PackPurchase    *models.PackPurchase
	VisibilityOrder *models.VisibilityOrder
}

func (e *Entity) ID() uuid.UUID {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.ID
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.ID
	default:
		return e.Reservation.ID
	}
}

func (e *Entity) EstablishmentID() uuid.UUID {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.EstablishmentID
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.EstablishmentID
	default:
		return e.Reservation.EstablishmentID
	}
}

func (e *Entity) UserID() uuid.UUID {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.UserID
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.CreatedByUserID
	default:
		return e.Reservation.UserID
	}
}

func (e *Entity) PaymentStatus() enums.PaymentStatus {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.PaymentStatus
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.PaymentStatus
	default:
		return e.Reservation.PaymentStatus
	}
}

func (e *Entity) Meta() types.Meta {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.Meta
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.Meta
	default:
		return e.Reservation.Meta
	}
}

func (e *Entity) Currency() string {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.Currency
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.Currency
	default:
		return e.Reservation.Currency
	}
}

// SettledAmountCents is the creation-time amount the entity was sold for,
// which is also what escrow and invoicing operate on. Webhook-claimed
// amounts never replace it.
func (e *Entity) SettledAmountCents() int64 {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		return e.PackPurchase.TotalPriceCents
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.TotalCents
	default:
		return e.Reservation.AmountDeposit
	}
}

// PublicRef is the human-facing reference used in audit rows and logs.
func (e *Entity) PublicRef() string {
	switch e.Kind {
	case enums.EntityKindPackPurchase:
		if ref := e.PackPurchase.Meta.PurchaseReference(); ref != "" {
			return ref
		}
		return e.PackPurchase.ID.String()
	case enums.EntityKindVisibilityOrder:
		return e.VisibilityOrder.ID.String()
	default:
		return e.Reservation.BookingReference
	}
}
