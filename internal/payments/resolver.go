package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/internal/packs"
	"github.com/planera-app/planera-backend/internal/reservations"
	"github.com/planera-app/planera-backend/internal/visibility"
	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
)

// resolver locates the entity a normalized event targets. It holds
// repositories already bound to the caller's transaction.
type resolver struct {
	reservations reservations.Repository
	packs        packs.Repository
	visibility   visibility.Repository
}

// Resolve classifies the event's target kind and finds the row. Pack and
// visibility references win over reservation references when an event could
// name both. Unclassified references are probed in the same precedence
// order.
func (r resolver) Resolve(ctx context.Context, event *WebhookEvent) (*Entity, error) {
	if !event.HasTargetReference() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payments: event names no target entity").
			WithLabel(LabelMissingReference)
	}

	kindHint, _ := entityKindFromKind(event.Kind)

	switch {
	case event.PackPurchaseID != "" || kindHint == enums.EntityKindPackPurchase:
		purchase, err := r.lookupPack(ctx, firstNonEmpty(event.PackPurchaseID, event.Reference), event.TransactionID)
		if err != nil {
			return nil, wrapResolveErr(enums.EntityKindPackPurchase, err)
		}
		if purchase == nil {
			return nil, notFound(enums.EntityKindPackPurchase)
		}
		return &Entity{Kind: enums.EntityKindPackPurchase, PackPurchase: purchase}, nil

	case event.VisibilityOrderID != "" || kindHint == enums.EntityKindVisibilityOrder:
		order, err := r.lookupVisibility(ctx, firstNonEmpty(event.VisibilityOrderID, event.Reference), event.TransactionID)
		if err != nil {
			return nil, wrapResolveErr(enums.EntityKindVisibilityOrder, err)
		}
		if order == nil {
			return nil, notFound(enums.EntityKindVisibilityOrder)
		}
		return &Entity{Kind: enums.EntityKindVisibilityOrder, VisibilityOrder: order}, nil

	case event.ReservationID != "" || event.BookingReference != "" || kindHint == enums.EntityKindReservation:
		reservation, err := r.lookupReservation(ctx,
			firstNonEmpty(event.ReservationID, event.BookingReference, event.Reference), event.TransactionID)
		if err != nil {
			return nil, wrapResolveErr(enums.EntityKindReservation, err)
		}
		if reservation == nil {
			return nil, notFound(enums.EntityKindReservation)
		}
		return &Entity{Kind: enums.EntityKindReservation, Reservation: reservation}, nil
	}

	return r.probe(ctx, event)
}

// probe tries every kind for an event whose reference carries no
// classification hint. A miss everywhere reports the reservation label,
// the family bare references overwhelmingly belong to.
func (r resolver) probe(ctx context.Context, event *WebhookEvent) (*Entity, error) {
	purchase, err := r.lookupPack(ctx, event.Reference, event.TransactionID)
	if err != nil {
		return nil, wrapResolveErr(enums.EntityKindPackPurchase, err)
	}
	if purchase != nil {
		return &Entity{Kind: enums.EntityKindPackPurchase, PackPurchase: purchase}, nil
	}

	order, err := r.lookupVisibility(ctx, event.Reference, event.TransactionID)
	if err != nil {
		return nil, wrapResolveErr(enums.EntityKindVisibilityOrder, err)
	}
	if order != nil {
		return &Entity{Kind: enums.EntityKindVisibilityOrder, VisibilityOrder: order}, nil
	}

	reservation, err := r.lookupReservation(ctx, event.Reference, event.TransactionID)
	if err != nil {
		return nil, wrapResolveErr(enums.EntityKindReservation, err)
	}
	if reservation != nil {
		return &Entity{Kind: enums.EntityKindReservation, Reservation: reservation}, nil
	}
	return nil, notFound(enums.EntityKindReservation)
}

// Lookup order per kind: primary id when the reference parses as a UUID,
// then the public alias, then a previously recorded transaction id.

func (r resolver) lookupReservation(ctx context.Context, ref, transactionID string) (*models.Reservation, error) {
	if ref != "" {
		if id, err := uuid.Parse(ref); err == nil {
			row, err := r.reservations.FindByID(ctx, id)
			if err != nil || row != nil {
				return row, err
			}
		}
		row, err := r.reservations.FindByBookingReference(ctx, ref)
		if err != nil || row != nil {
			return row, err
		}
	}
	return firstByTransactionID(ctx, ref, transactionID, r.reservations.FindByTransactionID)
}

func (r resolver) lookupPack(ctx context.Context, ref, transactionID string) (*models.PackPurchase, error) {
	if ref != "" {
		if id, err := uuid.Parse(ref); err == nil {
			row, err := r.packs.FindByID(ctx, id)
			if err != nil || row != nil {
				return row, err
			}
		}
		row, err := r.packs.FindByPurchaseReference(ctx, ref)
		if err != nil || row != nil {
			return row, err
		}
	}
	return firstByTransactionID(ctx, ref, transactionID, r.packs.FindByTransactionID)
}

func (r resolver) lookupVisibility(ctx context.Context, ref, transactionID string) (*models.VisibilityOrder, error) {
	if ref != "" {
		if id, err := uuid.Parse(ref); err == nil {
			row, err := r.visibility.FindByID(ctx, id)
			if err != nil || row != nil {
				return row, err
			}
		}
	}
	return firstByTransactionID(ctx, ref, transactionID, r.visibility.FindByTransactionID)
}

// firstByTransactionID checks the explicit transaction id first, then falls
// back to the bare reference: a provider that lost our order id sometimes
// reports only the transaction id it minted, in the reference position.
func firstByTransactionID[T any](ctx context.Context, ref, transactionID string, find func(context.Context, string) (*T, error)) (*T, error) {
	if transactionID != "" {
		row, err := find(ctx, transactionID)
		if err != nil || row != nil {
			return row, err
		}
	}
	if ref != "" && ref != transactionID {
		row, err := find(ctx, ref)
		if err != nil || row != nil {
			return row, err
		}
	}
	return nil, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func notFound(kind enums.EntityKind) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "payments: "+string(kind)+" not found").
		WithLabel(string(kind) + "_not_found")
}

func wrapResolveErr(kind enums.EntityKind, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payments: resolving "+string(kind))
}
