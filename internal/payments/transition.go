package payments

import (
	"strings"
	"time"

	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

// statusRank orders payment statuses along the only legal direction of
// travel: pending, then paid, then refunded. Events asking for a lower rank
// than the entity already reached are stale replays, acknowledged without
// mutation so a delayed paid notification can never undo a refund.
func statusRank(status enums.PaymentStatus) int {
	switch status {
	case enums.PaymentStatusPaid:
		return 1
	case enums.PaymentStatusRefunded:
		return 2
	default:
		return 0
	}
}

// transitionPlan is the patch one event applies to one entity.
type transitionPlan struct {
	prior enums.PaymentStatus
	next  enums.PaymentStatus

	// stale marks an event that ranks below the entity's current status.
	stale bool

	meta    types.Meta
	updates map[string]any
}

// becamePaid reports whether this plan moves the entity into paid for the
// first time, which is what triggers commission, escrow and invoicing.
func (p transitionPlan) becamePaid() bool {
	return !p.stale && p.next == enums.PaymentStatusPaid && p.prior != enums.PaymentStatusPaid
}

func (p transitionPlan) becameRefunded() bool {
	return !p.stale && p.next == enums.PaymentStatusRefunded && p.prior != enums.PaymentStatusRefunded
}

// planTransition computes the patch for the resolved entity. Amount columns
// are never part of the patch; only payment_status, lifecycle status,
// currency casing and meta move.
func planTransition(entity *Entity, event *WebhookEvent, now time.Time) (transitionPlan, error) {
	next, ok := event.ResolvedStatus()
	if !ok {
		return transitionPlan{}, badPayload("event carries neither a payment_status nor a mappable kind")
	}
	prior := entity.PaymentStatus()

	if statusRank(next) < statusRank(prior) {
		return transitionPlan{prior: prior, next: next, stale: true}, nil
	}

	meta := entity.Meta()
	meta.AppendPaymentEventID(event.EventID)
	if event.TransactionID != "" {
		meta.RecordPaymentTransactionID(event.TransactionID)
	}
	meta.AppendPaymentAudit(types.PaymentAuditEntry{
		At:            now,
		Action:        string(entity.Kind) + "_payment_" + string(next),
		From:          string(prior),
		To:            string(next),
		EventID:       event.EventID,
		TransactionID: event.TransactionID,
	})

	currency := event.Currency
	if currency == "" {
		currency = entity.Currency()
	}

	updates := map[string]any{
		"payment_status": next,
		"currency":       strings.ToUpper(currency),
		"meta":           meta,
	}

	if next == enums.PaymentStatusRefunded {
		switch entity.Kind {
		case enums.EntityKindPackPurchase:
			updates["status"] = enums.PackPurchaseStatusRefunded
		case enums.EntityKindVisibilityOrder:
			updates["status"] = enums.VisibilityOrderStatusRefunded
		default:
			updates["status"] = enums.ReservationStatusRefunded
		}
	}

	if entity.Kind == enums.EntityKindVisibilityOrder &&
		next == enums.PaymentStatusPaid &&
		entity.VisibilityOrder.PaidAt == nil {
		paidAt := now
		if event.PaidAt != nil {
			paidAt = *event.PaidAt
		}
		updates["paid_at"] = paidAt
	}

	return transitionPlan{
		prior:   prior,
		next:    next,
		meta:    meta,
		updates: updates,
	}, nil
}
