package payments

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/planera-app/planera-backend/internal/finance"
	"github.com/planera-app/planera-backend/pkg/logger"
)

// sideEffects runs the financial follow-ups of a committed transition.
// Escrow and invoicing are awaited so their failures can be reported back to
// the provider, but they never fail the delivery: the transition is already
// durable and both services are idempotent, so a replay or an operator can
// settle the difference later.
type sideEffects struct {
	escrow   finance.EscrowService
	invoices finance.InvoiceService
	logg     *logger.Logger
}

// run executes whatever the plan calls for and returns a warning naming what
// failed, or "" when everything landed.
func (fx *sideEffects) run(ctx context.Context, entity *Entity, plan transitionPlan, event *WebhookEvent, now time.Time) string {
	if entity == nil {
		return ""
	}

	input := finance.EscrowInput{
		EntityKind:      entity.Kind,
		EntityID:        entity.ID(),
		EstablishmentID: entity.EstablishmentID(),
		Actor:           "webhook:" + event.Provider,
		AmountCents:     entity.SettledAmountCents(),
		Currency:        firstNonEmpty(event.Currency, entity.Currency()),
		PaymentEventID:  event.EventID,
	}

	var errs error
	switch {
	case plan.becamePaid():
		if err := fx.escrow.EnsureHold(ctx, input); err != nil {
			fx.logg.Error(ctx, "escrow hold failed", err)
			errs = multierr.Append(errs, err)
		}
		issuedAt := now
		if event.PaidAt != nil {
			issuedAt = *event.PaidAt
		}
		invoice := finance.InvoiceInput{
			EntityKind:      entity.Kind,
			EntityID:        entity.ID(),
			EstablishmentID: entity.EstablishmentID(),
			AmountCents:     input.AmountCents,
			Currency:        input.Currency,
			PaymentEventID:  firstNonEmpty(event.EventID, event.TransactionID),
		}
		if err := fx.invoices.EnsureInvoice(ctx, invoice, issuedAt); err != nil {
			fx.logg.Error(ctx, "invoice issuance failed", err)
			errs = multierr.Append(errs, err)
		}
	case plan.becameRefunded():
		if err := fx.escrow.Settle(ctx, input, "provider_refund"); err != nil {
			fx.logg.Error(ctx, "escrow settlement failed", err)
			errs = multierr.Append(errs, err)
		}
	}

	if errs == nil {
		return ""
	}
	return "post-commit side effects failed: " + errs.Error()
}
