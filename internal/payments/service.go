package payments

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/internal/finance"
	"github.com/planera-app/planera-backend/internal/packs"
	"github.com/planera-app/planera-backend/internal/reservations"
	"github.com/planera-app/planera-backend/internal/securityaudit"
	"github.com/planera-app/planera-backend/internal/visibility"
	"github.com/planera-app/planera-backend/pkg/enums"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/outbox"
	"github.com/planera-app/planera-backend/pkg/outbox/payloads"
	"github.com/planera-app/planera-backend/pkg/types"
)

// Config tunes reconciliation policy. AmountToleranceCents widens the band
// accepted around a reservation's recorded deposit. OverpaymentCeilingCents
// rejects claims exceeding the deposit by more than the ceiling; zero
// disables it. DedupTTL bounds the fast-path replay cache.
type Config struct {
	AmountToleranceCents    int64
	OverpaymentCeilingCents int64
	DedupTTL                time.Duration
}

// Receipt summarizes what one delivery did to its target entity.
type Receipt struct {
	Kind     enums.EntityKind
	EntityID uuid.UUID
	Status   enums.PaymentStatus

	// Deduped marks a replay acknowledged without touching the entity.
	Deduped bool

	// Warning names a side effect that failed after the transition
	// committed. The entity state is durable; only escrow or invoicing is
	// behind, and the provider retry will land on their idempotency guards.
	Warning string
}

// Service reconciles normalized provider events against the entity they
// target: payment status, lifecycle status, meta audit trail, commission
// snapshot, escrow, invoicing and outbound notifications.
type Service interface {
	Process(ctx context.Context, event *WebhookEvent, remoteAddr string) (Receipt, error)
}

// txRunner is the slice of db.Client the service uses.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// emitter is the slice of outbox.Service the service uses.
type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// replayCache is the slice of redis.Client backing the fast-path replay
// check. Cache errors are advisory; the durable check is the event id list
// in the entity's meta document.
type replayCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookDedupKey(scope, eventID string) string
}

// Deps wires the reconciliation service. Cache is optional; everything else
// is required.
type Deps struct {
	DB           txRunner
	Reservations reservations.Repository
	Packs        packs.Repository
	Visibility   visibility.Repository
	Outbox       emitter
	Commissions  finance.CommissionService
	Escrow       finance.EscrowService
	Invoices     finance.InvoiceService
	Audit        *securityaudit.Recorder
	Cache        replayCache
	Config       Config
	Logger       *logger.Logger
}

type service struct {
	db           txRunner
	reservations reservations.Repository
	packs        packs.Repository
	visibility   visibility.Repository
	outbox       emitter
	commissions  finance.CommissionService
	sideFx       *sideEffects
	audit        *securityaudit.Recorder
	cache        replayCache
	cfg          Config
	logg         *logger.Logger
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: db client is required")
	case deps.Reservations == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: reservations repository is required")
	case deps.Packs == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: packs repository is required")
	case deps.Visibility == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: visibility repository is required")
	case deps.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: outbox emitter is required")
	case deps.Commissions == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: commission service is required")
	case deps.Escrow == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: escrow service is required")
	case deps.Invoices == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: invoice service is required")
	case deps.Audit == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: security audit recorder is required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: logger is required")
	}
	return &service{
		db:           deps.DB,
		reservations: deps.Reservations,
		packs:        deps.Packs,
		visibility:   deps.Visibility,
		outbox:       deps.Outbox,
		commissions:  deps.Commissions,
		sideFx:       &sideEffects{escrow: deps.Escrow, invoices: deps.Invoices, logg: deps.Logger},
		audit:        deps.Audit,
		cache:        deps.Cache,
		cfg:          deps.Config,
		logg:         deps.Logger,
	}, nil
}

// Process applies one normalized event. The resolve, dedup, amount guard,
// transition and outbox writes share a transaction; escrow and invoicing run
// after commit and surface failures through Receipt.Warning instead of
// failing the delivery. Rejected amounts leave a security audit row behind
// on the root connection so the rollback cannot erase the evidence.
func (s *service) Process(ctx context.Context, event *WebhookEvent, remoteAddr string) (Receipt, error) {
	if event == nil {
		return Receipt{}, badPayload("nil event")
	}
	now := time.Now().UTC()
	ctx = s.eventCtx(ctx, event)

	if receipt, hit := s.cachedReplay(ctx, event); hit {
		return receipt, nil
	}

	var (
		receipt   Receipt
		entity    *Entity
		plan      transitionPlan
		rejection *securityaudit.AmountMismatch

		// durable becomes true only when the event id is recorded in the
		// entity's meta: either this delivery applied, or a prior one did.
		// The replay cache is a shadow of that ledger, so stale and
		// concurrently superseded deliveries never leave a mark behind.
		durable bool
	)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := resolver{
			reservations: s.reservations.WithTx(tx),
			packs:        s.packs.WithTx(tx),
			visibility:   s.visibility.WithTx(tx),
		}

		var err error
		entity, err = res.Resolve(ctx, event)
		if err != nil {
			return err
		}
		ctx := s.logg.WithEntity(ctx, string(entity.Kind), entity.ID().String())
		receipt = Receipt{Kind: entity.Kind, EntityID: entity.ID(), Status: entity.PaymentStatus()}

		if event.EventID != "" && entity.Meta().HasPaymentEventID(event.EventID) {
			receipt.Deduped = true
			durable = true
			s.logg.Info(ctx, "replayed event acknowledged")
			return nil
		}

		if err := s.guardAmount(ctx, entity, event, remoteAddr, &rejection); err != nil {
			return err
		}

		plan, err = planTransition(entity, event, now)
		if err != nil {
			return err
		}
		if plan.stale {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"current_status": string(plan.prior),
				"event_status":   string(plan.next),
			}), "stale event ignored")
			plan = transitionPlan{}
			return nil
		}

		// The confirmation policy runs before the payment columns move so a
		// blocked confirmation lands in the same meta write.
		confirm := s.planConfirmation(ctx, res, entity, event, &plan, now)
		s.snapshotCommission(ctx, tx, entity, &plan)

		applied, err := applyPlan(ctx, res, entity, plan)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payments: persisting transition").
				WithLabel(LabelInternalError)
		}
		if !applied {
			// The patch is conditional on the status the plan was computed
			// against; zero rows means a concurrent delivery moved the row.
			receipt.Deduped = true
			s.logg.Info(ctx, "concurrent delivery already applied, acknowledging")
			return nil
		}
		receipt.Status = plan.next
		durable = true

		confirmed := false
		if confirm {
			confirmed, err = res.reservations.Confirm(ctx, entity.Reservation.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payments: confirming reservation").
					WithLabel(LabelInternalError)
			}
		}

		if plan.becamePaid() || plan.becameRefunded() {
			if err := s.emitDomainEvents(ctx, tx, entity, plan, event, confirmed, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payments: queueing outbox events").
					WithLabel(LabelInternalError)
			}
		}
		return nil
	})

	if rejection != nil {
		s.audit.AmountMismatchRejected(ctx, *rejection)
	}
	if err != nil {
		return Receipt{}, err
	}
	if durable {
		s.markReplayed(ctx, event)
	}
	if receipt.Deduped {
		return receipt, nil
	}

	if warn := s.sideFx.run(ctx, entity, plan, event, now); warn != "" {
		receipt.Warning = warn
	}
	return receipt, nil
}

// cachedReplay consults the fast-path cache. Misses and cache failures both
// fall through to the transactional path.
func (s *service) cachedReplay(ctx context.Context, event *WebhookEvent) (Receipt, bool) {
	if s.cache == nil || event.EventID == "" {
		return Receipt{}, false
	}
	key := s.cache.WebhookDedupKey(event.Provider, event.EventID)
	if seen, err := s.cache.Get(ctx, key); err == nil && seen != "" {
		s.logg.Info(ctx, "replayed event acknowledged from cache")
		return Receipt{Deduped: true}, true
	}
	return Receipt{}, false
}

func (s *service) markReplayed(ctx context.Context, event *WebhookEvent) {
	if s.cache == nil || event.EventID == "" {
		return
	}
	key := s.cache.WebhookDedupKey(event.Provider, event.EventID)
	if _, err := s.cache.SetNX(ctx, key, "1", s.cfg.DedupTTL); err != nil {
		s.logg.Warn(ctx, "replay cache write failed")
	}
}

// guardAmount rejects reservation settlements whose claimed amount falls
// short of the recorded deposit, beyond tolerance. Refunds, amount-less
// events and the other entity kinds pass through; overpayments inside the
// ceiling are accepted with a warning.
func (s *service) guardAmount(ctx context.Context, entity *Entity, event *WebhookEvent, remoteAddr string, rejection **securityaudit.AmountMismatch) error {
	if entity.Kind != enums.EntityKindReservation || event.AmountTotalCents == nil {
		return nil
	}
	if next, ok := event.ResolvedStatus(); !ok || next != enums.PaymentStatusPaid {
		return nil
	}

	expected := entity.Reservation.AmountDeposit
	received := *event.AmountTotalCents
	details := map[string]int64{"expected": expected, "received": received}

	reject := func(detail string) error {
		*rejection = &securityaudit.AmountMismatch{
			RemoteAddr:    remoteAddr,
			EntityKind:    entity.Kind,
			EntityRef:     entity.PublicRef(),
			ExpectedCents: expected,
			ReceivedCents: received,
			Detail:        detail,
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "payments: "+detail).
			WithLabel(LabelAmountMismatch).
			WithDetails(details)
	}

	switch {
	case received < expected-s.cfg.AmountToleranceCents:
		return reject("claimed amount below recorded deposit")
	case s.cfg.OverpaymentCeilingCents > 0 && received > expected+s.cfg.OverpaymentCeilingCents:
		return reject("claimed amount above overpayment ceiling")
	case received > expected+s.cfg.AmountToleranceCents:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"expected_cents": expected,
			"received_cents": received,
		}), "overpayment accepted")
	}
	return nil
}

// planConfirmation decides whether this settlement should also confirm the
// booking. Blocked confirmations are recorded in the plan's audit trail; a
// failing policy check only skips confirmation, never the payment itself.
func (s *service) planConfirmation(ctx context.Context, res resolver, entity *Entity, event *WebhookEvent, plan *transitionPlan, now time.Time) bool {
	if entity.Kind != enums.EntityKindReservation || !plan.becamePaid() {
		return false
	}
	if !reservations.EligibleForAutoConfirmation(entity.Reservation) {
		return false
	}
	reason, err := reservations.EvaluateConfirmation(ctx, res.reservations, entity.Reservation)
	if err != nil {
		s.logg.Error(ctx, "confirmation policy check failed", err)
		return false
	}
	if reason != "" {
		plan.meta.AppendPaymentAudit(types.PaymentAuditEntry{
			At:      now,
			Action:  "confirmation_blocked",
			EventID: event.EventID,
			Reason:  reason,
		})
		plan.updates["meta"] = plan.meta
		s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "auto confirmation blocked")
		return false
	}
	return true
}

// snapshotCommission freezes the establishment's commission terms onto the
// reservation the first time it is paid. An existing snapshot is never
// recomputed, and a failed lookup only logs; settlement proceeds.
func (s *service) snapshotCommission(ctx context.Context, tx *gorm.DB, entity *Entity, plan *transitionPlan) {
	if entity.Kind != enums.EntityKindReservation || !plan.becamePaid() {
		return
	}
	if entity.Reservation.CommissionPercent != nil {
		return
	}
	snap, err := s.commissions.Snapshot(ctx, tx, entity.EstablishmentID(), entity.Reservation.AmountDeposit)
	if err != nil {
		s.logg.Error(ctx, "commission snapshot failed", err)
		return
	}
	plan.updates["commission_percent"] = snap.Percent
	plan.updates["commission_amount"] = snap.AmountCents
}

func applyPlan(ctx context.Context, res resolver, entity *Entity, plan transitionPlan) (bool, error) {
	switch entity.Kind {
	case enums.EntityKindPackPurchase:
		return res.packs.UpdatePayment(ctx, entity.PackPurchase.ID, plan.prior, plan.updates)
	case enums.EntityKindVisibilityOrder:
		return res.visibility.UpdatePayment(ctx, entity.VisibilityOrder.ID, plan.prior, plan.updates)
	default:
		return res.reservations.UpdatePayment(ctx, entity.Reservation.ID, plan.prior, plan.updates)
	}
}

// emitDomainEvents queues the domain event for the transition plus the
// notification and email requests that fan out from it. All rows ride the
// webhook transaction.
func (s *service) emitDomainEvents(ctx context.Context, tx *gorm.DB, entity *Entity, plan transitionPlan, event *WebhookEvent, confirmed bool, now time.Time) error {
	currency := strings.ToUpper(firstNonEmpty(event.Currency, entity.Currency()))
	amount := entity.SettledAmountCents()

	domain := outbox.DomainEvent{
		EventType:     domainEventType(entity.Kind, plan.next),
		AggregateType: aggregateType(entity.Kind),
		AggregateID:   entity.ID(),
		Data:          paymentPayload(entity, plan, event, amount, currency, now),
		Version:       1,
		OccurredAt:    now,
	}
	if err := s.outbox.Emit(ctx, tx, domain); err != nil {
		return err
	}

	if confirmed {
		confirmedEvent := outbox.DomainEvent{
			EventType:     enums.EventReservationConfirmed,
			AggregateType: enums.AggregateReservation,
			AggregateID:   entity.Reservation.ID,
			Data: payloads.ReservationConfirmedEvent{
				ReservationID:    entity.Reservation.ID,
				BookingReference: entity.Reservation.BookingReference,
				EstablishmentID:  entity.Reservation.EstablishmentID,
				UserID:           entity.Reservation.UserID,
				SlotID:           entity.Reservation.SlotID,
				PartySize:        entity.Reservation.PartySize,
				ConfirmedAt:      now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, confirmedEvent); err != nil {
			return err
		}
	}

	return s.queueNotifications(ctx, tx, entity, plan, confirmed, amount, currency, now)
}

// queueNotifications fans a settled or refunded payment out to the people
// who care: an in-app notice for the establishment and an email for the
// paying user.
func (s *service) queueNotifications(ctx context.Context, tx *gorm.DB, entity *Entity, plan transitionPlan, confirmed bool, amount int64, currency string, now time.Time) error {
	establishmentID := entity.EstablishmentID()
	ref := entity.PublicRef()

	notifType := enums.NotificationTypePaymentReceived
	title := "Payment received"
	message := "Payment received for " + ref + "."
	template := "payment_received"
	if plan.becameRefunded() {
		notifType = enums.NotificationTypePaymentRefunded
		title = "Payment refunded"
		message = "Payment refunded for " + ref + "."
		template = "payment_refunded"
	}

	notice := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   entity.ID(),
		Data: payloads.NotificationRequestedEvent{
			EstablishmentID: &establishmentID,
			Audience:        enums.AudienceEstablishmentMembers,
			Type:            notifType,
			EntityKind:      entity.Kind,
			EntityID:        entity.ID(),
			Title:           title,
			Message:         message,
		},
		Version:    1,
		OccurredAt: now,
	}
	if err := s.outbox.Emit(ctx, tx, notice); err != nil {
		return err
	}

	email := outbox.DomainEvent{
		EventType:     enums.EventEmailRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   entity.ID(),
		Data: payloads.EmailRequestedEvent{
			UserID:   entity.UserID(),
			Template: template,
			Variables: map[string]string{
				"reference":    ref,
				"amount_cents": strconv.FormatInt(amount, 10),
				"currency":     currency,
			},
		},
		Version:    1,
		OccurredAt: now,
	}
	if err := s.outbox.Emit(ctx, tx, email); err != nil {
		return err
	}

	if !confirmed {
		return nil
	}
	confirmNotice := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   entity.ID(),
		Data: payloads.NotificationRequestedEvent{
			EstablishmentID: &establishmentID,
			Audience:        enums.AudienceEstablishmentMembers,
			Type:            enums.NotificationTypeBookingConfirmed,
			EntityKind:      entity.Kind,
			EntityID:        entity.ID(),
			Title:           "Booking confirmed",
			Message:         "Booking " + ref + " confirmed after deposit settlement.",
		},
		Version:    1,
		OccurredAt: now,
	}
	return s.outbox.Emit(ctx, tx, confirmNotice)
}

func (s *service) eventCtx(ctx context.Context, event *WebhookEvent) context.Context {
	if event.Provider != "" {
		ctx = s.logg.WithProvider(ctx, event.Provider)
	}
	if event.EventID != "" {
		ctx = s.logg.WithEventID(ctx, event.EventID)
	}
	return ctx
}

func domainEventType(kind enums.EntityKind, status enums.PaymentStatus) enums.OutboxEventType {
	refunded := status == enums.PaymentStatusRefunded
	switch kind {
	case enums.EntityKindPackPurchase:
		if refunded {
			return enums.EventPackPurchaseRefunded
		}
		return enums.EventPackPurchasePaid
	case enums.EntityKindVisibilityOrder:
		if refunded {
			return enums.EventVisibilityOrderRefunded
		}
		return enums.EventVisibilityOrderPaid
	default:
		if refunded {
			return enums.EventReservationRefunded
		}
		return enums.EventReservationPaid
	}
}

func aggregateType(kind enums.EntityKind) enums.OutboxAggregateType {
	switch kind {
	case enums.EntityKindPackPurchase:
		return enums.AggregatePackPurchase
	case enums.EntityKindVisibilityOrder:
		return enums.AggregateVisibilityOrder
	default:
		return enums.AggregateReservation
	}
}

func paymentPayload(entity *Entity, plan transitionPlan, event *WebhookEvent, amount int64, currency string, now time.Time) any {
	switch entity.Kind {
	case enums.EntityKindPackPurchase:
		return payloads.PackPurchasePaymentEvent{
			PackPurchaseID:  entity.PackPurchase.ID,
			PackID:          entity.PackPurchase.PackID,
			EstablishmentID: entity.PackPurchase.EstablishmentID,
			UserID:          entity.PackPurchase.UserID,
			Provider:        event.Provider,
			PaymentEventID:  event.EventID,
			TransactionID:   event.TransactionID,
			PaymentStatus:   plan.next,
			AmountCents:     amount,
			Currency:        currency,
		}
	case enums.EntityKindVisibilityOrder:
		paidAt := event.PaidAt
		if paidAt == nil && plan.next == enums.PaymentStatusPaid {
			paidAt = &now
		}
		return payloads.VisibilityOrderPaymentEvent{
			VisibilityOrderID: entity.VisibilityOrder.ID,
			EstablishmentID:   entity.VisibilityOrder.EstablishmentID,
			Provider:          event.Provider,
			PaymentEventID:    event.EventID,
			TransactionID:     event.TransactionID,
			PaymentStatus:     plan.next,
			AmountCents:       amount,
			Currency:          currency,
			PaidAt:            paidAt,
		}
	default:
		return payloads.ReservationPaymentEvent{
			ReservationID:    entity.Reservation.ID,
			BookingReference: entity.Reservation.BookingReference,
			EstablishmentID:  entity.Reservation.EstablishmentID,
			UserID:           entity.Reservation.UserID,
			Provider:         event.Provider,
			PaymentEventID:   event.EventID,
			TransactionID:    event.TransactionID,
			PaymentStatus:    plan.next,
			AmountCents:      amount,
			Currency:         currency,
		}
	}
}
