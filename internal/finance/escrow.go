package finance

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/types"
)

// EscrowInput describes the funds movement a payment event asks for.
type EscrowInput struct {
	EntityKind      enums.EntityKind
	EntityID        uuid.UUID
	EstablishmentID uuid.UUID
	Actor           string
	AmountCents     int64
	Currency        string
	PaymentEventID  string
}

// EscrowService writes escrow movements to the ledger. Holds and releases
// are deduplicated per entity so a replayed payment event cannot double-book
// funds.
type EscrowService interface {
	EnsureHold(ctx context.Context, input EscrowInput) error
	Settle(ctx context.Context, input EscrowInput, reason string) error
}

type escrowService struct {
	repo LedgerRepository
}

// NewEscrowService builds the escrow service.
func NewEscrowService(repo LedgerRepository) (EscrowService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "finance: ledger repository is required")
	}
	return &escrowService{repo: repo}, nil
}

// EnsureHold records an escrow hold for the entity unless one already exists.
func (s *escrowService) EnsureHold(ctx context.Context, input EscrowInput) error {
	if err := validateEscrowInput(input); err != nil {
		return err
	}
	held, err := s.repo.HasEvent(ctx, input.EntityKind, input.EntityID, enums.LedgerEventTypeEscrowHold)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finance: checking escrow hold")
	}
	if held {
		return nil
	}
	return s.record(ctx, input, enums.LedgerEventTypeEscrowHold, "")
}

// Settle records an escrow refund for the entity unless one already exists.
// The reason ends up in the event metadata for later reconciliation.
func (s *escrowService) Settle(ctx context.Context, input EscrowInput, reason string) error {
	if err := validateEscrowInput(input); err != nil {
		return err
	}
	settled, err := s.repo.HasEvent(ctx, input.EntityKind, input.EntityID, enums.LedgerEventTypeEscrowRefund)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finance: checking escrow settlement")
	}
	if settled {
		return nil
	}
	return s.record(ctx, input, enums.LedgerEventTypeEscrowRefund, reason)
}

func (s *escrowService) record(ctx context.Context, input EscrowInput, eventType enums.LedgerEventType, reason string) error {
	metadata := types.JSONMap{}
	if input.PaymentEventID != "" {
		metadata["payment_event_id"] = input.PaymentEventID
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	event := &models.LedgerEvent{
		EntityKind:      input.EntityKind,
		EntityID:        input.EntityID,
		EstablishmentID: input.EstablishmentID,
		Actor:           input.Actor,
		Type:            eventType,
		AmountCents:     input.AmountCents,
		Currency:        strings.ToUpper(input.Currency),
	}
	if len(metadata) > 0 {
		event.Metadata = &metadata
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finance: recording "+string(eventType))
	}
	return nil
}

func validateEscrowInput(input EscrowInput) error {
	if input.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: entity id is required")
	}
	if input.EstablishmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: establishment id is required")
	}
	if input.AmountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: amount must not be negative")
	}
	if input.Currency == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: currency is required")
	}
	return nil
}
