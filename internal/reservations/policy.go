package reservations

import (
	"context"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
)

// Block reasons written to the payment audit trail when a paid reservation
// is left unconfirmed.
const (
	BlockReasonWaitlistOrigin       = "waitlist_origin"
	BlockReasonWaitlistPriority     = "waitlist_priority"
	BlockReasonCapacityInsufficient = "capacity_insufficient"
)

// EligibleForAutoConfirmation reports whether a reservation that just became
// paid is a candidate for the confirmation policy at all. Only bookings still
// awaiting validation, with real money down, qualify.
func EligibleForAutoConfirmation(reservation *models.Reservation) bool {
	if reservation == nil || reservation.AmountDeposit <= 0 {
		return false
	}
	switch reservation.Status {
	case enums.ReservationStatusRequested, enums.ReservationStatusPendingProValidation:
		return true
	default:
		return false
	}
}

// EvaluateConfirmation applies the fairness and capacity rules to an
// eligible reservation. It returns "" when confirmation may proceed, or the
// block reason to record. The repository must be bound to the caller's
// transaction so the aggregate reads and the confirmation write see the
// same snapshot.
func EvaluateConfirmation(ctx context.Context, repo Repository, reservation *models.Reservation) (string, error) {
	if reservation.Meta.IsFromWaitlist() {
		return BlockReasonWaitlistOrigin, nil
	}
	if reservation.SlotID == nil {
		// No slot means nothing to overbook and no queue to respect.
		return "", nil
	}
	slotID := *reservation.SlotID

	queued, err := repo.HasActiveWaitlist(ctx, slotID, reservationWaitlistEntryID(reservation))
	if err != nil {
		return "", err
	}
	if queued {
		return BlockReasonWaitlistPriority, nil
	}

	slot, err := repo.FindSlot(ctx, slotID)
	if err != nil {
		return "", err
	}
	if slot == nil {
		// A reservation pointing at a missing slot cannot be capacity
		// checked; it stays unconfirmed for manual handling.
		return BlockReasonCapacityInsufficient, nil
	}
	taken, err := repo.SumOtherPartySizes(ctx, slotID, reservation.ID)
	if err != nil {
		return "", err
	}
	if slot.Capacity-taken < reservation.PartySize {
		return BlockReasonCapacityInsufficient, nil
	}
	return "", nil
}

func reservationWaitlistEntryID(reservation *models.Reservation) *uuid.UUID {
	raw := reservation.Meta.WaitlistEntryID()
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
