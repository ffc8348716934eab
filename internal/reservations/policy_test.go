package reservations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

type fakeRepository struct {
	Repository

	findSlotFn           func(ctx context.Context, slotID uuid.UUID) (*models.Slot, error)
	sumOtherPartySizesFn func(ctx context.Context, slotID, excludeReservationID uuid.UUID) (int, error)
	hasActiveWaitlistFn  func(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) FindSlot(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
	if f.findSlotFn != nil {
		return f.findSlotFn(ctx, slotID)
	}
	return &models.Slot{ID: slotID, Capacity: 10}, nil
}

func (f *fakeRepository) SumOtherPartySizes(ctx context.Context, slotID, excludeReservationID uuid.UUID) (int, error) {
	if f.sumOtherPartySizesFn != nil {
		return f.sumOtherPartySizesFn(ctx, slotID, excludeReservationID)
	}
	return 0, nil
}

func (f *fakeRepository) HasActiveWaitlist(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error) {
	if f.hasActiveWaitlistFn != nil {
		return f.hasActiveWaitlistFn(ctx, slotID, excludeEntryID)
	}
	return false, nil
}

func pendingReservation() *models.Reservation {
	slotID := uuid.New()
	return &models.Reservation{
		ID:               uuid.New(),
		BookingReference: "BR-2093",
		EstablishmentID:  uuid.New(),
		UserID:           uuid.New(),
		SlotID:           &slotID,
		PartySize:        2,
		Status:           enums.ReservationStatusPendingProValidation,
		PaymentStatus:    enums.PaymentStatusPending,
		AmountDeposit:    5000,
		AmountTotal:      5000,
		Currency:         "EUR",
		Meta:             types.Meta{},
	}
}

func TestEligibleForAutoConfirmation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Reservation)
		want   bool
	}{
		{"pending pro validation with deposit", func(r *models.Reservation) {}, true},
		{"requested with deposit", func(r *models.Reservation) { r.Status = enums.ReservationStatusRequested }, true},
		{"already confirmed", func(r *models.Reservation) { r.Status = enums.ReservationStatusConfirmed }, false},
		{"cancelled", func(r *models.Reservation) { r.Status = enums.ReservationStatusCancelled }, false},
		{"zero deposit", func(r *models.Reservation) { r.AmountDeposit = 0 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reservation := pendingReservation()
			tc.mutate(reservation)
			if got := EligibleForAutoConfirmation(reservation); got != tc.want {
				t.Fatalf("eligibility = %v, want %v", got, tc.want)
			}
		})
	}
	if EligibleForAutoConfirmation(nil) {
		t.Fatal("nil reservation must not be eligible")
	}
}

func TestEvaluateConfirmation_WaitlistOrigin(t *testing.T) {
	repo := &fakeRepository{
		hasActiveWaitlistFn: func(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error) {
			t.Fatal("waitlist lookup should not run for waitlist-origin reservations")
			return false, nil
		},
	}
	reservation := pendingReservation()
	reservation.Meta = types.Meta{"is_from_waitlist": true}

	reason, err := EvaluateConfirmation(context.Background(), repo, reservation)
	if err != nil {
		t.Fatalf("EvaluateConfirmation error: %v", err)
	}
	if reason != BlockReasonWaitlistOrigin {
		t.Fatalf("reason = %q, want %q", reason, BlockReasonWaitlistOrigin)
	}
}

func TestEvaluateConfirmation_WaitlistPriority(t *testing.T) {
	repo := &fakeRepository{
		hasActiveWaitlistFn: func(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error) {
			return true, nil
		},
	}

	reason, err := EvaluateConfirmation(context.Background(), repo, pendingReservation())
	if err != nil {
		t.Fatalf("EvaluateConfirmation error: %v", err)
	}
	if reason != BlockReasonWaitlistPriority {
		t.Fatalf("reason = %q, want %q", reason, BlockReasonWaitlistPriority)
	}
}

func TestEvaluateConfirmation_ExcludesOwnWaitlistEntry(t *testing.T) {
	entryID := uuid.New()
	var gotExclude *uuid.UUID
	repo := &fakeRepository{
		hasActiveWaitlistFn: func(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error) {
			gotExclude = excludeEntryID
			return false, nil
		},
	}
	reservation := pendingReservation()
	reservation.Meta = types.Meta{"waitlist_entry_id": entryID.String()}

	reason, err := EvaluateConfirmation(context.Background(), repo, reservation)
	if err != nil {
		t.Fatalf("EvaluateConfirmation error: %v", err)
	}
	if reason != "" {
		t.Fatalf("expected confirmation to proceed, got %q", reason)
	}
	if gotExclude == nil || *gotExclude != entryID {
		t.Fatalf("own waitlist entry not excluded: %v", gotExclude)
	}
}

func TestEvaluateConfirmation_CapacityGuard(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		taken      int
		partySize  int
		wantReason string
	}{
		{"one seat left for party of two", 10, 9, 2, BlockReasonCapacityInsufficient},
		{"exactly enough seats", 10, 8, 2, ""},
		{"empty slot", 4, 0, 4, ""},
		{"full slot", 4, 4, 1, BlockReasonCapacityInsufficient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepository{
				findSlotFn: func(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
					return &models.Slot{ID: slotID, Capacity: tc.capacity}, nil
				},
				sumOtherPartySizesFn: func(ctx context.Context, slotID, excludeReservationID uuid.UUID) (int, error) {
					return tc.taken, nil
				},
			}
			reservation := pendingReservation()
			reservation.PartySize = tc.partySize

			reason, err := EvaluateConfirmation(context.Background(), repo, reservation)
			if err != nil {
				t.Fatalf("EvaluateConfirmation error: %v", err)
			}
			if reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tc.wantReason)
			}
		})
	}
}

func TestEvaluateConfirmation_NoSlot(t *testing.T) {
	reservation := pendingReservation()
	reservation.SlotID = nil

	reason, err := EvaluateConfirmation(context.Background(), &fakeRepository{}, reservation)
	if err != nil {
		t.Fatalf("EvaluateConfirmation error: %v", err)
	}
	if reason != "" {
		t.Fatalf("slotless reservation should confirm, got %q", reason)
	}
}

func TestEvaluateConfirmation_MissingSlotRow(t *testing.T) {
	repo := &fakeRepository{
		findSlotFn: func(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
			return nil, nil
		},
	}

	reason, err := EvaluateConfirmation(context.Background(), repo, pendingReservation())
	if err != nil {
		t.Fatalf("EvaluateConfirmation error: %v", err)
	}
	if reason != BlockReasonCapacityInsufficient {
		t.Fatalf("reason = %q, want %q", reason, BlockReasonCapacityInsufficient)
	}
}
