package reservations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
)

// Repository manages reservation persistence plus the slot and waitlist
// reads the auto-confirmation policy depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindByBookingReference(ctx context.Context, reference string) (*models.Reservation, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Reservation, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, prior enums.PaymentStatus, updates map[string]any) (bool, error)
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
	FindSlot(ctx context.Context, slotID uuid.UUID) (*models.Slot, error)
	SumOtherPartySizes(ctx context.Context, slotID, excludeReservationID uuid.UUID) (int, error)
	HasActiveWaitlist(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindByBookingReference(ctx context.Context, reference string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).Where("booking_reference = ?", reference).First(&reservation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// FindByTransactionID matches the provider transaction id previously written
// into meta. The expression index on meta->>'payment_transaction_id' keeps
// this a lookup, not a scan. Unlike booking references the meta key carries
// no unique constraint, so a transaction id recorded on more than one row is
// ambiguous and resolves to nothing rather than an arbitrary row.
func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("meta->>'payment_transaction_id' = ?", transactionID).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdatePayment applies the transition patch only while the row still carries
// the payment status the patch was planned against. Zero rows affected means
// a concurrent delivery moved the row first.
func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, prior enums.PaymentStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND payment_status = ?", id, prior).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Confirm flips the reservation to confirmed only if it is not already
// confirmed. The condition lives in the WHERE clause so two concurrent
// writers cannot both observe the flip.
func (r *repository) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status <> ?", id, enums.ReservationStatusConfirmed).
		UpdateColumn("status", enums.ReservationStatusConfirmed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindSlot(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).Where("id = ?", slotID).First(&slot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// SumOtherPartySizes totals the seats held on a slot by every reservation
// other than the one being confirmed. Cancelled and refunded rows no longer
// hold seats.
func (r *repository) SumOtherPartySizes(ctx context.Context, slotID, excludeReservationID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("COALESCE(SUM(party_size), 0)").
		Where("slot_id = ? AND id <> ? AND status NOT IN ?", slotID, excludeReservationID,
			[]enums.ReservationStatus{enums.ReservationStatusCancelled, enums.ReservationStatusRefunded}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// HasActiveWaitlist reports whether anyone is still queued on the slot.
// The reservation's own originating entry, when known, does not count
// against it.
func (r *repository) HasActiveWaitlist(ctx context.Context, slotID uuid.UUID, excludeEntryID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("slot_id = ? AND status IN ?", slotID,
			[]enums.WaitlistStatus{enums.WaitlistStatusActive, enums.WaitlistStatusOffered})
	if excludeEntryID != nil {
		query = query.Where("id <> ?", *excludeEntryID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
