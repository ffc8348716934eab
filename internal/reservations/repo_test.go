package reservations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

func setupReservationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	reservations := `
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  booking_reference TEXT NOT NULL UNIQUE,
  establishment_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  slot_id TEXT,
  party_size INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'requested',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  amount_deposit INTEGER NOT NULL DEFAULT 0,
  amount_total INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'EUR',
  commission_percent TEXT,
  commission_amount INTEGER,
  meta TEXT NOT NULL DEFAULT '{}',
  checked_in_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	slots := `
CREATE TABLE IF NOT EXISTS slots (
  id TEXT PRIMARY KEY,
  establishment_id TEXT NOT NULL,
  starts_at DATETIME NOT NULL,
  capacity INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	waitlistEntries := `
CREATE TABLE IF NOT EXISTS waitlist_entries (
  id TEXT PRIMARY KEY,
  slot_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  reservation_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(reservations).Error)
	require.NoError(t, conn.Exec(slots).Error)
	require.NoError(t, conn.Exec(waitlistEntries).Error)
	return conn
}

func seedReservation(t *testing.T, conn *gorm.DB, mutate func(*models.Reservation)) *models.Reservation {
	t.Helper()

	reservation := &models.Reservation{
		ID:               uuid.New(),
		BookingReference: "BR-" + uuid.NewString()[:8],
		EstablishmentID:  uuid.New(),
		UserID:           uuid.New(),
		PartySize:        2,
		Status:           enums.ReservationStatusPendingProValidation,
		PaymentStatus:    enums.PaymentStatusPending,
		AmountDeposit:    5000,
		AmountTotal:      5000,
		Currency:         "EUR",
		Meta:             types.Meta{},
	}
	if mutate != nil {
		mutate(reservation)
	}
	require.NoError(t, conn.Create(reservation).Error)
	return reservation
}

func seedWaitlistEntry(t *testing.T, conn *gorm.DB, slotID uuid.UUID, status enums.WaitlistStatus) *models.WaitlistEntry {
	t.Helper()

	entry := &models.WaitlistEntry{
		ID:     uuid.New(),
		SlotID: slotID,
		UserID: uuid.New(),
		Status: status,
	}
	require.NoError(t, conn.Create(entry).Error)
	return entry
}

func TestRepository_ConfirmIsConditional(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	reservation := seedReservation(t, conn, nil)

	flipped, err := repo.Confirm(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	again, err := repo.Confirm(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.False(t, again, "second confirm must not report a flip")

	reloaded, err := repo.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, enums.ReservationStatusConfirmed, reloaded.Status)
}

func TestRepository_FindByBookingReference(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	reservation := seedReservation(t, conn, func(r *models.Reservation) {
		r.BookingReference = "BR-2093"
	})

	found, err := repo.FindByBookingReference(context.Background(), "BR-2093")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reservation.ID, found.ID)

	missing, err := repo.FindByBookingReference(context.Background(), "BR-0000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_FindByTransactionID(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	reservation := seedReservation(t, conn, func(r *models.Reservation) {
		r.Meta = types.Meta{"payment_transaction_id": "txn_9f2c"}
	})

	found, err := repo.FindByTransactionID(context.Background(), "txn_9f2c")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reservation.ID, found.ID)

	missing, err := repo.FindByTransactionID(context.Background(), "txn_other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_FindByTransactionIDAmbiguous(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	seedReservation(t, conn, func(r *models.Reservation) {
		r.Meta = types.Meta{"payment_transaction_id": "txn_dup"}
	})
	seedReservation(t, conn, func(r *models.Reservation) {
		r.Meta = types.Meta{"payment_transaction_id": "txn_dup"}
	})

	found, err := repo.FindByTransactionID(context.Background(), "txn_dup")
	require.NoError(t, err)
	assert.Nil(t, found, "a transaction id recorded on two rows must resolve to neither")
}

func TestRepository_UpdatePaymentWritesMeta(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	reservation := seedReservation(t, conn, nil)

	meta := reservation.Meta
	meta.AppendPaymentEventID("evt_01H")
	meta.RecordPaymentTransactionID("txn_42")
	applied, err := repo.UpdatePayment(context.Background(), reservation.ID, enums.PaymentStatusPending, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"currency":       "EUR",
		"meta":           meta,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	reloaded, err := repo.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.True(t, reloaded.Meta.HasPaymentEventID("evt_01H"))
	assert.Equal(t, "txn_42", reloaded.Meta.PaymentTransactionID())

	byTxn, err := repo.FindByTransactionID(context.Background(), "txn_42")
	require.NoError(t, err)
	require.NotNil(t, byTxn)
	assert.Equal(t, reservation.ID, byTxn.ID)
}

func TestRepository_UpdatePaymentIsConditional(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	reservation := seedReservation(t, conn, func(r *models.Reservation) {
		r.PaymentStatus = enums.PaymentStatusPaid
	})

	applied, err := repo.UpdatePayment(context.Background(), reservation.ID, enums.PaymentStatusPending, map[string]any{
		"payment_status": enums.PaymentStatusRefunded,
	})
	require.NoError(t, err)
	assert.False(t, applied, "patch planned against a superseded status must not land")

	reloaded, err := repo.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestRepository_SumOtherPartySizes(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	slotID := uuid.New()
	subject := seedReservation(t, conn, func(r *models.Reservation) {
		r.SlotID = &slotID
		r.PartySize = 2
	})
	seedReservation(t, conn, func(r *models.Reservation) {
		r.SlotID = &slotID
		r.PartySize = 4
		r.Status = enums.ReservationStatusConfirmed
	})
	seedReservation(t, conn, func(r *models.Reservation) {
		r.SlotID = &slotID
		r.PartySize = 5
		r.Status = enums.ReservationStatusRequested
	})
	seedReservation(t, conn, func(r *models.Reservation) {
		r.SlotID = &slotID
		r.PartySize = 7
		r.Status = enums.ReservationStatusCancelled
	})
	otherSlot := uuid.New()
	seedReservation(t, conn, func(r *models.Reservation) {
		r.SlotID = &otherSlot
		r.PartySize = 3
		r.Status = enums.ReservationStatusConfirmed
	})

	taken, err := repo.SumOtherPartySizes(context.Background(), slotID, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, taken, "confirmed + requested count, cancelled and other slots do not")
}

func TestRepository_HasActiveWaitlist(t *testing.T) {
	conn := setupReservationsTestDB(t)
	repo := NewRepository(conn)

	slotID := uuid.New()
	entry := seedWaitlistEntry(t, conn, slotID, enums.WaitlistStatusActive)
	seedWaitlistEntry(t, conn, slotID, enums.WaitlistStatusPromoted)
	seedWaitlistEntry(t, conn, uuid.New(), enums.WaitlistStatusActive)

	queued, err := repo.HasActiveWaitlist(context.Background(), slotID, nil)
	require.NoError(t, err)
	assert.True(t, queued)

	excludingOwn, err := repo.HasActiveWaitlist(context.Background(), slotID, &entry.ID)
	require.NoError(t, err)
	assert.False(t, excludingOwn, "only the excluded entry was active")

	offered := seedWaitlistEntry(t, conn, slotID, enums.WaitlistStatusOffered)
	stillQueued, err := repo.HasActiveWaitlist(context.Background(), slotID, &entry.ID)
	require.NoError(t, err)
	assert.True(t, stillQueued, "offered entries hold their place, entry %s", offered.ID)
}
