package enums

import "fmt"

// ReservationStatus is the booking lifecycle, distinct from payment state.
// A reservation can be paid yet still awaiting pro validation, and only the
// auto-confirmation policy or a staff action moves it to confirmed.
type ReservationStatus string

const (
	ReservationStatusRequested            ReservationStatus = "requested"
	ReservationStatusPendingProValidation ReservationStatus = "pending_pro_validation"
	ReservationStatusConfirmed            ReservationStatus = "confirmed"
	ReservationStatusCancelled            ReservationStatus = "cancelled"
	ReservationStatusRefunded             ReservationStatus = "refunded"
	ReservationStatusCompleted            ReservationStatus = "completed"
	ReservationStatusNoShow               ReservationStatus = "no_show"
)

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	switch r {
	case ReservationStatusRequested,
		ReservationStatusPendingProValidation,
		ReservationStatusConfirmed,
		ReservationStatusCancelled,
		ReservationStatusRefunded,
		ReservationStatusCompleted,
		ReservationStatusNoShow:
		return true
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	status := ReservationStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid reservation status %q", value)
	}
	return status, nil
}

// CountsAgainstCapacity reports whether a reservation in this status still
// occupies seats on its slot.
func (r ReservationStatus) CountsAgainstCapacity() bool {
	switch r {
	case ReservationStatusCancelled, ReservationStatusRefunded:
		return false
	default:
		return true
	}
}
