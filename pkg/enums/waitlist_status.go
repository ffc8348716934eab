package enums

import "fmt"

// WaitlistStatus is the lifecycle of a waitlist entry on a slot. Entries in
// active or offered state hold priority over direct bookings.
type WaitlistStatus string

const (
	WaitlistStatusActive    WaitlistStatus = "active"
	WaitlistStatusOffered   WaitlistStatus = "offered"
	WaitlistStatusPromoted  WaitlistStatus = "promoted"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusCancelled WaitlistStatus = "cancelled"
)

// String implements fmt.Stringer.
func (w WaitlistStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WaitlistStatus.
func (w WaitlistStatus) IsValid() bool {
	switch w {
	case WaitlistStatusActive,
		WaitlistStatusOffered,
		WaitlistStatusPromoted,
		WaitlistStatusExpired,
		WaitlistStatusCancelled:
		return true
	}
	return false
}

// ParseWaitlistStatus converts raw input into a WaitlistStatus.
func ParseWaitlistStatus(value string) (WaitlistStatus, error) {
	status := WaitlistStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid waitlist status %q", value)
	}
	return status, nil
}

// HoldsPriority reports whether an entry in this status still blocks
// auto-confirmation of direct bookings on the same slot.
func (w WaitlistStatus) HoldsPriority() bool {
	return w == WaitlistStatusActive || w == WaitlistStatusOffered
}
