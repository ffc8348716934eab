package enums

import "fmt"

// EntityKind identifies which commerce entity a payment event targets.
type EntityKind string

const (
	EntityKindReservation     EntityKind = "reservation"
	EntityKindPackPurchase    EntityKind = "pack_purchase"
	EntityKindVisibilityOrder EntityKind = "visibility_order"
)

// String implements fmt.Stringer.
func (k EntityKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known EntityKind.
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindReservation, EntityKindPackPurchase, EntityKindVisibilityOrder:
		return true
	}
	return false
}

// ParseEntityKind converts raw input into an EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	kind := EntityKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid entity kind %q", value)
	}
	return kind, nil
}
