package enums

import "fmt"

// PackPurchaseStatus is the lifecycle of a bundled-offer purchase.
type PackPurchaseStatus string

const (
	PackPurchaseStatusPending   PackPurchaseStatus = "pending"
	PackPurchaseStatusActive    PackPurchaseStatus = "active"
	PackPurchaseStatusConsumed  PackPurchaseStatus = "consumed"
	PackPurchaseStatusCancelled PackPurchaseStatus = "cancelled"
	PackPurchaseStatusRefunded  PackPurchaseStatus = "refunded"
)

// String implements fmt.Stringer.
func (p PackPurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PackPurchaseStatus.
func (p PackPurchaseStatus) IsValid() bool {
	switch p {
	case PackPurchaseStatusPending,
		PackPurchaseStatusActive,
		PackPurchaseStatusConsumed,
		PackPurchaseStatusCancelled,
		PackPurchaseStatusRefunded:
		return true
	}
	return false
}

// ParsePackPurchaseStatus converts raw input into a PackPurchaseStatus.
func ParsePackPurchaseStatus(value string) (PackPurchaseStatus, error) {
	status := PackPurchaseStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid pack purchase status %q", value)
	}
	return status, nil
}
