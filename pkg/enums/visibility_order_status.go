package enums

import "fmt"

// VisibilityOrderStatus is the lifecycle of a paid visibility campaign order.
type VisibilityOrderStatus string

const (
	VisibilityOrderStatusDraft     VisibilityOrderStatus = "draft"
	VisibilityOrderStatusPending   VisibilityOrderStatus = "pending"
	VisibilityOrderStatusActive    VisibilityOrderStatus = "active"
	VisibilityOrderStatusExpired   VisibilityOrderStatus = "expired"
	VisibilityOrderStatusCancelled VisibilityOrderStatus = "cancelled"
	VisibilityOrderStatusRefunded  VisibilityOrderStatus = "refunded"
)

// String implements fmt.Stringer.
func (v VisibilityOrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VisibilityOrderStatus.
func (v VisibilityOrderStatus) IsValid() bool {
	switch v {
	case VisibilityOrderStatusDraft,
		VisibilityOrderStatusPending,
		VisibilityOrderStatusActive,
		VisibilityOrderStatusExpired,
		VisibilityOrderStatusCancelled,
		VisibilityOrderStatusRefunded:
		return true
	}
	return false
}

// ParseVisibilityOrderStatus converts raw input into a VisibilityOrderStatus.
func ParseVisibilityOrderStatus(value string) (VisibilityOrderStatus, error) {
	status := VisibilityOrderStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid visibility order status %q", value)
	}
	return status, nil
}
