package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type enum in Postgres.
type LedgerEventType string

const (
	LedgerEventTypeEscrowHold    LedgerEventType = "escrow_hold"
	LedgerEventTypeEscrowRelease LedgerEventType = "escrow_release"
	LedgerEventTypeEscrowRefund  LedgerEventType = "escrow_refund"
	LedgerEventTypeAdjustment    LedgerEventType = "adjustment"
)

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	switch t {
	case LedgerEventTypeEscrowHold,
		LedgerEventTypeEscrowRelease,
		LedgerEventTypeEscrowRefund,
		LedgerEventTypeAdjustment:
		return true
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	eventType := LedgerEventType(value)
	if !eventType.IsValid() {
		return "", fmt.Errorf("invalid ledger event type %q", value)
	}
	return eventType, nil
}
