package types

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestMetaPaymentEventIDsRoundTrip(t *testing.T) {
	var meta Meta
	meta.AppendPaymentEventID("evt_1")
	meta.AppendPaymentEventID("evt_2")

	if !meta.HasPaymentEventID("evt_1") || !meta.HasPaymentEventID("evt_2") {
		t.Fatalf("expected both event ids recorded, got %v", meta.PaymentEventIDs())
	}
	if meta.HasPaymentEventID("evt_3") {
		t.Fatal("unexpected event id reported as recorded")
	}
	if meta.HasPaymentEventID("") {
		t.Fatal("empty event id must never be considered recorded")
	}

	// Simulate a JSONB round trip: typed slices become []any.
	raw, err := meta.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	var restored Meta
	if err := restored.Scan(raw); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !restored.HasPaymentEventID("evt_2") {
		t.Fatalf("expected event ids to survive round trip, got %v", restored.PaymentEventIDs())
	}
}

func TestMetaPaymentEventIDsBounded(t *testing.T) {
	var meta Meta
	for i := 0; i < 60; i++ {
		meta.AppendPaymentEventID(fmt.Sprintf("evt_%d", i))
	}

	ids := meta.PaymentEventIDs()
	if len(ids) != 50 {
		t.Fatalf("expected ledger capped at 50, got %d", len(ids))
	}
	if ids[0] != "evt_10" {
		t.Fatalf("expected oldest entries dropped, first is %q", ids[0])
	}
	if ids[len(ids)-1] != "evt_59" {
		t.Fatalf("expected newest entry kept, last is %q", ids[len(ids)-1])
	}
}

func TestMetaTransactionIDPreservesPrevious(t *testing.T) {
	var meta Meta
	meta.RecordPaymentTransactionID("txn_a")
	if meta.PaymentTransactionID() != "txn_a" {
		t.Fatalf("unexpected transaction id %q", meta.PaymentTransactionID())
	}
	if meta.PreviousPaymentTransactionID() != "" {
		t.Fatal("previous transaction id should be empty on first write")
	}

	meta.RecordPaymentTransactionID("txn_b")
	if meta.PaymentTransactionID() != "txn_b" {
		t.Fatalf("unexpected transaction id %q", meta.PaymentTransactionID())
	}
	if meta.PreviousPaymentTransactionID() != "txn_a" {
		t.Fatalf("expected displaced id preserved, got %q", meta.PreviousPaymentTransactionID())
	}

	// Re-recording the same id must not clobber the preserved one.
	meta.RecordPaymentTransactionID("txn_b")
	if meta.PreviousPaymentTransactionID() != "txn_a" {
		t.Fatalf("same-id rewrite should keep previous, got %q", meta.PreviousPaymentTransactionID())
	}
}

func TestMetaPreservesUnknownKeys(t *testing.T) {
	var meta Meta
	if err := meta.Scan([]byte(`{"checkout_session":"cs_123","seats":[1,2]}`)); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	meta.AppendPaymentEventID("evt_1")
	meta.AppendPaymentAudit(PaymentAuditEntry{At: time.Now().UTC(), Action: "payment_status_changed"})

	raw, err := meta.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw.(string)), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["checkout_session"] != "cs_123" {
		t.Fatalf("foreign key lost: %v", decoded)
	}
	if _, ok := decoded["payment_audit"]; !ok {
		t.Fatal("audit trail missing after write")
	}
}

func TestMetaWaitlistFlagTolerantDecoding(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`{"is_from_waitlist":true}`, true},
		{`{"is_from_waitlist":"true"}`, true},
		{`{"is_from_waitlist":"1"}`, true},
		{`{"is_from_waitlist":false}`, false},
		{`{"is_from_waitlist":"no"}`, false},
		{`{}`, false},
	}
	for _, tc := range cases {
		var meta Meta
		if err := meta.Scan([]byte(tc.raw)); err != nil {
			t.Fatalf("Scan(%s) failed: %v", tc.raw, err)
		}
		if got := meta.IsFromWaitlist(); got != tc.want {
			t.Fatalf("IsFromWaitlist(%s) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestMetaScanNullAndEmpty(t *testing.T) {
	var meta Meta
	if err := meta.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected empty document after NULL scan")
	}
	meta.AppendPaymentEventID("evt_1")
	if !meta.HasPaymentEventID("evt_1") {
		t.Fatal("document should be writable after NULL scan")
	}
}
