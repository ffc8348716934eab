package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Meta is the free-form JSONB document carried by every commerce entity.
// Checkout, back-office tooling and the payment reconciliation flow all
// write disjoint keys into it; unknown keys are preserved round-trip.
type Meta map[string]any

const (
	metaKeyPaymentEventIDs    = "payment_event_ids"
	metaKeyTransactionID      = "payment_transaction_id"
	metaKeyTransactionIDPrev  = "payment_transaction_id_previous"
	metaKeyPaymentAudit       = "payment_audit"
	metaKeyIsFromWaitlist     = "is_from_waitlist"
	metaKeyWaitlistEntryID    = "waitlist_entry_id"
	metaKeyPurchaseReference  = "purchase_reference"
	maxPaymentEventIDsTracked = 50
)

// PaymentAuditEntry is one line of the in-meta reconciliation trail.
type PaymentAuditEntry struct {
	At            time.Time `json:"at"`
	Action        string    `json:"action"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	EventID       string    `json:"event_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// Value serializes the meta document to JSON for a JSONB column. It returns
// a string so the sqlite test driver stores TEXT, keeping ->> lookups usable
// there as well.
func (m Meta) Value() (driver.Value, error) {
	doc := m
	if doc == nil {
		doc = Meta{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSONB column into the meta document.
func (m *Meta) Scan(value interface{}) error {
	if value == nil {
		*m = Meta{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*m = Meta{}
		return nil
	}
	var decoded Meta
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	if decoded == nil {
		decoded = Meta{}
	}
	*m = decoded
	return nil
}

// PaymentEventIDs returns the webhook event ids already applied to the
// owning entity, oldest first.
func (m Meta) PaymentEventIDs() []string {
	raw, ok := m[metaKeyPaymentEventIDs]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		// Round-tripping through our own helpers can leave a typed slice.
		if typed, ok := raw.([]string); ok {
			return typed
		}
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasPaymentEventID reports whether the given webhook event id was already
// applied. Empty ids are never considered recorded.
func (m Meta) HasPaymentEventID(id string) bool {
	if id == "" {
		return false
	}
	for _, seen := range m.PaymentEventIDs() {
		if seen == id {
			return true
		}
	}
	return false
}

// AppendPaymentEventID records a webhook event id, keeping only the most
// recent entries so the document stays bounded.
func (m *Meta) AppendPaymentEventID(id string) {
	if id == "" {
		return
	}
	m.ensure()
	ids := append(m.PaymentEventIDs(), id)
	if len(ids) > maxPaymentEventIDsTracked {
		ids = ids[len(ids)-maxPaymentEventIDsTracked:]
	}
	(*m)[metaKeyPaymentEventIDs] = ids
}

// PaymentTransactionID returns the provider transaction id recorded for the
// owning entity, or "".
func (m Meta) PaymentTransactionID() string {
	return m.str(metaKeyTransactionID)
}

// RecordPaymentTransactionID stores the provider transaction id. A differing
// prior id is preserved under payment_transaction_id_previous instead of
// being overwritten silently.
func (m *Meta) RecordPaymentTransactionID(id string) {
	if id == "" {
		return
	}
	m.ensure()
	if prev := m.PaymentTransactionID(); prev != "" && prev != id {
		(*m)[metaKeyTransactionIDPrev] = prev
	}
	(*m)[metaKeyTransactionID] = id
}

// PreviousPaymentTransactionID returns the displaced transaction id, if any.
func (m Meta) PreviousPaymentTransactionID() string {
	return m.str(metaKeyTransactionIDPrev)
}

// AppendPaymentAudit appends one entry to the reconciliation trail.
func (m *Meta) AppendPaymentAudit(entry PaymentAuditEntry) {
	m.ensure()
	var trail []any
	if existing, ok := (*m)[metaKeyPaymentAudit].([]any); ok {
		trail = existing
	}
	(*m)[metaKeyPaymentAudit] = append(trail, entry.asMap())
}

// PaymentAudit returns the raw reconciliation trail entries.
func (m Meta) PaymentAudit() []any {
	if trail, ok := m[metaKeyPaymentAudit].([]any); ok {
		return trail
	}
	return nil
}

// IsFromWaitlist reports whether the owning reservation was created from a
// waitlist offer. Both boolean and stringly-typed writes are tolerated.
func (m Meta) IsFromWaitlist() bool {
	switch v := m[metaKeyIsFromWaitlist].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

// WaitlistEntryID returns the waitlist entry a reservation originated from.
func (m Meta) WaitlistEntryID() string {
	return m.str(metaKeyWaitlistEntryID)
}

// PurchaseReference returns the public alias of a pack purchase.
func (m Meta) PurchaseReference() string {
	return m.str(metaKeyPurchaseReference)
}

func (m Meta) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m *Meta) ensure() {
	if *m == nil {
		*m = Meta{}
	}
}

func (e PaymentAuditEntry) asMap() map[string]any {
	raw, err := json.Marshal(e)
	if err != nil {
		return map[string]any{"action": e.Action}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"action": e.Action}
	}
	return out
}
