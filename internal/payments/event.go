package payments

import (
	"strings"
	"time"

	"github.com/planera-app/planera-backend/pkg/enums"
)

// Provider identifiers carried on normalized events and into audit trails.
const (
	ProviderUnified = "unified"
	ProviderStancer = "stancer"
)

// WebhookEvent is the canonical, provider-independent form of one payment
// notification. It lives only for the duration of a request; durable traces
// go into entity meta and the outbox.
type WebhookEvent struct {
	EventID  string
	Provider string
	Kind     string

	// Target references. At most one kind-specific field is set by the
	// normalizer; Reference carries an unclassified id the resolver has to
	// probe across kinds.
	ReservationID     string
	BookingReference  string
	PackPurchaseID    string
	VisibilityOrderID string
	TransactionID     string
	Reference         string

	// PaymentStatus is the explicit status when the payload carried one;
	// otherwise it is inferred from Kind.
	PaymentStatus    enums.PaymentStatus
	AmountTotalCents *int64
	Currency         string
	PaidAt           *time.Time
}

// ResolvedStatus returns the payment status this event asks for, falling
// back to the kind mapping when the payload had no explicit status.
func (e *WebhookEvent) ResolvedStatus() (enums.PaymentStatus, bool) {
	if e.PaymentStatus != "" && e.PaymentStatus.IsValid() {
		return e.PaymentStatus, true
	}
	return statusFromKind(e.Kind)
}

// HasTargetReference reports whether the event names any entity at all.
func (e *WebhookEvent) HasTargetReference() bool {
	return e.ReservationID != "" ||
		e.BookingReference != "" ||
		e.PackPurchaseID != "" ||
		e.VisibilityOrderID != "" ||
		e.TransactionID != "" ||
		e.Reference != ""
}

// statusFromKind maps event kinds like reservation_paid, pack.refunded or
// payment.captured to a payment status. The suffix carries the verdict; the
// prefix only names the entity family. Providers disagree on the separator,
// so dots are folded into underscores first.
func statusFromKind(kind string) (enums.PaymentStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	normalized = strings.ReplaceAll(normalized, ".", "_")
	switch {
	case normalized == "":
		return "", false
	case strings.HasSuffix(normalized, "_paid"),
		strings.HasSuffix(normalized, "_payment"),
		strings.HasSuffix(normalized, "_captured"),
		normalized == "paid",
		normalized == "payment",
		normalized == "captured":
		return enums.PaymentStatusPaid, true
	case strings.HasSuffix(normalized, "_refunded"),
		strings.HasSuffix(normalized, "_refund"),
		normalized == "refunded",
		normalized == "refund":
		return enums.PaymentStatusRefunded, true
	case strings.HasSuffix(normalized, "_pending"),
		strings.HasSuffix(normalized, "_authorized"),
		normalized == "pending",
		normalized == "authorized":
		return enums.PaymentStatusPending, true
	default:
		return "", false
	}
}

// entityKindFromKind reads the entity family off an event kind prefix.
func entityKindFromKind(kind string) (enums.EntityKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	switch {
	case strings.HasPrefix(normalized, "pack"):
		return enums.EntityKindPackPurchase, true
	case strings.HasPrefix(normalized, "visibility"):
		return enums.EntityKindVisibilityOrder, true
	case strings.HasPrefix(normalized, "reservation"), strings.HasPrefix(normalized, "booking"):
		return enums.EntityKindReservation, true
	default:
		return "", false
	}
}
