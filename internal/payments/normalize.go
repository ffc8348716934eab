package payments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/planera-app/planera-backend/pkg/enums"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
)

// Labels the reconciliation flow exposes on rejections. The API layer turns
// them into the error field of the response body.
const (
	LabelBadPayload       = "bad_payload"
	LabelMissingReference = "missing_reference"
	LabelAmountMismatch   = "amount_mismatch"
	LabelInternalError    = "internal_error"
)

// unifiedPayload is the canonical shape providers can post directly.
type unifiedPayload struct {
	EventID           string     `json:"event_id" validate:"omitempty,max=128"`
	Kind              string     `json:"kind" validate:"omitempty,max=64"`
	Provider          string     `json:"provider" validate:"omitempty,max=64"`
	ReservationID     string     `json:"reservation_id" validate:"omitempty,max=128"`
	BookingReference  string     `json:"booking_reference" validate:"omitempty,max=128"`
	PackPurchaseID    string     `json:"pack_purchase_id" validate:"omitempty,max=128"`
	VisibilityOrderID string     `json:"visibility_order_id" validate:"omitempty,max=128"`
	TransactionID     string     `json:"transaction_id" validate:"omitempty,max=128"`
	Reference         string     `json:"reference" validate:"omitempty,max=128"`
	PaymentStatus     string     `json:"payment_status" validate:"omitempty,max=32"`
	AmountTotalCents  *int64     `json:"amount_total_cents" validate:"omitempty,gte=0"`
	Currency          string     `json:"currency" validate:"omitempty,alpha,len=3"`
	PaidAt            *time.Time `json:"paid_at"`
}

// trim canonicalizes whitespace before validation so padded fields do not
// trip structural rules.
func (p *unifiedPayload) trim() {
	p.EventID = strings.TrimSpace(p.EventID)
	p.Kind = strings.TrimSpace(p.Kind)
	p.Provider = strings.TrimSpace(p.Provider)
	p.ReservationID = strings.TrimSpace(p.ReservationID)
	p.BookingReference = strings.TrimSpace(p.BookingReference)
	p.PackPurchaseID = strings.TrimSpace(p.PackPurchaseID)
	p.VisibilityOrderID = strings.TrimSpace(p.VisibilityOrderID)
	p.TransactionID = strings.TrimSpace(p.TransactionID)
	p.Reference = strings.TrimSpace(p.Reference)
	p.PaymentStatus = strings.TrimSpace(p.PaymentStatus)
	p.Currency = strings.TrimSpace(p.Currency)
}

// stancerEnvelope is the notification shape Stancer posts: an event wrapper
// around a payment object whose order_id carries our reference.
type stancerEnvelope struct {
	ID      string          `json:"id" validate:"omitempty,max=128"`
	Type    string          `json:"type" validate:"omitempty,max=64"`
	Created int64           `json:"created"`
	Payment *stancerPayment `json:"payment"`
}

type stancerPayment struct {
	ID       string `json:"id" validate:"omitempty,max=128"`
	OrderID  string `json:"order_id" validate:"omitempty,max=128"`
	Amount   *int64 `json:"amount" validate:"omitempty,gte=0"`
	Currency string `json:"currency" validate:"omitempty,alpha,len=3"`
	Status   string `json:"status"`
	Created  int64  `json:"created"`
}

// Normalize converts a raw webhook body into the canonical WebhookEvent.
// The presence of a top-level payment object selects the Stancer schema;
// everything else is parsed as the unified schema.
func Normalize(body []byte) (*WebhookEvent, error) {
	var probe struct {
		Payment json.RawMessage `json:"payment"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, badPayload("payload is not a JSON object")
	}
	if len(probe.Payment) > 0 && string(probe.Payment) != "null" {
		return normalizeStancer(body)
	}
	return normalizeUnified(body)
}

func normalizeUnified(body []byte) (*WebhookEvent, error) {
	var payload unifiedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, badPayload("payload is not a JSON object")
	}
	payload.trim()
	if err := validatePayload(&payload); err != nil {
		return nil, err
	}

	event := &WebhookEvent{
		EventID:           payload.EventID,
		Provider:          payload.Provider,
		Kind:              payload.Kind,
		ReservationID:     payload.ReservationID,
		BookingReference:  payload.BookingReference,
		PackPurchaseID:    payload.PackPurchaseID,
		VisibilityOrderID: payload.VisibilityOrderID,
		TransactionID:     payload.TransactionID,
		Reference:         payload.Reference,
		AmountTotalCents:  payload.AmountTotalCents,
		Currency:          payload.Currency,
		PaidAt:            payload.PaidAt,
	}
	if event.Provider == "" {
		event.Provider = ProviderUnified
	}

	if payload.PaymentStatus != "" {
		status, err := enums.ParsePaymentStatus(payload.PaymentStatus)
		if err != nil {
			return nil, badPayload("unknown payment_status " + payload.PaymentStatus)
		}
		event.PaymentStatus = status
	}
	if _, ok := event.ResolvedStatus(); !ok {
		return nil, badPayload("event carries neither a payment_status nor a mappable kind")
	}
	return event, nil
}

func normalizeStancer(body []byte) (*WebhookEvent, error) {
	var envelope stancerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, badPayload("payload is not a JSON object")
	}
	if err := validatePayload(&envelope); err != nil {
		return nil, err
	}
	payment := envelope.Payment
	if payment == nil {
		return nil, badPayload("stancer event has no payment object")
	}

	status, ok := stancerStatus(payment.Status)
	if !ok {
		return nil, badPayload("unknown stancer payment status " + payment.Status)
	}

	event := &WebhookEvent{
		EventID:          strings.TrimSpace(envelope.ID),
		Provider:         ProviderStancer,
		Kind:             strings.TrimSpace(envelope.Type),
		TransactionID:    strings.TrimSpace(payment.ID),
		PaymentStatus:    status,
		AmountTotalCents: payment.Amount,
		Currency:         strings.TrimSpace(payment.Currency),
	}

	// order_id carries the reference our checkout handed to Stancer. The
	// BR-/PK-/VO- prefixes identify the entity family; anything else is
	// probed across kinds by the resolver.
	orderID := strings.TrimSpace(payment.OrderID)
	switch {
	case strings.HasPrefix(orderID, "BR-"):
		event.BookingReference = orderID
	case strings.HasPrefix(orderID, "PK-"):
		event.PackPurchaseID = orderID
	case strings.HasPrefix(orderID, "VO-"):
		event.VisibilityOrderID = orderID
	case orderID != "":
		event.Reference = orderID
	}

	if status == enums.PaymentStatusPaid {
		stamp := payment.Created
		if stamp == 0 {
			stamp = envelope.Created
		}
		if stamp > 0 {
			paidAt := time.Unix(stamp, 0).UTC()
			event.PaidAt = &paidAt
		}
	}
	return event, nil
}

// stancerStatus maps Stancer's payment status enum onto ours. Captured means
// the money moved; authorized funds are still pending capture.
func stancerStatus(raw string) (enums.PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "captured", "to_capture", "paid":
		return enums.PaymentStatusPaid, true
	case "refunded":
		return enums.PaymentStatusRefunded, true
	case "authorized", "pending", "created":
		return enums.PaymentStatusPending, true
	default:
		return "", false
	}
}

func badPayload(message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "payments: "+message).WithLabel(LabelBadPayload)
}
