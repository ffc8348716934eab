package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
)

// ReservationPaymentEvent is emitted when a provider webhook moves a
// reservation's payment status. The same shape serves paid and refunded.
type ReservationPaymentEvent struct {
	ReservationID    uuid.UUID           `json:"reservationId"`
	BookingReference string              `json:"bookingReference"`
	EstablishmentID  uuid.UUID           `json:"establishmentId"`
	UserID           uuid.UUID           `json:"userId"`
	Provider         string              `json:"provider"`
	PaymentEventID   string              `json:"paymentEventId"`
	TransactionID    string              `json:"transactionId,omitempty"`
	PaymentStatus    enums.PaymentStatus `json:"paymentStatus"`
	AmountCents      int64               `json:"amountCents"`
	Currency         string              `json:"currency"`
}

// ReservationConfirmedEvent is emitted when auto-confirmation promotes a
// booking after its deposit settles.
type ReservationConfirmedEvent struct {
	ReservationID    uuid.UUID  `json:"reservationId"`
	BookingReference string     `json:"bookingReference"`
	EstablishmentID  uuid.UUID  `json:"establishmentId"`
	UserID           uuid.UUID  `json:"userId"`
	SlotID           *uuid.UUID `json:"slotId,omitempty"`
	PartySize        int        `json:"partySize"`
	ConfirmedAt      time.Time  `json:"confirmedAt"`
}

// PackPurchasePaymentEvent mirrors ReservationPaymentEvent for pack purchases.
type PackPurchasePaymentEvent struct {
	PackPurchaseID  uuid.UUID           `json:"packPurchaseId"`
	PackID          uuid.UUID           `json:"packId"`
	EstablishmentID uuid.UUID           `json:"establishmentId"`
	UserID          uuid.UUID           `json:"userId"`
	Provider        string              `json:"provider"`
	PaymentEventID  string              `json:"paymentEventId"`
	TransactionID   string              `json:"transactionId,omitempty"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	AmountCents     int64               `json:"amountCents"`
	Currency        string              `json:"currency"`
}

// VisibilityOrderPaymentEvent covers paid and refunded visibility orders.
type VisibilityOrderPaymentEvent struct {
	VisibilityOrderID uuid.UUID           `json:"visibilityOrderId"`
	EstablishmentID   uuid.UUID           `json:"establishmentId"`
	Provider          string              `json:"provider"`
	PaymentEventID    string              `json:"paymentEventId"`
	TransactionID     string              `json:"transactionId,omitempty"`
	PaymentStatus     enums.PaymentStatus `json:"paymentStatus"`
	AmountCents       int64               `json:"amountCents"`
	Currency          string              `json:"currency"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
}

// NotificationRequestedEvent asks the notification worker to create an
// in-app notification row. EstablishmentID is nil for admin-wide notices.
type NotificationRequestedEvent struct {
	EstablishmentID *uuid.UUID                 `json:"establishmentId,omitempty"`
	Audience        enums.NotificationAudience `json:"audience"`
	Type            enums.NotificationType     `json:"type"`
	EntityKind      enums.EntityKind           `json:"entityKind"`
	EntityID        uuid.UUID                  `json:"entityId"`
	Title           string                     `json:"title"`
	Message         string                     `json:"message"`
	Link            string                     `json:"link,omitempty"`
}

// EmailRequestedEvent asks the notification worker to send a templated email.
// Address resolution is the mailer's job; the payload only names the user.
type EmailRequestedEvent struct {
	UserID    uuid.UUID         `json:"userId"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables,omitempty"`
}
