package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/outbox"
	"github.com/planera-app/planera-backend/pkg/outbox/payloads"
)

// Route binds an event type to the aggregate it belongs to and the topic
// it publishes on. newPayload allocates the typed struct the payload
// decodes into.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	newPayload func() any
}

// Publication is a fully routed and decoded outbox row, ready to hand to
// a topic publisher.
type Publication struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// PermanentError marks a failure that retrying cannot fix. The dispatcher
// dead-letters these rows instead of burning attempts on them.
type PermanentError struct {
	Cause error
}

func (e PermanentError) Error() string {
	if e.Cause == nil {
		return "permanent publish failure"
	}
	return e.Cause.Error()
}

func (e PermanentError) Unwrap() error {
	return e.Cause
}

// Permanent wraps err so the dispatcher dead-letters the row.
func Permanent(err error) PermanentError {
	return PermanentError{Cause: err}
}

// IsPermanent reports whether any error in the chain is a PermanentError.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}

// EventRegistry is the routing table for every event the publisher
// understands.
type EventRegistry struct {
	routes map[enums.OutboxEventType]Route
}

// NewEventRegistry routes payment-family events to the payments topic and
// notification plus email jobs to the notification topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.PaymentsTopic == "" {
		return nil, errors.New("payments topic is empty")
	}
	if cfg.NotificationTopic == "" {
		return nil, errors.New("notification topic is empty")
	}

	reg := &EventRegistry{routes: make(map[enums.OutboxEventType]Route)}
	for _, route := range []Route{
		{EventType: enums.EventReservationPaid, AggregateType: enums.AggregateReservation, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.ReservationPaymentEvent) }},
		{EventType: enums.EventReservationRefunded, AggregateType: enums.AggregateReservation, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.ReservationPaymentEvent) }},
		{EventType: enums.EventReservationConfirmed, AggregateType: enums.AggregateReservation, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.ReservationConfirmedEvent) }},
		{EventType: enums.EventPackPurchasePaid, AggregateType: enums.AggregatePackPurchase, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.PackPurchasePaymentEvent) }},
		{EventType: enums.EventPackPurchaseRefunded, AggregateType: enums.AggregatePackPurchase, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.PackPurchasePaymentEvent) }},
		{EventType: enums.EventVisibilityOrderPaid, AggregateType: enums.AggregateVisibilityOrder, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.VisibilityOrderPaymentEvent) }},
		{EventType: enums.EventVisibilityOrderRefunded, AggregateType: enums.AggregateVisibilityOrder, Topic: cfg.PaymentsTopic, newPayload: func() any { return new(payloads.VisibilityOrderPaymentEvent) }},
		{EventType: enums.EventNotificationRequested, AggregateType: enums.AggregateNotification, Topic: cfg.NotificationTopic, newPayload: func() any { return new(payloads.NotificationRequestedEvent) }},
		{EventType: enums.EventEmailRequested, AggregateType: enums.AggregateNotification, Topic: cfg.NotificationTopic, newPayload: func() any { return new(payloads.EmailRequestedEvent) }},
	} {
		reg.routes[route.EventType] = route
	}
	return reg, nil
}

// Resolve checks an outbox row against the routing table and decodes its
// typed payload. Every failure is permanent: a row that does not resolve
// now will not resolve on a later attempt either, so callers should
// dead-letter it rather than retry.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*Publication, error) {
	route, ok := r.routes[event.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("no route for event type %q", event.EventType))
	}
	if event.AggregateType != route.AggregateType {
		return nil, Permanent(fmt.Errorf("event %s carries aggregate %s, want %s",
			event.EventType, event.AggregateType, route.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, Permanent(errors.New("aggregate id is nil"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, Permanent(fmt.Errorf("unmarshal envelope: %w", err))
	}
	payload, err := route.decode(envelope.Data)
	if err != nil {
		return nil, Permanent(err)
	}
	return &Publication{Route: route, Envelope: envelope, Payload: payload}, nil
}

func (r Route) decode(data json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("empty payload for %s", r.EventType)
	}
	if r.newPayload == nil {
		return nil, fmt.Errorf("no payload type registered for %s", r.EventType)
	}
	target := r.newPayload()
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", r.EventType, err)
	}
	return target, nil
}
