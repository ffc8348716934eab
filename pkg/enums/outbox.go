package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateReservation     OutboxAggregateType = "reservation"
	AggregatePackPurchase    OutboxAggregateType = "pack_purchase"
	AggregateVisibilityOrder OutboxAggregateType = "visibility_order"
	AggregateNotification    OutboxAggregateType = "notification"
)

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateReservation, AggregatePackPurchase, AggregateVisibilityOrder, AggregateNotification:
		return true
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	aggregate := OutboxAggregateType(value)
	if !aggregate.IsValid() {
		return "", fmt.Errorf("invalid aggregate type %q", value)
	}
	return aggregate, nil
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventReservationPaid      OutboxEventType = "reservation_paid"
	EventReservationRefunded  OutboxEventType = "reservation_refunded"
	EventReservationConfirmed OutboxEventType = "reservation_confirmed"

	EventPackPurchasePaid     OutboxEventType = "pack_purchase_paid"
	EventPackPurchaseRefunded OutboxEventType = "pack_purchase_refunded"

	EventVisibilityOrderPaid     OutboxEventType = "visibility_order_paid"
	EventVisibilityOrderRefunded OutboxEventType = "visibility_order_refunded"

	EventNotificationRequested OutboxEventType = "notification_requested"
	EventEmailRequested        OutboxEventType = "email_requested"
)

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventReservationPaid,
		EventReservationRefunded,
		EventReservationConfirmed,
		EventPackPurchasePaid,
		EventPackPurchaseRefunded,
		EventVisibilityOrderPaid,
		EventVisibilityOrderRefunded,
		EventNotificationRequested,
		EventEmailRequested:
		return true
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	eventType := OutboxEventType(value)
	if !eventType.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return eventType, nil
}
