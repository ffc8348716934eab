package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypePaymentReceived  NotificationType = "payment_received"
	NotificationTypePaymentRefunded  NotificationType = "payment_refunded"
	NotificationTypeBookingConfirmed NotificationType = "booking_confirmed"
	NotificationTypeSecurityAlert    NotificationType = "security_alert"
)

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypePaymentReceived,
		NotificationTypePaymentRefunded,
		NotificationTypeBookingConfirmed,
		NotificationTypeSecurityAlert:
		return true
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	typ := NotificationType(value)
	if !typ.IsValid() {
		return "", fmt.Errorf("invalid notification type %q", value)
	}
	return typ, nil
}

// NotificationAudience scopes who a notification row is addressed to.
type NotificationAudience string

const (
	AudienceEstablishmentMembers NotificationAudience = "establishment_members"
	AudienceAdmins               NotificationAudience = "admins"
	AudienceCustomer             NotificationAudience = "customer"
)

// IsValid reports whether the audience matches the canonical enum.
func (a NotificationAudience) IsValid() bool {
	switch a {
	case AudienceEstablishmentMembers, AudienceAdmins, AudienceCustomer:
		return true
	}
	return false
}

// ParseNotificationAudience converts raw strings into NotificationAudience.
func ParseNotificationAudience(value string) (NotificationAudience, error) {
	audience := NotificationAudience(value)
	if !audience.IsValid() {
		return "", fmt.Errorf("invalid notification audience %q", value)
	}
	return audience, nil
}
