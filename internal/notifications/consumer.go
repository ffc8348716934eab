package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/outbox"
	"github.com/planera-app/planera-backend/pkg/outbox/idempotency"
	"github.com/planera-app/planera-backend/pkg/outbox/payloads"
	"github.com/planera-app/planera-backend/pkg/outbox/registry"
)

const paymentNotificationConsumer = "payment-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches the notification topic and turns requested events into
// in-app notification rows and transactional email sends.
type Consumer struct {
	repo         repository
	mailer       Mailer
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the payment notification consumer.
func NewConsumer(repo repository, mailer Mailer, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("repository is nil")
	case mailer == nil:
		return nil, fmt.Errorf("mailer is nil")
	case subscription == nil:
		return nil, fmt.Errorf("subscription is nil")
	case manager == nil:
		return nil, fmt.Errorf("idempotency manager is nil")
	case logg == nil:
		return nil, fmt.Errorf("logger is nil")
	}
	return &Consumer{
		repo:         repo,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newPayloadDecoders(),
		logg:         logg,
	}, nil
}

// newPayloadDecoders registers the payload schema for each event and
// envelope version this consumer understands.
func newPayloadDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventNotificationRequested, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse notification payload: %w", err)
		}
		return &payload, nil
	})
	reg.Register(enums.EventEmailRequested, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.EmailRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse email payload: %w", err)
		}
		return &payload, nil
	})
	return reg
}

// ackAction is what process decided to do with a delivery. Poison
// messages ack so the broker stops redelivering them; transient
// failures nack for another attempt.
type ackAction int

const (
	ackMessage ackAction = iota
	nackMessage
)

func (a ackAction) String() string {
	if a == nackMessage {
		return "nack"
	}
	return "ack"
}

// Run consumes the subscription until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == nackMessage {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) ackAction {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !c.handles(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return ackMessage
	}

	envelope, eventID, err := parseEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "message envelope rejected", err)
		return ackMessage
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, paymentNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency lookup failed", err)
		return nackMessage
	}
	if already {
		c.logg.Info(logCtx, "duplicate delivery skipped")
		return ackMessage
	}

	if err := c.dispatch(logCtx, eventType, envelope); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, paymentNotificationConsumer, eventID)
		return nackMessage
	}
	return ackMessage
}

func (c *Consumer) handles(eventType string) bool {
	return eventType == string(enums.EventNotificationRequested) ||
		eventType == string(enums.EventEmailRequested)
}

// parseEnvelope decodes the outbox envelope and its event id. Failures
// here are poison input, never transient.
func parseEnvelope(data []byte) (outbox.PayloadEnvelope, uuid.UUID, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return envelope, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return envelope, uuid.Nil, fmt.Errorf("parse event id: %w", err)
	}
	return envelope, eventID, nil
}

func (c *Consumer) dispatch(ctx context.Context, eventType string, envelope outbox.PayloadEnvelope) error {
	decoded, err := c.decoders.Decode(enums.OutboxEventType(eventType), envelope.Version, envelope.Data)
	if err != nil {
		return err
	}
	switch payload := decoded.(type) {
	case *payloads.NotificationRequestedEvent:
		return c.createNotification(ctx, *payload)
	case *payloads.EmailRequestedEvent:
		return c.sendEmail(ctx, *payload)
	default:
		return fmt.Errorf("no handler for %s", eventType)
	}
}

func (c *Consumer) createNotification(ctx context.Context, payload payloads.NotificationRequestedEvent) error {
	if payload.Audience == enums.AudienceEstablishmentMembers {
		if payload.EstablishmentID == nil || *payload.EstablishmentID == uuid.Nil {
			return fmt.Errorf("establishment id missing")
		}
	}

	link := strings.TrimSpace(payload.Link)
	if link == "" {
		link = entityLink(payload.EntityKind, payload.EntityID)
	}

	notification := &models.Notification{
		EstablishmentID: payload.EstablishmentID,
		Audience:        payload.Audience,
		Type:            payload.Type,
		Title:           strings.TrimSpace(payload.Title),
		Message:         strings.TrimSpace(payload.Message),
	}
	if link != "" {
		notification.Link = &link
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"audience":  payload.Audience,
		"type":      payload.Type,
		"entity_id": payload.EntityID.String(),
	})
	c.logg.Info(logCtx, "notification created")
	return nil
}

func (c *Consumer) sendEmail(ctx context.Context, payload payloads.EmailRequestedEvent) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	if strings.TrimSpace(payload.Template) == "" {
		return fmt.Errorf("email template missing")
	}

	if err := c.mailer.SendTemplate(ctx, MailInput{
		UserID:    payload.UserID,
		Template:  payload.Template,
		Variables: payload.Variables,
	}); err != nil {
		return err
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"user_id":  payload.UserID.String(),
		"template": payload.Template,
	})
	c.logg.Info(logCtx, "email dispatched")
	return nil
}

func entityLink(kind enums.EntityKind, id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	switch kind {
	case enums.EntityKindReservation:
		return fmt.Sprintf("/reservations/%s", id)
	case enums.EntityKindPackPurchase:
		return fmt.Sprintf("/packs/purchases/%s", id)
	case enums.EntityKindVisibilityOrder:
		return fmt.Sprintf("/visibility/orders/%s", id)
	default:
		return ""
	}
}
