package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/outbox"
	"github.com/planera-app/planera-backend/pkg/outbox/idempotency"
	"github.com/planera-app/planera-backend/pkg/outbox/payloads"
)

type stubNotificationRepo struct {
	created []*models.Notification
	err     error
}

func (s *stubNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, notification)
	return nil
}

type stubMailer struct {
	sent []MailInput
	err  error
}

func (s *stubMailer) SendTemplate(_ context.Context, input MailInput) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, input)
	return nil
}

// memoryStore gives the idempotency manager real first-seen semantics so
// replay tests exercise the actual mark lifecycle.
type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "pln:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func newTestConsumer(t *testing.T, repo repository, mailer Mailer) (*Consumer, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "notifications-test"})
	consumer, err := NewConsumer(repo, mailer, &pubsub.Subscriber{}, manager, logg)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer, store
}

func buildMessage(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "m-" + envelope.EventID,
		Attributes: map[string]string{"event_type": string(eventType)},
		Data:       raw,
	}
}

func TestConsumerCreatesNotificationRow(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{}
	consumer, _ := newTestConsumer(t, repo, &stubMailer{})

	establishmentID := uuid.New()
	entityID := uuid.New()
	msg := buildMessage(t, enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
		EstablishmentID: &establishmentID,
		Audience:        enums.AudienceEstablishmentMembers,
		Type:            enums.NotificationTypePaymentReceived,
		EntityKind:      enums.EntityKindReservation,
		EntityID:        entityID,
		Title:           "Payment received",
		Message:         "Payment received for BR-2093.",
	})

	if got := consumer.process(context.Background(), msg); got != ackMessage {
		t.Fatalf("process = %v, want ack", got)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}

	row := repo.created[0]
	if row.EstablishmentID == nil || *row.EstablishmentID != establishmentID {
		t.Fatalf("unexpected establishment id %v", row.EstablishmentID)
	}
	if row.Audience != enums.AudienceEstablishmentMembers {
		t.Fatalf("unexpected audience %s", row.Audience)
	}
	if row.Type != enums.NotificationTypePaymentReceived {
		t.Fatalf("unexpected type %s", row.Type)
	}
	if row.Title != "Payment received" {
		t.Fatalf("unexpected title %q", row.Title)
	}
	if row.Link == nil || *row.Link != "/reservations/"+entityID.String() {
		t.Fatalf("unexpected link %v", row.Link)
	}
}

func TestConsumerKeepsExplicitLink(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{}
	consumer, _ := newTestConsumer(t, repo, &stubMailer{})

	msg := buildMessage(t, enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
		Audience: enums.AudienceAdmins,
		Type:     enums.NotificationTypeSecurityAlert,
		Title:    "Suspicious payment",
		Message:  "Amount mismatch on BR-2093.",
		Link:     "/admin/security/audit",
	})

	if got := consumer.process(context.Background(), msg); got != ackMessage {
		t.Fatalf("process = %v, want ack", got)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.EstablishmentID != nil {
		t.Fatalf("admin notice should not carry an establishment id")
	}
	if row.Link == nil || *row.Link != "/admin/security/audit" {
		t.Fatalf("explicit link should win, got %v", row.Link)
	}
}

func TestConsumerSkipsForeignEventTypes(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{}
	consumer, store := newTestConsumer(t, repo, &stubMailer{})

	msg := buildMessage(t, enums.EventReservationPaid, payloads.ReservationPaymentEvent{})

	if got := consumer.process(context.Background(), msg); got != ackMessage {
		t.Fatalf("process = %v, want skip ack", got)
	}
	if len(repo.created) != 0 {
		t.Fatalf("foreign event should not create rows")
	}
	if store.size() != 0 {
		t.Fatalf("foreign event should not consume an idempotency mark")
	}
}

func TestConsumerAcksReplayedEvent(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{}
	consumer, _ := newTestConsumer(t, repo, &stubMailer{})

	establishmentID := uuid.New()
	msg := buildMessage(t, enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
		EstablishmentID: &establishmentID,
		Audience:        enums.AudienceEstablishmentMembers,
		Type:            enums.NotificationTypePaymentReceived,
		Title:           "Payment received",
		Message:         "Payment received for BR-2093.",
	})

	if first := consumer.process(context.Background(), msg); first != ackMessage {
		t.Fatalf("first delivery = %v, want ack", first)
	}
	if second := consumer.process(context.Background(), msg); second != ackMessage {
		t.Fatalf("replay = %v, want ack", second)
	}
	if len(repo.created) != 1 {
		t.Fatalf("replay must not create a second row, got %d", len(repo.created))
	}
}

func TestConsumerNacksAndReleasesMarkOnRepoError(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{err: errors.New("insert failed")}
	consumer, store := newTestConsumer(t, repo, &stubMailer{})

	establishmentID := uuid.New()
	msg := buildMessage(t, enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
		EstablishmentID: &establishmentID,
		Audience:        enums.AudienceEstablishmentMembers,
		Type:            enums.NotificationTypePaymentReceived,
		Title:           "Payment received",
		Message:         "Payment received for BR-2093.",
	})

	if got := consumer.process(context.Background(), msg); got != nackMessage {
		t.Fatalf("process = %v, want nack on repository failure", got)
	}
	if store.size() != 0 {
		t.Fatalf("failed handling must release the idempotency mark")
	}

	repo.err = nil
	if retry := consumer.process(context.Background(), msg); retry != ackMessage {
		t.Fatalf("redelivery = %v, want ack", retry)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one row after retry, got %d", len(repo.created))
	}
}

func TestConsumerRequiresEstablishmentForMemberAudience(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{}
	consumer, _ := newTestConsumer(t, repo, &stubMailer{})

	msg := buildMessage(t, enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
		Audience: enums.AudienceEstablishmentMembers,
		Type:     enums.NotificationTypePaymentReceived,
		Title:    "Payment received",
		Message:  "Payment received for BR-2093.",
	})

	if got := consumer.process(context.Background(), msg); got != nackMessage {
		t.Fatalf("process = %v, want nack for member notice without establishment", got)
	}
	if len(repo.created) != 0 {
		t.Fatalf("invalid payload must not create rows")
	}
}

func TestConsumerDispatchesEmail(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{}
	consumer, _ := newTestConsumer(t, &stubNotificationRepo{}, mailer)

	userID := uuid.New()
	msg := buildMessage(t, enums.EventEmailRequested, payloads.EmailRequestedEvent{
		UserID:   userID,
		Template: "payment_received",
		Variables: map[string]string{
			"reference":    "BR-2093",
			"amount_cents": "50000",
			"currency":     "EUR",
		},
	})

	if got := consumer.process(context.Background(), msg); got != ackMessage {
		t.Fatalf("process = %v, want ack", got)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	sent := mailer.sent[0]
	if sent.UserID != userID {
		t.Fatalf("unexpected user id %s", sent.UserID)
	}
	if sent.Template != "payment_received" {
		t.Fatalf("unexpected template %q", sent.Template)
	}
	if sent.Variables["reference"] != "BR-2093" {
		t.Fatalf("unexpected variables %v", sent.Variables)
	}
}

func TestConsumerNacksWhenMailerFails(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{err: errors.New("smtp down")}
	consumer, store := newTestConsumer(t, &stubNotificationRepo{}, mailer)

	msg := buildMessage(t, enums.EventEmailRequested, payloads.EmailRequestedEvent{
		UserID:   uuid.New(),
		Template: "payment_refunded",
	})

	if got := consumer.process(context.Background(), msg); got != nackMessage {
		t.Fatalf("process = %v, want nack on mailer failure", got)
	}
	if store.size() != 0 {
		t.Fatalf("failed send must release the idempotency mark")
	}
}

func TestConsumerAcksMalformedEnvelope(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{}
	consumer, _ := newTestConsumer(t, repo, &stubMailer{})

	msg := &pubsub.Message{
		ID:         "m-bad",
		Attributes: map[string]string{"event_type": string(enums.EventNotificationRequested)},
		Data:       []byte("not json"),
	}

	if got := consumer.process(context.Background(), msg); got != ackMessage {
		t.Fatalf("poison message = %v, want drop with ack", got)
	}
	if len(repo.created) != 0 {
		t.Fatalf("poison message must not create rows")
	}
}
