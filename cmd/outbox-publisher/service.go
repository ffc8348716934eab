package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/metrics"
	"github.com/planera-app/planera-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackMaxAttempts = 10
	fallbackPollEvery   = 500 * time.Millisecond
	publishTimeout      = 15 * time.Second
	backoffCap          = 10 * time.Second
	jitterSpan          = 250 * time.Millisecond
)

// The seams below let tests drive the publish loop with fakes. The
// production wiring in main.go satisfies them with pkg/db, pkg/pubsub,
// and pkg/outbox types.

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type broker interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	PendingBatchTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.Publication, error)
}

type publisherFor func(topic string) messagePublisher

type messagePublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishHandle
}

type publishHandle interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         txRunner
	PubSub     broker
	Outbox     outboxStore
	Events     eventResolver
	DLQ        deadLetterStore
	Publishers publisherFor
	Metrics    *metrics.OutboxMetrics
}

func (p ServiceParams) validate() error {
	required := []struct {
		ok   bool
		name string
	}{
		{p.Config != nil, "config"},
		{p.Logger != nil, "logger"},
		{p.DB != nil, "database client"},
		{p.PubSub != nil, "pubsub client"},
		{p.Outbox != nil, "outbox store"},
		{p.Events != nil, "event resolver"},
		{p.DLQ != nil, "dead letter store"},
	}
	for _, req := range required {
		if !req.ok {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	return nil
}

// Service drains outbox_events to Pub/Sub in batches. Each batch runs
// inside one transaction: marks commit together, and a mark failure
// rolls the whole batch back for the next poll to pick up.
type Service struct {
	cfg         *config.Config
	logg        *logger.Logger
	db          txRunner
	store       outboxStore
	pubsub      broker
	events      eventResolver
	dlq         deadLetterStore
	metrics     *metrics.OutboxMetrics
	publishers  publisherFor
	batchLimit  int
	maxAttempts int
	pollEvery   time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	publishers := params.Publishers
	if publishers == nil {
		publishers = func(topic string) messagePublisher {
			return livePublisher(params.PubSub.Publisher(topic))
		}
	}

	pollEvery := fallbackPollEvery
	if ms := params.Config.Outbox.PollIntervalMS; ms > 0 {
		pollEvery = time.Duration(ms) * time.Millisecond
	}

	return &Service{
		cfg:         params.Config,
		logg:        params.Logger,
		db:          params.DB,
		store:       params.Outbox,
		pubsub:      params.PubSub,
		events:      params.Events,
		dlq:         params.DLQ,
		metrics:     params.Metrics,
		publishers:  publishers,
		batchLimit:  orDefault(params.Config.Outbox.BatchSize, fallbackBatchSize),
		maxAttempts: orDefault(params.Config.Outbox.MaxAttempts, fallbackMaxAttempts),
		pollEvery:   pollEvery,
	}, nil
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func (s *Service) checkConnections(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		s.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// Run polls until the context is canceled. A busy batch rolls straight
// into the next poll; an idle poll sleeps one jittered interval; batch
// errors back off exponentially up to backoffCap.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.checkConnections(ctx); err != nil {
		return err
	}

	idle := s.pollEvery
	if idle <= 0 {
		idle = fallbackPollEvery
	}
	delay := idle

	for ctx.Err() == nil {
		busy, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			delay = doubleCapped(delay, backoffCap)
			if err := s.pause(ctx, jittered(delay)); err != nil {
				return err
			}
		case busy:
			delay = idle
		default:
			delay = idle
			if err := s.pause(ctx, jittered(idle)); err != nil {
				return err
			}
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

func (s *Service) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func doubleCapped(current, limit time.Duration) time.Duration {
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int63n(int64(jitterSpan)))
}
