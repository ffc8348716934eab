package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/outbox"
	"github.com/planera-app/planera-backend/pkg/outbox/registry"
)

// processBatch fetches one batch and pushes every row through the
// publish pipeline. It reports whether the batch had work in it.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	busy := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := s.store.PendingBatchTx(tx, s.batchLimit, s.maxAttempts)
		if err != nil || len(batch) == 0 {
			return err
		}
		busy = true
		for _, event := range batch {
			if err := s.publishOne(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return busy, err
}

// publishOne takes one row through resolve, publish, and bookkeeping.
// A returned error aborts the batch transaction; per-event publish
// failures are absorbed into retry or dead-letter bookkeeping and
// return nil so the rest of the batch proceeds.
func (s *Service) publishOne(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	pub, err := s.events.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, "", nil)
	}

	topic := pub.Route.Topic
	fields := s.logFields(event, pub.Envelope, topic)

	pubErr := s.send(ctx, event, pub)
	if pubErr == nil {
		if err := s.store.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(topic)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	if registry.IsPermanent(pubErr) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr, topic, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		wrapped := fmt.Errorf("max publish attempts reached: %w", pubErr)
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, wrapped, topic, fields)
	}

	s.metrics.IncFailure(topic)
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", pubErr.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	if err := s.store.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

// deadLetter copies the row to the DLQ and pins the source event
// terminal, both inside the batch transaction.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, topic string, fields map[string]any) error {
	if fields == nil {
		fields = s.logFields(event, outbox.PayloadEnvelope{}, topic)
	}
	fields["error_reason"] = reason
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(logCtx, "outbox event dead lettered")

	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  errText(cause),
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.store.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered()
	return nil
}

func errText(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

// send pushes the envelope bytes to the resolved topic. The payload
// column goes out verbatim; routing metadata rides in attributes so
// consumers can filter without decoding.
func (s *Service) send(ctx context.Context, event models.OutboxEvent, pub *registry.Publication) error {
	topic := pub.Route.Topic
	sender := s.publishers(topic)
	if sender == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	handle := sender.Publish(sendCtx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: routingAttributes(event, pub),
	})
	if handle == nil {
		return registry.Permanent(fmt.Errorf("nil publish handle for topic %s", topic))
	}
	_, err := handle.Get(sendCtx)
	return err
}

func routingAttributes(event models.OutboxEvent, pub *registry.Publication) map[string]string {
	return map[string]string{
		"event_id":       pub.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Service) logFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchLimit,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// livePublisher adapts the concrete Pub/Sub publisher to the seam the
// service tests against.
func livePublisher(p *gcppubsub.Publisher) messagePublisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{topic: p}
}

type gcpPublisher struct {
	topic *gcppubsub.Publisher
}

func (g *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishHandle {
	if g == nil || g.topic == nil {
		return nil
	}
	return gcpPublishHandle{res: g.topic.Publish(ctx, msg)}
}

type gcpPublishHandle struct {
	res *gcppubsub.PublishResult
}

func (h gcpPublishHandle) Get(ctx context.Context) (string, error) {
	if h.res == nil {
		return "", errors.New("nil publish result")
	}
	return h.res.Get(ctx)
}
