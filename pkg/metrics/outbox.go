package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics records publisher worker activity.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	deadLettered prometheus.Counter
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events delivered to Pub/Sub by topic.",
	}, []string{"topic"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed by topic.",
	}, []string{"topic"})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dead_lettered_total",
		Help: "Outbox events moved to the dead letter table.",
	})
	reg.MustRegister(published, failures, deadLettered)
	return &OutboxMetrics{
		published:    published,
		failures:     failures,
		deadLettered: deadLettered,
	}
}

// IncPublished counts one delivered event for the topic.
func (o *OutboxMetrics) IncPublished(topic string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailure counts one failed publish attempt for the topic.
func (o *OutboxMetrics) IncFailure(topic string) {
	if o == nil || o.failures == nil {
		return
	}
	o.failures.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncDeadLettered counts one event parked in the DLQ.
func (o *OutboxMetrics) IncDeadLettered() {
	if o == nil || o.deadLettered == nil {
		return
	}
	o.deadLettered.Inc()
}
