package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics reports the publisher loop.
type OutboxMetrics struct {
	batchDuration prometheus.Histogram
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
}

// NewOutboxMetrics registers the publisher metrics on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kartly_outbox_batch_duration_seconds",
			Help:    "Duration of one outbox publish batch.",
			Buckets: prometheus.DefBuckets,
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kartly_outbox_published_total",
			Help: "Outbox events published, by event type.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kartly_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed and will be retried.",
		}, []string{"event_type"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kartly_outbox_dead_lettered_total",
			Help: "Outbox events moved to the dead letter table.",
		}, []string{"event_type"}),
	}
	reg.MustRegister(m.batchDuration, m.published, m.failed, m.deadLettered)
	return m
}

func (m *OutboxMetrics) ObserveBatch(d time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(eventType string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(eventType)).Inc()
}
