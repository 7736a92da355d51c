package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Settlement outcomes reported on kartly_settlement_total.
const (
	OutcomeCommitted = "committed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// SettlementMetrics tracks the checkout pipeline from session creation to commit.
type SettlementMetrics struct {
	sessions          *prometheus.CounterVec
	settlements       *prometheus.CounterVec
	signatureFailures prometheus.Counter
	priceDrift        prometheus.Counter
	duration          prometheus.Histogram
}

// NewSettlementMetrics registers the checkout metrics on reg. A nil registerer
// yields a collector whose methods are no-ops.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	m := &SettlementMetrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kartly_payment_sessions_total",
			Help: "Payment sessions requested from the gateway, by result.",
		}, []string{"result"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kartly_settlement_total",
			Help: "Settlement attempts by outcome and error code.",
		}, []string{"outcome", "code"}),
		signatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kartly_settlement_signature_failures_total",
			Help: "Payment receipts rejected for an invalid gateway signature.",
		}),
		priceDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kartly_settlement_price_drift_total",
			Help: "Settlements whose recomputed total differed from the session amount.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kartly_settlement_duration_seconds",
			Help:    "Time spent settling a payment receipt.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.sessions, m.settlements, m.signatureFailures, m.priceDrift, m.duration)
	return m
}

// IncSession records a session creation attempt by result, e.g. "created"
// or "gateway_error".
func (m *SettlementMetrics) IncSession(result string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncSettlement records one settlement outcome.
func (m *SettlementMetrics) IncSettlement(outcome, code string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome), normalizeLabel(code)).Inc()
}

func (m *SettlementMetrics) IncSignatureFailure() {
	if m == nil || m.signatureFailures == nil {
		return
	}
	m.signatureFailures.Inc()
}

func (m *SettlementMetrics) IncPriceDrift() {
	if m == nil || m.priceDrift == nil {
		return
	}
	m.priceDrift.Inc()
}

// ObserveDuration records how long a settlement took.
func (m *SettlementMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
