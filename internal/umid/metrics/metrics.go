package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the credential subsystem.
type Metrics struct {
	IdentitiesIssued    prometheus.Counter
	AuthAttempts        *prometheus.CounterVec
	LockoutsTriggered   prometheus.Counter
	EmergencyOverrides  prometheus.Counter
	LedgerAppendSeconds prometheus.Histogram
}

// New creates and registers all credential metrics.
func New() *Metrics {
	return &Metrics{
		IdentitiesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umid_identities_issued_total",
			Help: "Total number of medical identity credentials issued",
		}),
		AuthAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "umid_auth_attempts_total",
			Help: "Total authentication attempts by outcome and failure reason",
		}, []string{"outcome", "reason"}),
		LockoutsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umid_lockouts_triggered_total",
			Help: "Total number of lockouts entered after repeated invalid codes",
		}),
		EmergencyOverrides: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umid_emergency_overrides_total",
			Help: "Total number of successful emergency override accesses",
		}),
		LedgerAppendSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "umid_ledger_append_duration_seconds",
			Help:    "Latency of access ledger appends",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementIssued increments the issued credentials counter by 1.
func (m *Metrics) IncrementIssued() {
	m.IdentitiesIssued.Inc()
}

// RecordAttempt counts one authentication attempt. Reason is empty on success.
func (m *Metrics) RecordAttempt(outcome, reason string) {
	m.AuthAttempts.WithLabelValues(outcome, reason).Inc()
}

// IncrementLockouts increments the lockout counter by 1.
func (m *Metrics) IncrementLockouts() {
	m.LockoutsTriggered.Inc()
}

// IncrementEmergencyOverrides increments the override counter by 1.
func (m *Metrics) IncrementEmergencyOverrides() {
	m.EmergencyOverrides.Inc()
}

// ObserveLedgerAppend records one ledger append latency in seconds.
func (m *Metrics) ObserveLedgerAppend(seconds float64) {
	m.LedgerAppendSeconds.Observe(seconds)
}
