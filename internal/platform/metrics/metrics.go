package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation engine.
// Tracks match proposal/approval volumes and auto-match run durations.
type Metrics struct {
	MatchesProposed   *prometheus.CounterVec
	MatchesApproved   prometheus.Counter
	MatchesRejected   prometheus.Counter
	ExceptionsOpened  *prometheus.CounterVec
	ClaimConflicts    prometheus.Counter
	AutoMatchDuration prometheus.Histogram
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a Metrics instance registered with the given registerer.
// Tests pass a fresh registry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatchesProposed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recon_matches_proposed_total",
			Help: "Total number of pending match records created, by rule",
		}, []string{"rule"}),
		MatchesApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "recon_matches_approved_total",
			Help: "Total number of match records approved",
		}),
		MatchesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "recon_matches_rejected_total",
			Help: "Total number of match records rejected",
		}),
		ExceptionsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recon_exceptions_opened_total",
			Help: "Total number of exceptions opened, by type",
		}, []string{"type"}),
		ClaimConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "recon_claim_conflicts_total",
			Help: "Total number of concurrent claim conflicts observed",
		}),
		AutoMatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recon_auto_match_duration_seconds",
			Help:    "Duration of RunAutoMatch invocations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementMatchProposed records a pending match created by the given rule.
func (m *Metrics) IncrementMatchProposed(rule string) {
	m.MatchesProposed.WithLabelValues(rule).Inc()
}

// IncrementExceptionOpened records a new exception of the given type.
func (m *Metrics) IncrementExceptionOpened(excType string) {
	m.ExceptionsOpened.WithLabelValues(excType).Inc()
}

// ObserveAutoMatch records the duration of an auto-match run.
// Call with time.Now() taken at the start of the run.
func (m *Metrics) ObserveAutoMatch(start time.Time) {
	m.AutoMatchDuration.Observe(time.Since(start).Seconds())
}
