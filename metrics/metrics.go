package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the punishment engine. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Punishments persisted and lifted, by type
	Created *prometheus.CounterVec
	Lifted  *prometheus.CounterVec

	// Apply/announce failures by stage: "apply", "announce", "gate"
	EnforcementFailures *prometheus.CounterVec

	// Placeholders that fell back to ""
	PlaceholderFallbacks prometheus.Counter

	// Tasks refused by the worker pool
	PoolRejections prometheus.Counter

	// Store round trips by operation
	StoreLatency *prometheus.HistogramVec
}

// New registers the punishment metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "punish_bot_punishments_created_total",
			Help: "Total punishments created by type",
		}, []string{"type"}),

		Lifted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "punish_bot_punishments_lifted_total",
			Help: "Total punishments lifted by type",
		}, []string{"type"}),

		EnforcementFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "punish_bot_enforcement_failures_total",
			Help: "Failures while applying or announcing punishments by stage",
		}, []string{"stage"}),

		PlaceholderFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "punish_bot_placeholder_fallbacks_total",
			Help: "Message placeholders that failed to resolve and rendered empty",
		}),

		PoolRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "punish_bot_pool_rejections_total",
			Help: "Tasks rejected because the worker pool was full or closed",
		}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "punish_bot_store_duration_seconds",
			Help:    "Duration of punishment store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
	}
}

func (m *Metrics) IncrementCreated(typ string) {
	if m != nil {
		m.Created.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) IncrementLifted(typ string) {
	if m != nil {
		m.Lifted.WithLabelValues(typ).Inc()
	}
}

// IncrementEnforcementFailure records a failed apply, announce or gate check.
func (m *Metrics) IncrementEnforcementFailure(stage string) {
	if m != nil {
		m.EnforcementFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) IncrementPlaceholderFallback() {
	if m != nil {
		m.PlaceholderFallbacks.Inc()
	}
}

func (m *Metrics) IncrementPoolRejection() {
	if m != nil {
		m.PoolRejections.Inc()
	}
}

// ObserveStoreLatency records how long a store operation took.
func (m *Metrics) ObserveStoreLatency(op string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}
