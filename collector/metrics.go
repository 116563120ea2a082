package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the collector.
type Metrics struct {
	Registry            *prometheus.Registry
	InvocationsTotal    *prometheus.CounterVec
	InvocationDuration  *prometheus.HistogramVec
	ItemsCollectedTotal prometheus.Counter
	ItemsFailedTotal    prometheus.Counter
	RetriesTotal        prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
	InflightDetails     prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	invocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_invocations_total",
			Help: "Total agent invocations issued by the collector.",
		},
		[]string{"phase"},
	)
	invocationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_invocation_duration_seconds",
			Help:    "Agent invocation latency by phase.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"phase"},
	)
	itemsCollected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_items_collected_total",
			Help: "Total number of posts whose detail was extracted.",
		},
	)
	itemsFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_items_failed_total",
			Help: "Total number of posts recorded as error placeholders.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_errors_total",
			Help: "Total number of collector errors by type.",
		},
		[]string{"error_type"},
	)
	inflight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "collector_inflight_details",
			Help: "Detail extractions currently running.",
		},
	)

	registry.MustRegister(invocations, invocationDuration, itemsCollected, itemsFailed, retries, errorsTotal, inflight)

	return &Metrics{
		Registry:            registry,
		InvocationsTotal:    invocations,
		InvocationDuration:  invocationDuration,
		ItemsCollectedTotal: itemsCollected,
		ItemsFailedTotal:    itemsFailed,
		RetriesTotal:        retries,
		ErrorsTotal:         errorsTotal,
		InflightDetails:     inflight,
	}
}

// IncInvocation increments the invocations counter for a phase.
func (m *Metrics) IncInvocation(phase string) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an invocation duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.InvocationDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncCollected increments the collected items counter.
func (m *Metrics) IncCollected() {
	if m == nil {
		return
	}
	m.ItemsCollectedTotal.Inc()
}

// IncFailed increments the failed items counter.
func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	m.ItemsFailedTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// DetailStarted and DetailFinished track in-flight detail extractions.
func (m *Metrics) DetailStarted() {
	if m == nil {
		return
	}
	m.InflightDetails.Inc()
}

func (m *Metrics) DetailFinished() {
	if m == nil {
		return
	}
	m.InflightDetails.Dec()
}
