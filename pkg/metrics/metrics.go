package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "rxmux"

// Packet outcomes recorded in rxmux_packets_total.
const (
	OutcomeForwarded = "forwarded"
	OutcomeAbsorbed  = "absorbed"
	OutcomeRejected  = "rejected"
	OutcomeResponded = "responded"
	OutcomeSkipped   = "skipped"
	OutcomeJoined    = "joined"
)

// DefaultBuckets are the histogram buckets for request durations (in seconds).
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds the collectors recorded by the dispatcher and the operators.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PacketsTotal    *prometheus.CounterVec
	StreamErrors    *prometheus.CounterVec
	TimeoutsTotal   prometheus.Counter
	JoinPending     prometheus.Gauge
	PipelinesActive *prometheus.GaugeVec
}

// NewRegistry creates a Prometheus registry with the Go runtime and process
// collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates the rxmux collectors and registers them on reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "Total number of requests served by the dispatcher.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of dispatched requests in seconds.",
			Buckets:   DefaultBuckets,
		}, []string{"method", "route"}),
		PacketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "packets_total",
			Help:      "Packets observed by pipeline operators, by outcome.",
		}, []string{"operator", "outcome"}),
		StreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stream_errors_total",
			Help:      "Errors that terminated a packet stream.",
		}, []string{"operator"}),
		TimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "timeouts_total",
			Help:      "Requests auto-answered by the timeout race.",
		}),
		JoinPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "join_pending",
			Help:      "Join correlation entries waiting for branches.",
		}),
		PipelinesActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pipelines_active",
			Help:      "Route registrations with at least one subscribed pipeline.",
		}, []string{"route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.PacketsTotal,
			m.StreamErrors,
			m.TimeoutsTotal,
			m.JoinPending,
			m.PipelinesActive,
		)
	}
	return m
}

// Handler returns an http.Handler that serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var current atomic.Pointer[Metrics]

// Use installs m as the process-wide metrics sink. Passing nil disables
// recording.
func Use(m *Metrics) {
	current.Store(m)
}

// Current returns the installed metrics, or nil.
func Current() *Metrics {
	return current.Load()
}

// ObserveRequest records one dispatched request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Packet records what an operator did with one packet.
func (m *Metrics) Packet(operator, outcome string) {
	if m == nil {
		return
	}
	m.PacketsTotal.WithLabelValues(operator, outcome).Inc()
}

// StreamError records an error that terminated a stream at operator.
func (m *Metrics) StreamError(operator string) {
	if m == nil {
		return
	}
	m.StreamErrors.WithLabelValues(operator).Inc()
}

// Timeout records one timeout auto-response.
func (m *Metrics) Timeout() {
	if m == nil {
		return
	}
	m.TimeoutsTotal.Inc()
}

// JoinPendingAdd moves the join_pending gauge by delta.
func (m *Metrics) JoinPendingAdd(delta float64) {
	if m == nil {
		return
	}
	m.JoinPending.Add(delta)
}

// PipelineActive marks a route registration as observed (true) or idle.
func (m *Metrics) PipelineActive(route string, active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	m.PipelinesActive.WithLabelValues(route).Set(v)
}
