// Package metrics provides Prometheus metrics for rxmux pipelines.
//
// The metrics are plain client_golang collectors grouped in a Metrics value
// and registered on a caller-supplied registry:
//
//   - rxmux_requests_total: requests served by the dispatcher (labels: method, route, status)
//   - rxmux_request_duration_seconds: dispatcher latency histogram (labels: method, route)
//   - rxmux_packets_total: packets seen by operators (labels: operator, outcome)
//   - rxmux_stream_errors_total: errors that terminated a packet stream (labels: operator)
//   - rxmux_timeouts_total: auto-responses sent by the timeout race
//   - rxmux_join_pending: join correlation entries currently waiting for branches
//   - rxmux_pipelines_active: registrations with at least one subscribed pipeline (labels: route)
//
// # Usage
//
//	reg := metrics.NewRegistry()
//	m := metrics.New(reg)
//	metrics.Use(m)
//
//	http.Handle("/metrics", metrics.Handler(reg))
//
// Operators record through Current(). Every recording method is safe on a nil
// *Metrics, so nothing is recorded until Use installs a value.
package metrics
