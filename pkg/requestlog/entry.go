package requestlog

import "time"

// Entry summarizes one request/response exchange.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query,omitempty"`
	Route      string    `json:"route,omitempty"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"durationMs"`
	RemoteAddr string    `json:"remoteAddr,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	// Correlation is the join correlation id, when the request went
	// through a join.
	Correlation string `json:"correlation,omitempty"`
}

// Failed reports whether the exchange ended with a 5xx status or without a
// response at all.
func (e *Entry) Failed() bool {
	return e.Status == 0 || e.Status >= 500
}
