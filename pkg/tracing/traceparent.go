// Package tracing implements W3C Trace Context propagation.
//
// It does not record or export spans. A server continues the trace of an
// incoming request (or starts one), answers with its own traceparent and
// tags its logs with the trace id:
//
//	sc := tracing.FromHeader(r.Header).Child()
//	w.Header().Set(tracing.TraceparentHeader, sc.String())
package tracing

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
)

// TraceparentHeader is the W3C Trace Context traceparent header name.
const TraceparentHeader = "traceparent"

const (
	version     = "00"
	flagSampled = 0x01
	zeroTrace   = "00000000000000000000000000000000"
	zeroSpan    = "0000000000000000"
)

// SpanContext identifies a span within a trace.
type SpanContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// IsValid reports whether sc carries non-zero ids.
func (sc SpanContext) IsValid() bool {
	return sc.TraceID != "" && sc.SpanID != ""
}

// String formats sc as a traceparent header value.
func (sc SpanContext) String() string {
	flags := "00"
	if sc.Sampled {
		flags = "01"
	}
	return version + "-" + sc.TraceID + "-" + sc.SpanID + "-" + flags
}

// Child returns a new span in the same trace, or a new root when sc is not
// valid.
func (sc SpanContext) Child() SpanContext {
	if !sc.IsValid() {
		return NewRoot()
	}
	return SpanContext{TraceID: sc.TraceID, SpanID: randomHex(8), Sampled: sc.Sampled}
}

// NewRoot starts a new sampled trace.
func NewRoot() SpanContext {
	return SpanContext{TraceID: randomHex(16), SpanID: randomHex(8), Sampled: true}
}

// FromHeader parses the traceparent header of h. The zero SpanContext is
// returned when it is absent or malformed.
func FromHeader(h http.Header) SpanContext {
	sc, _ := Parse(h.Get(TraceparentHeader))
	return sc
}

// Parse parses a traceparent value: {version}-{trace-id}-{parent-id}-{flags}.
// Unknown two-character versions are accepted.
func Parse(s string) (SpanContext, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 {
		return SpanContext{}, false
	}
	ver, traceID, spanID, flags := parts[0], parts[1], parts[2], parts[3]

	if len(ver) != 2 || !isHex(ver) || ver == "ff" {
		return SpanContext{}, false
	}
	if len(traceID) != 32 || !isHex(traceID) || traceID == zeroTrace {
		return SpanContext{}, false
	}
	if len(spanID) != 16 || !isHex(spanID) || spanID == zeroSpan {
		return SpanContext{}, false
	}
	b, err := hex.DecodeString(flags)
	if err != nil || len(b) != 1 {
		return SpanContext{}, false
	}

	return SpanContext{
		TraceID: strings.ToLower(traceID),
		SpanID:  strings.ToLower(spanID),
		Sampled: b[0]&flagSampled != 0,
	}, true
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
