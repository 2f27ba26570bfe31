package flow

import (
	"net/http"

	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/web"
)

// Predicate decides whether a packet may pass. It may block.
type Predicate func(p *Packet) (bool, error)

// PredicateOf adapts a predicate producing an observable: the first value
// decides. An observable that completes empty is an error.
func PredicateOf(fn func(p *Packet) stream.Observable[bool]) Predicate {
	return func(p *Packet) (bool, error) {
		return stream.First(p.Context(), fn(p))
	}
}

type checkConfig struct {
	name    string
	status  int
	message string
	unsafe  bool
}

// CheckOption configures Check.
type CheckOption func(*checkConfig)

// WithStatus sets the status answered when the predicate fails.
func WithStatus(status int) CheckOption {
	return func(c *checkConfig) { c.status = status }
}

// WithMessage sets the body answered when the predicate fails.
func WithMessage(message string) CheckOption {
	return func(c *checkConfig) { c.message = message }
}

// Unsafe makes a failing predicate also terminate the stream with an
// *HTTPError carrying the status and message.
func Unsafe() CheckOption {
	return func(c *checkConfig) { c.unsafe = true }
}

func named(name string) CheckOption {
	return func(c *checkConfig) { c.name = name }
}

// Check forwards the packets for which pred holds. Packets failing it are
// answered with the configured status (500 unless set) and message and
// absorbed. Packets already responded to are skipped without evaluating
// pred, and so are packets that got responded to while pred was running.
func Check(pred Predicate, opts ...CheckOption) Operator {
	cfg := checkConfig{name: "check", status: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(&cfg)
	}

	return operator(cfg.name, func(p *Packet, out emitter) {
		if p.Res.HasResponded() {
			out.count(metrics.OutcomeSkipped)
			return
		}
		ok, err := pred(p)
		if err != nil {
			if !out.aborted(p, err) {
				out.fail(err)
			}
			return
		}
		if p.Res.HasResponded() {
			out.count(metrics.OutcomeSkipped)
			return
		}
		if ok {
			out.forward(p)
			return
		}

		_ = deliver(p.Res, func(res *web.Response) error {
			return res.SendWithStatus(cfg.status, cfg.message)
		})
		out.count(metrics.OutcomeRejected)
		if cfg.unsafe {
			out.fail(NewHTTPError(cfg.status, cfg.message))
		}
	})
}

func preset(name string, status int, pred Predicate, opts []CheckOption) Operator {
	all := make([]CheckOption, 0, len(opts)+2)
	all = append(all, opts...)
	all = append(all, named(name), WithStatus(status))
	return Check(pred, all...)
}

// Validate is Check answering 400.
func Validate(pred Predicate, opts ...CheckOption) Operator {
	return preset("validate", http.StatusBadRequest, pred, opts)
}

// Authorize is Check answering 401.
func Authorize(pred Predicate, opts ...CheckOption) Operator {
	return preset("authorize", http.StatusUnauthorized, pred, opts)
}

// Allow is Check answering 403.
func Allow(pred Predicate, opts ...CheckOption) Operator {
	return preset("allow", http.StatusForbidden, pred, opts)
}

// Permit is Allow.
func Permit(pred Predicate, opts ...CheckOption) Operator {
	return preset("permit", http.StatusForbidden, pred, opts)
}

// Find is Check answering 404.
func Find(pred Predicate, opts ...CheckOption) Operator {
	return preset("find", http.StatusNotFound, pred, opts)
}

// IfExists is Find.
func IfExists(pred Predicate, opts ...CheckOption) Operator {
	return preset("ifexists", http.StatusNotFound, pred, opts)
}
