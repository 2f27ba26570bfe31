package flow

import (
	"net/http"
	"time"

	"github.com/getmockd/rxmux/pkg/metrics"
)

type timeoutConfig struct {
	unsafe bool
}

// TimeoutOption configures Timeout.
type TimeoutOption func(*timeoutConfig)

// TimeoutUnsafe makes Timeout terminate the stream with ErrRequestTimeout
// after auto-answering a request.
func TimeoutUnsafe() TimeoutOption {
	return func(c *timeoutConfig) { c.unsafe = true }
}

// Timeout forwards every packet at once and answers 408 Request Timeout if
// the response has not been sent after d. By default the timeout is silent
// beyond that response.
func Timeout(d time.Duration, opts ...TimeoutOption) Operator {
	var cfg timeoutConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return operator("timeout", func(p *Packet, out emitter) {
		out.forward(p)
		if p.Res.HasResponded() {
			return
		}

		t := time.AfterFunc(d, func() {
			if p.Res.HasResponded() {
				return
			}
			if err := p.Res.SendStatus(http.StatusRequestTimeout); err != nil {
				return
			}
			metrics.Current().Timeout()
			p.log.Debug("request timed out", "method", p.Req.Method, "path", p.Req.URL.Path, "timeout", d)
			if cfg.unsafe {
				out.fail(ErrRequestTimeout)
			}
		})
		p.Res.OnFinish(func() { t.Stop() })
	})
}
