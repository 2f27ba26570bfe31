package flow

import "github.com/getmockd/rxmux/pkg/metrics"

type nextConfig struct {
	unsafe bool
}

// NextOption configures Next.
type NextOption func(*nextConfig)

// NextUnsafe makes Next continue even when the response was already sent.
func NextUnsafe() NextOption {
	return func(c *nextConfig) { c.unsafe = true }
}

// Next hands every packet back to the dispatcher's next matching handler and
// emits nothing. Packets already responded to are only absorbed.
func Next(opts ...NextOption) Operator {
	var cfg nextConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return operator("next", func(p *Packet, out emitter) {
		if !cfg.unsafe && p.Res.HasResponded() {
			out.count(metrics.OutcomeSkipped)
			return
		}
		p.Next(nil)
		out.count(metrics.OutcomeAbsorbed)
	})
}
