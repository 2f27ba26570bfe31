package guard

import (
	"math"
	"strconv"

	"github.com/getmockd/rxmux/pkg/flow"
	"github.com/getmockd/rxmux/pkg/ratelimit"
)

// KeyFunc picks the rate limiting key of a packet.
type KeyFunc func(p *flow.Packet) string

// RateLimit returns a predicate that holds while the packet's key has tokens
// left in l. A nil key limits by client IP. The X-RateLimit-* headers are
// set on every response; a refused request also gets Retry-After. Pair it
// with flow.Check(pred, flow.WithStatus(http.StatusTooManyRequests)).
func RateLimit(l *ratelimit.Limiter, key KeyFunc) flow.Predicate {
	if key == nil {
		key = func(p *flow.Packet) string { return l.ClientIP(p.Req.Request) }
	}
	return func(p *flow.Packet) (bool, error) {
		d := l.Allow(key(p))

		h := p.Res.Header()
		seconds := strconv.FormatInt(int64(math.Ceil(d.RetryAfter.Seconds())), 10)
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", seconds)
		if !d.Allowed {
			h.Set("Retry-After", seconds)
		}
		return d.Allowed, nil
	}
}
