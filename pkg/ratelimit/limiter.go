// Package ratelimit provides keyed token-bucket rate limiting.
//
// A Limiter holds one rate.Limiter per key (usually the client IP). Keys
// idle for longer than the entry TTL are swept lazily while the limiter is in
// use, so no background goroutine has to be stopped.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEntryTTL is how long an idle bucket is kept.
const DefaultEntryTTL = time.Minute

// Config configures a Limiter.
type Config struct {
	Rate     float64       // tokens per second
	Burst    int           // maximum bucket capacity
	EntryTTL time.Duration // how long an idle bucket lives
	// TrustedProxies lists CIDRs (or single IPs) whose forwarding headers
	// ClientIP believes.
	TrustedProxies []string
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until a token is available when not allowed,
	// or until the bucket is full again when allowed.
	RetryAfter time.Duration
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter is a set of token buckets keyed by string. It is safe for
// concurrent use.
type Limiter struct {
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	proxies proxyList
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
}

// New creates a Limiter. A non-positive rate defaults to 100/s and a
// non-positive burst to twice the rate.
func New(cfg Config) *Limiter {
	r := cfg.Rate
	if r <= 0 {
		r = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(math.Max(1, r*2))
	}
	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = DefaultEntryTTL
	}
	return &Limiter{
		rate:    rate.Limit(r),
		burst:   burst,
		ttl:     ttl,
		proxies: parseProxies(cfg.TrustedProxies),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int { return l.burst }

// Allow consumes a token from key's bucket if one is available.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()
	lim := l.limiter(key, now)

	d := Decision{Limit: l.burst}
	if lim.AllowN(now, 1) {
		tokens := lim.TokensAt(now)
		d.Allowed = true
		d.Remaining = remaining(tokens)
		d.RetryAfter = l.duration(float64(l.burst) - tokens)
		return d
	}

	d.Remaining = remaining(lim.TokensAt(now))
	r := lim.ReserveN(now, 1)
	if r.OK() {
		d.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}
	return d
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// limiter returns key's limiter, creating it full, and sweeps idle keys when
// the TTL has passed since the last sweep.
func (l *Limiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweepLocked(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.lim
}

func (l *Limiter) duration(tokens float64) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(tokens / float64(l.rate) * float64(time.Second))
}

func (l *Limiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.ttl)
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

func remaining(tokens float64) int {
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}
