package flow

import (
	"fmt"
	"sync"
	"time"

	"github.com/getmockd/rxmux/internal/id"
	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/stream"
)

// CorrelationKey is the extension bag key holding the request's correlation
// id. The id is created the first time a joined branch sees the request.
const CorrelationKey = "__req_uid"

var correlations = id.NewSequence()

// CorrelationID returns the correlation id of p's request, creating it if
// needed. Every packet sharing the request gets the same id.
func CorrelationID(p *Packet) string {
	v := p.Ext().LoadOrStore(CorrelationKey, func() any { return correlations.Next() })
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// JoinOptions configures Join.
type JoinOptions struct {
	// Unsafe lets packets that were already responded to take part in the
	// join. Entries of requests that never report on every branch are then
	// kept until MaxAge evicts them, or forever when MaxAge is zero.
	Unsafe bool

	// MaxAge evicts join entries older than MaxAge. Zero disables eviction.
	MaxAge time.Duration
}

// Join emits a packet once every one of streams has emitted it. The streams
// are expected to be derived from the same packet stream, so a packet is
// identified by its request. The result is shared.
func Join(streams ...Stream) Stream {
	return JoinWith(JoinOptions{}, streams...)
}

// JoinWith is Join with options.
func JoinWith(opts JoinOptions, streams ...Stream) Stream {
	t := newJoinTable(opts, len(streams))

	tagged := make([]stream.Observable[branchReport], len(streams))
	for i, s := range streams {
		tagged[i] = stream.Map(func(p *Packet) branchReport {
			return branchReport{p: p, index: i, uid: CorrelationID(p)}
		})(s)
	}

	joined := stream.Filter(t.report)(stream.Merge(tagged...))
	return stream.Share(stream.Map(func(r branchReport) *Packet {
		metrics.Current().Packet("join", metrics.OutcomeJoined)
		return r.p
	})(joined))
}

// Joiner returns the pipeline stage form of JoinWith.
func Joiner(opts ...JoinOptions) func(streams ...Stream) Stream {
	var o JoinOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return func(streams ...Stream) Stream {
		return JoinWith(o, streams...)
	}
}

// Fork runs every packet of the source through each branch and joins the
// results. The source is shared so branches see the same packets.
func Fork(branches ...Operator) Operator {
	return ForkWith(JoinOptions{}, branches...)
}

// ForkWith is Fork with join options.
func ForkWith(opts JoinOptions, branches ...Operator) Operator {
	return func(src Stream) Stream {
		shared := stream.Share(src)
		streams := make([]Stream, len(branches))
		for i, b := range branches {
			streams[i] = b(shared)
		}
		return JoinWith(opts, streams...)
	}
}

type branchReport struct {
	p     *Packet
	index int
	uid   string
}

type joinEntry struct {
	flags   []bool
	created time.Time
}

func (e *joinEntry) complete() bool {
	for _, f := range e.flags {
		if !f {
			return false
		}
	}
	return true
}

type joinTable struct {
	opts JoinOptions
	n    int
	now  func() time.Time

	mu        sync.Mutex
	entries   map[string]*joinEntry
	lastSweep time.Time
}

func newJoinTable(opts JoinOptions, n int) *joinTable {
	return &joinTable{
		opts:    opts,
		n:       n,
		entries: make(map[string]*joinEntry),
		now:     time.Now,
	}
}

// report records a branch report and tells whether the packet completed its
// join. It never holds the lock while calling into the response.
func (t *joinTable) report(r branchReport) bool {
	if !t.opts.Unsafe && r.p.Res.HasResponded() {
		return false
	}

	now := t.now()
	t.mu.Lock()
	evicted := t.sweepLocked(now)
	e, ok := t.entries[r.uid]
	if !ok {
		e = &joinEntry{flags: make([]bool, t.n), created: now}
		t.entries[r.uid] = e
	}
	e.flags[r.index] = true
	done := e.complete()
	if done {
		delete(t.entries, r.uid)
	}
	t.mu.Unlock()

	m := metrics.Current()
	delta := float64(-evicted)
	if !ok {
		delta++
	}
	if done {
		delta--
	}
	m.JoinPendingAdd(delta)

	if !ok && !done && !t.opts.Unsafe {
		r.p.Res.OnFinish(func() { t.drop(r.uid, e) })
	}
	return done
}

// drop removes e if it is still the entry for uid.
func (t *joinTable) drop(uid string, e *joinEntry) {
	t.mu.Lock()
	cur, ok := t.entries[uid]
	if ok && cur == e {
		delete(t.entries, uid)
	}
	t.mu.Unlock()
	if ok && cur == e {
		metrics.Current().JoinPendingAdd(-1)
	}
}

// sweepLocked evicts entries older than MaxAge, at most once per MaxAge/2.
func (t *joinTable) sweepLocked(now time.Time) int {
	if t.opts.MaxAge <= 0 || now.Sub(t.lastSweep) < t.opts.MaxAge/2 {
		return 0
	}
	t.lastSweep = now
	n := 0
	for uid, e := range t.entries {
		if now.Sub(e.created) > t.opts.MaxAge {
			delete(t.entries, uid)
			n++
		}
	}
	return n
}

// pending returns the number of open entries.
func (t *joinTable) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
