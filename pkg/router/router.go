package router

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/getmockd/rxmux/pkg/flow"
	"github.com/getmockd/rxmux/pkg/logging"
	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/mux"
	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/web"
)

// ErrPipelineClosed continues requests that were in flight in a pipeline
// when it lost its last subscriber.
var ErrPipelineClosed = errors.New("packet pipeline closed")

// Router registers packet streams on a dispatcher.
type Router struct {
	core *mux.Mux
	log  *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger for the router and the packets it creates.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.log = logging.OrNop(l) }
}

// WithMux registers on m instead of a fresh dispatcher.
func WithMux(m *mux.Mux) Option {
	return func(r *Router) { r.core = m }
}

// New creates a Router.
func New(opts ...Option) *Router {
	r := &Router{log: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.core == nil {
		r.core = mux.New(mux.WithLogger(r.log))
	}
	return r
}

// Core returns the dispatcher aggregating the router's registrations. It can
// be mounted in another dispatcher or served directly.
func (r *Router) Core() *mux.Mux {
	return r.core
}

// On returns the packet stream of requests with method whose path matches
// pattern. Method "all" or "" matches every method; an empty pattern matches
// every path.
func (r *Router) On(method, pattern string) *stream.Subject[*flow.Packet] {
	if strings.EqualFold(method, "all") {
		method = mux.MethodAll
	}
	if pattern == "" {
		pattern = "*"
	}
	pl := r.pipeline(strings.ToUpper(method) + " " + pattern)
	r.core.Register(method, pattern, pl)
	return pl.subject
}

// Use returns the packet stream of requests of any method under prefix.
// The prefix is stripped from the request path while the packet is in the
// stream, so the stream can be piped into flow.Use with another router.
// Packets must be continued (flow.Next) to reach later registrations.
func (r *Router) Use(prefix string) *stream.Subject[*flow.Packet] {
	pl := r.pipeline("USE " + prefix)
	r.core.Use(prefix, pl)
	return pl.subject
}

// All is On("all", pattern).
func (r *Router) All(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(mux.MethodAll, pattern)
}

// Get is On(GET, pattern).
func (r *Router) Get(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodGet, pattern)
}

// Post is On(POST, pattern).
func (r *Router) Post(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodPost, pattern)
}

// Put is On(PUT, pattern).
func (r *Router) Put(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodPut, pattern)
}

// Patch is On(PATCH, pattern).
func (r *Router) Patch(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodPatch, pattern)
}

// Delete is On(DELETE, pattern).
func (r *Router) Delete(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodDelete, pattern)
}

// Head is On(HEAD, pattern).
func (r *Router) Head(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodHead, pattern)
}

// Options is On(OPTIONS, pattern).
func (r *Router) Options(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodOptions, pattern)
}

// Connect is On(CONNECT, pattern).
func (r *Router) Connect(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodConnect, pattern)
}

// Trace is On(TRACE, pattern).
func (r *Router) Trace(pattern string) *stream.Subject[*flow.Packet] {
	return r.On(http.MethodTrace, pattern)
}

// Checkout is On(CHECKOUT, pattern), the DeltaV checkout method.
func (r *Router) Checkout(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("CHECKOUT", pattern)
}

// Copy is On(COPY, pattern), the WebDAV copy method.
func (r *Router) Copy(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("COPY", pattern)
}

// Lock is On(LOCK, pattern).
func (r *Router) Lock(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("LOCK", pattern)
}

// Merge is On(MERGE, pattern), the DeltaV merge method.
func (r *Router) Merge(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("MERGE", pattern)
}

// Mkactivity is On(MKACTIVITY, pattern).
func (r *Router) Mkactivity(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("MKACTIVITY", pattern)
}

// Mkcol is On(MKCOL, pattern), the WebDAV create-collection method.
func (r *Router) Mkcol(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("MKCOL", pattern)
}

// Move is On(MOVE, pattern).
func (r *Router) Move(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("MOVE", pattern)
}

// MSearch is On(M-SEARCH, pattern), the SSDP discovery method.
func (r *Router) MSearch(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("M-SEARCH", pattern)
}

// Notify is On(NOTIFY, pattern).
func (r *Router) Notify(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("NOTIFY", pattern)
}

// Purge is On(PURGE, pattern), the cache purge method.
func (r *Router) Purge(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("PURGE", pattern)
}

// Report is On(REPORT, pattern).
func (r *Router) Report(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("REPORT", pattern)
}

// Search is On(SEARCH, pattern).
func (r *Router) Search(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("SEARCH", pattern)
}

// Subscribe is On(SUBSCRIBE, pattern).
func (r *Router) Subscribe(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("SUBSCRIBE", pattern)
}

// Unlock is On(UNLOCK, pattern).
func (r *Router) Unlock(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("UNLOCK", pattern)
}

// Unsubscribe is On(UNSUBSCRIBE, pattern).
func (r *Router) Unsubscribe(pattern string) *stream.Subject[*flow.Packet] {
	return r.On("UNSUBSCRIBE", pattern)
}

// Handle makes the router usable as a sub-router, by flow.Use or by another
// dispatcher.
func (r *Router) Handle(req *web.Request, res *web.Response, next web.NextFunc) {
	r.core.Handle(req, res, next)
}

// ServeHTTP serves the router's registrations.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.core.ServeHTTP(w, req)
}

// Routes lists the router's registrations.
func (r *Router) Routes() []mux.Route {
	return r.core.Routes()
}

func (r *Router) pipeline(label string) *pipeline {
	pl := &pipeline{
		label:    label,
		subject:  stream.NewSubject[*flow.Packet](),
		inflight: make(map[*flow.Packet]struct{}),
		log:      r.log,
	}
	pl.subject.OnActive(func() { metrics.Current().PipelineActive(label, true) })
	pl.subject.OnIdle(pl.idle)
	return pl
}

// pipeline is the dispatcher handler behind one registration.
type pipeline struct {
	label   string
	subject *stream.Subject[*flow.Packet]
	log     *slog.Logger

	mu       sync.Mutex
	inflight map[*flow.Packet]struct{}
}

func (pl *pipeline) Handle(req *web.Request, res *web.Response, next web.NextFunc) {
	if pl.subject.Observers() == 0 {
		next(nil)
		return
	}

	p := flow.NewPacket(req, res, next, pl.log)
	pl.mu.Lock()
	pl.inflight[p] = struct{}{}
	pl.mu.Unlock()
	res.OnFinish(func() { pl.forget(p) })

	if pl.subject.Next(p) == 0 {
		pl.forget(p)
		p.Next(nil)
	}
}

func (pl *pipeline) forget(p *flow.Packet) {
	pl.mu.Lock()
	delete(pl.inflight, p)
	pl.mu.Unlock()
}

// idle fails the packets nobody can act upon anymore.
func (pl *pipeline) idle() {
	metrics.Current().PipelineActive(pl.label, false)

	pl.mu.Lock()
	stranded := make([]*flow.Packet, 0, len(pl.inflight))
	for p := range pl.inflight {
		stranded = append(stranded, p)
	}
	clear(pl.inflight)
	pl.mu.Unlock()

	for _, p := range stranded {
		if p.Res.HasResponded() || p.Continued() {
			continue
		}
		pl.log.Warn("pipeline closed with request in flight",
			"route", pl.label, "method", p.Req.Method, "path", p.Req.URL.Path)
		p.Next(ErrPipelineClosed)
	}
}
