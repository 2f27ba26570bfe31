package mux

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/rxmux/pkg/httputil"
	"github.com/getmockd/rxmux/pkg/logging"
	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/web"
)

// RouteKey is the extension bag key holding the pattern of the registration
// currently handling the request, including mount prefixes.
const RouteKey = "__route"

// MethodAll registers a handler for every method.
const MethodAll = ""

// ErrInvalidPattern is returned for route patterns that cannot be compiled.
var ErrInvalidPattern = errors.New("invalid route pattern")

// ErrorHandler answers requests whose chain continued with an error.
type ErrorHandler func(req *web.Request, res *web.Response, err error)

// Route describes a registration.
type Route struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	Mount   bool   `json:"mount,omitempty"`
}

// Lister is implemented by handlers that can describe their own routes,
// so Routes can descend into mounted routers.
type Lister interface {
	Routes() []Route
}

type registration struct {
	method  string
	pattern *pattern
	mount   bool
	handler web.Handler
}

func (r *registration) matchesMethod(method string) bool {
	if r.method == MethodAll || r.method == method {
		return true
	}
	return r.method == http.MethodGet && method == http.MethodHead
}

// Mux dispatches requests through an ordered list of registrations.
// Registering is safe while serving.
type Mux struct {
	mu       sync.RWMutex
	regs     []*registration
	notFound web.Handler
	onError  ErrorHandler

	log *slog.Logger
}

// Option configures a Mux.
type Option func(*Mux)

// WithLogger sets the logger used for dispatch errors.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mux) { m.log = logging.OrNop(l) }
}

// WithNotFound sets the handler for requests nobody answered.
func WithNotFound(h web.Handler) Option {
	return func(m *Mux) { m.notFound = h }
}

// WithErrorHandler sets the handler for requests continued with an error.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(m *Mux) { m.onError = fn }
}

// New creates an empty Mux.
func New(opts ...Option) *Mux {
	m := &Mux{log: logging.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds h for requests with method (MethodAll for any) whose path
// matches pattern as a whole. It panics if pattern is invalid, like
// http.ServeMux does.
func (m *Mux) Register(method, pattern string, h web.Handler) {
	m.add(strings.ToUpper(method), pattern, false, h)
}

// RegisterFunc is Register for a handler function.
func (m *Mux) RegisterFunc(method, pattern string, fn func(req *web.Request, res *web.Response, next web.NextFunc)) {
	m.Register(method, pattern, web.HandlerFunc(fn))
}

// Use mounts h on prefix for every method. The prefix is stripped from the
// request path while h runs; an empty prefix mounts h everywhere.
func (m *Mux) Use(prefix string, h web.Handler) {
	m.add(MethodAll, prefix, true, h)
}

// NotFound replaces the handler for requests nobody answered.
func (m *Mux) NotFound(h web.Handler) {
	m.mu.Lock()
	m.notFound = h
	m.mu.Unlock()
}

// OnError replaces the handler for requests continued with an error.
func (m *Mux) OnError(fn ErrorHandler) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

func (m *Mux) add(method, raw string, mount bool, h web.Handler) {
	p, err := compilePattern(raw)
	if err != nil {
		panic(fmt.Sprintf("mux: %v", err))
	}
	if p.deep && mount {
		panic(fmt.Sprintf("mux: %v: %q cannot be a mount prefix", ErrInvalidPattern, raw))
	}
	m.mu.Lock()
	m.regs = append(m.regs, &registration{method: method, pattern: p, mount: mount, handler: h})
	m.mu.Unlock()
}

// Routes lists the registrations in dispatch order, descending into mounted
// handlers that implement Lister.
func (m *Mux) Routes() []Route {
	m.mu.RLock()
	regs := append([]*registration(nil), m.regs...)
	m.mu.RUnlock()

	var out []Route
	for _, r := range regs {
		method := r.method
		if method == MethodAll {
			method = "ALL"
		}
		out = append(out, Route{Method: method, Pattern: r.pattern.raw, Mount: r.mount})
		if l, ok := r.handler.(Lister); ok && r.mount {
			prefix := strings.TrimSuffix(r.pattern.raw, "/")
			for _, sub := range l.Routes() {
				sub.Pattern = prefix + "/" + strings.TrimPrefix(sub.Pattern, "/")
				out = append(out, sub)
			}
		}
	}
	return out
}

// ServeHTTP dispatches r and returns once the response has finished or the
// client has gone away.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := web.NewRequest(r)
	res := web.NewResponse(w)

	m.dispatch(req, res, func(err error) {
		if err != nil {
			m.fail(req, res, err)
			return
		}
		m.fallback(req, res)
	})

	select {
	case <-res.Done():
	case <-r.Context().Done():
		m.log.Debug("client went away before a response", "method", r.Method, "path", r.URL.Path)
	}
	res.Release()

	status := res.StatusCode()
	if status == 0 {
		status = 499
	}
	route := req.Ext().String(RouteKey)
	if route == "" {
		route = "unmatched"
	}
	metrics.Current().ObserveRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
}

// Handle lets m act as a sub-router: it continues the parent's chain through
// next once its own registrations are exhausted.
func (m *Mux) Handle(req *web.Request, res *web.Response, next web.NextFunc) {
	m.dispatch(req, res, next)
}

func (m *Mux) snapshot() []*registration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*registration(nil), m.regs...)
}

// dispatch walks the registrations matching req, in order. done receives
// the final continuation with the request's routing state restored.
func (m *Mux) dispatch(req *web.Request, res *web.Response, done web.NextFunc) {
	regs := m.snapshot()
	base := req.Route()

	var step func(from int, err error)
	step = func(from int, err error) {
		req.SetRoute(base)
		if err != nil {
			done(err)
			return
		}

		for i := from; i < len(regs); i++ {
			reg := regs[i]
			if !reg.matchesMethod(req.Method) {
				continue
			}
			if !m.enter(req, base, reg) {
				continue
			}

			var called atomic.Bool
			next := func(err error) {
				if !called.CompareAndSwap(false, true) {
					m.log.Warn("next called more than once", "method", req.Method, "path", req.URL.Path, "error", err)
					return
				}
				step(i+1, err)
			}
			if err := web.Invoke(reg.handler, req, res, next); err != nil {
				m.log.Error("handler panicked", "method", req.Method, "path", req.URL.Path, "error", err)
				next(err)
			}
			return
		}
		done(nil)
	}
	step(0, nil)
}

// enter matches reg against the request and, on success, installs the
// routing state reg's handler runs with.
func (m *Mux) enter(req *web.Request, base web.Route, reg *registration) bool {
	if reg.mount {
		params, prefix, ok := reg.pattern.matchPrefix(base.Path)
		if !ok {
			return false
		}
		req.Mount(prefix, params)
		req.Ext().Set(RouteKey, base.BaseURL+reg.pattern.raw)
		return true
	}

	params, ok := reg.pattern.match(base.Path)
	if !ok {
		return false
	}
	req.SetRoute(web.Route{Params: params, BaseURL: base.BaseURL, Path: base.Path})
	req.Ext().Set(RouteKey, base.BaseURL+reg.pattern.raw)
	return true
}

func (m *Mux) fallback(req *web.Request, res *web.Response) {
	m.mu.RLock()
	h := m.notFound
	m.mu.RUnlock()

	if h == nil {
		notFound(req, res)
		return
	}
	err := web.Invoke(h, req, res, func(err error) {
		if err != nil {
			m.fail(req, res, err)
			return
		}
		notFound(req, res)
	})
	if err != nil {
		m.fail(req, res, err)
	}
}

func notFound(req *web.Request, res *web.Response) {
	_ = res.Status(http.StatusNotFound).SendJSON(map[string]string{
		"error":   httputil.ErrorCode(http.StatusNotFound),
		"message": fmt.Sprintf("Cannot %s %s", req.Method, req.URL.Path),
	})
}

func (m *Mux) fail(req *web.Request, res *web.Response, err error) {
	m.mu.RLock()
	h := m.onError
	m.mu.RUnlock()

	status := web.StatusOf(err)
	if status >= 500 {
		m.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "status", status, "error", err)
	} else {
		m.log.Debug("request rejected", "method", req.Method, "path", req.URL.Path, "status", status, "error", err)
	}

	if res.HasResponded() {
		return
	}
	if h != nil {
		h(req, res, err)
		return
	}
	WriteError(res, err)
}

// WriteError answers err as a JSON error document. Errors carrying a status
// (web.StatusCoder) expose their message; other errors are reported as a
// plain 500.
func WriteError(res *web.Response, err error) {
	status := web.StatusOf(err)
	message := http.StatusText(status)
	var sc web.StatusCoder
	if errors.As(err, &sc) {
		message = err.Error()
		if m, ok := sc.(interface{ PublicMessage() string }); ok {
			message = m.PublicMessage()
		}
	}
	_ = res.Status(status).SendJSON(map[string]string{
		"error":   httputil.ErrorCode(status),
		"message": message,
	})
}
