package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/getmockd/rxmux/internal/id"
	"github.com/getmockd/rxmux/pkg/config"
	"github.com/getmockd/rxmux/pkg/flow"
	"github.com/getmockd/rxmux/pkg/guard"
	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/mux"
	"github.com/getmockd/rxmux/pkg/ratelimit"
	"github.com/getmockd/rxmux/pkg/requestlog"
	"github.com/getmockd/rxmux/pkg/router"
	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/tracing"
)

// RequestIDHeader is set on every response of the demo application.
const RequestIDHeader = "X-Request-Id"

const userSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"email": {"type": "string"}
	}
}`

// App is the demo application served by "rxmux serve".
type App struct {
	Router   *router.Router
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Requests *requestlog.MemoryStore
}

// NewApp builds the demo routes from cfg. Metrics are registered on a fresh
// registry and installed process-wide.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	metrics.Use(m)

	r := router.New(router.WithLogger(log))
	requests := requestlog.NewMemoryStore(cfg.Server.RequestLog)
	app := &App{Router: r, Registry: reg, Metrics: m, Requests: requests}

	sink := flow.Sink(log)
	timeout := timeoutOperator(cfg.Pipeline)
	limit := rateLimitOperator(cfg.Guard.RateLimit)
	join := flow.JoinOptions{
		Unsafe: cfg.Pipeline.JoinUnsafe,
		MaxAge: config.MustDuration(cfg.Pipeline.JoinMaxAge),
	}

	// Every request gets an id and a request log entry; the middleware
	// continues to the routes below.
	stream.Pipe(r.Use("/"),
		flow.Wait(func(p *flow.Packet) error {
			recordExchange(requests, p)
			return nil
		}),
		flow.Next(),
	).Subscribe(sink)

	stream.Pipe(r.Get("/health"),
		flow.JSON(flow.Value(map[string]string{"status": "ok"})),
	).Subscribe(sink)

	stream.Pipe(r.Get("/metrics"),
		flow.UseHTTP(metrics.Handler(reg)),
	).Subscribe(sink)

	stream.Pipe(r.Get("/hello/:name"),
		limit,
		timeout,
		flow.Find(guard.MustExpr(`params.name != "nobody"`), flow.WithMessage("no such person")),
		flow.Respond(func(p *flow.Packet) (any, error) {
			return "hello " + p.Param("name"), nil
		}),
	).Subscribe(sink)

	// Profile and orders are looked up concurrently and joined per request.
	stream.Pipe(r.Get("/profile/:id"),
		timeout,
		flow.ForkWith(join,
			flow.Wait(func(p *flow.Packet) error {
				p.Ext().Set("profile", map[string]string{"id": p.Param("id"), "name": "user " + p.Param("id")})
				return nil
			}),
			flow.Wait(func(p *flow.Packet) error {
				p.Ext().Set("orders", []string{p.Param("id") + "-1", p.Param("id") + "-2"})
				return nil
			}),
		),
		flow.JSON(func(p *flow.Packet) (any, error) {
			return map[string]any{
				"profile": p.Ext().Value("profile"),
				"orders":  p.Ext().Value("orders"),
			}, nil
		}),
	).Subscribe(sink)

	users := []flow.Operator{timeout}
	if cfg.Guard.JWTSecret != "" {
		users = append(users, flow.Authorize(guard.HMACBearer([]byte(cfg.Guard.JWTSecret)), flow.WithMessage("missing or invalid bearer token")))
	}
	users = append(users,
		flow.Validate(guard.MustSchema(userSchema), flow.WithMessage("invalid user")),
		flow.Respond(func(p *flow.Packet) (any, error) {
			body, err := guard.Body(p)
			if err != nil {
				return nil, err
			}
			user, _ := body.(map[string]any)
			user["id"] = id.UUID()
			if sub, ok := guard.Claims(p)["sub"]; ok {
				user["createdBy"] = sub
			}
			p.Res.Status(http.StatusCreated)
			return user, nil
		}),
	)
	stream.Pipe(r.Post("/users"), users...).Subscribe(sink)

	stream.Pipe(r.Post("/orders"),
		timeout,
		flow.Validate(guard.MustJSONPath("$.items[*].sku", nil), flow.WithMessage("order has no items")),
		flow.JSON(func(p *flow.Packet) (any, error) {
			return map[string]string{"order": id.Short(), "status": "accepted"}, nil
		}),
	).Subscribe(sink)

	if cfg.Guard.Allow != "" {
		allow, err := guard.Expr(cfg.Guard.Allow)
		if err != nil {
			return nil, fmt.Errorf("guard.allow: %w", err)
		}
		stream.Pipe(r.Get("/admin/routes"),
			flow.Allow(allow),
			flow.JSON(func(p *flow.Packet) (any, error) {
				return map[string]any{"routes": r.Routes()}, nil
			}),
		).Subscribe(sink)

		stream.Pipe(r.Get("/admin/requests"),
			flow.Allow(allow),
			flow.Validate(func(p *flow.Packet) (bool, error) {
				_, err := requestFilter(p)
				return err == nil, nil
			}, flow.WithMessage("invalid query")),
			flow.JSON(func(p *flow.Packet) (any, error) {
				filter, err := requestFilter(p)
				if err != nil {
					return nil, err
				}
				return map[string]any{"count": requests.Count(), "requests": requests.List(filter)}, nil
			}),
		).Subscribe(sink)
	}

	return app, nil
}

// Routes lists the registrations of the application.
func (a *App) Routes() []mux.Route {
	return a.Router.Routes()
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Router.ServeHTTP(w, r)
}

// recordExchange tags the response with a request id and a traceparent
// continuing the caller's trace, and logs a summary of the exchange once it
// finishes.
func recordExchange(store requestlog.Logger, p *flow.Packet) {
	start := time.Now()
	rid := id.Short()
	span := tracing.FromHeader(p.Req.Header).Child()
	p.Res.Header().Set(RequestIDHeader, rid)
	p.Res.Header().Set(tracing.TraceparentHeader, span.String())
	p.Res.OnFinish(func() {
		store.Log(&requestlog.Entry{
			ID:          rid,
			Timestamp:   start,
			Method:      p.Req.Method,
			Path:        p.Req.URL.Path,
			Query:       p.Req.URL.RawQuery,
			Route:       p.Ext().String(mux.RouteKey),
			Status:      p.Res.StatusCode(),
			DurationMs:  time.Since(start).Milliseconds(),
			RemoteAddr:  p.Req.RemoteAddr,
			TraceID:     span.TraceID,
			Correlation: p.Ext().String(flow.CorrelationKey),
		})
	})
}

func requestFilter(p *flow.Packet) (*requestlog.Filter, error) {
	q := p.Req.URL.Query()
	f := &requestlog.Filter{
		Method: q.Get("method"),
		Path:   q.Get("path"),
		Route:  q.Get("route"),
		Failed: q.Get("failed") == "true",
		Limit:  100,
	}
	for name, dst := range map[string]*int{"status": &f.Status, "limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = n
	}
	return f, nil
}

func rateLimitOperator(cfg config.RateLimitConfig) flow.Operator {
	if cfg.Rate <= 0 {
		return passThrough
	}
	l := ratelimit.New(ratelimit.Config{Rate: cfg.Rate, Burst: cfg.Burst, TrustedProxies: cfg.TrustedProxies})
	return flow.Check(guard.RateLimit(l, nil), flow.WithStatus(http.StatusTooManyRequests), flow.WithMessage("too many requests"))
}

func passThrough(src flow.Stream) flow.Stream { return src }

func timeoutOperator(cfg config.PipelineConfig) flow.Operator {
	d := config.MustDuration(cfg.Timeout)
	if d <= 0 {
		return passThrough
	}
	var opts []flow.TimeoutOption
	if cfg.TimeoutUnsafe {
		opts = append(opts, flow.TimeoutUnsafe())
	}
	return flow.Timeout(d, opts...)
}
