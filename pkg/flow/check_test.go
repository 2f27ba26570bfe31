package flow

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/stream/streamtest"
)

func passIf(ok bool) Predicate {
	return func(*Packet) (bool, error) { return ok, nil }
}

func TestCheck_Pass(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Check(passIf(true))(src).Subscribe(rec)

	src.Next(pr.Packet)

	require.Len(t, rec.Values(), 1)
	assert.Same(t, pr.Packet, rec.Values()[0])
	assert.False(t, pr.Res.HasResponded())
}

func TestCheck_FailDefaults(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Check(passIf(false))(src).Subscribe(rec)

	src.Next(pr.Packet)

	assert.Empty(t, rec.Values())
	assert.NoError(t, rec.Err())
	assert.Equal(t, http.StatusInternalServerError, pr.rec.Code)
	assert.Empty(t, pr.rec.Body.String())
}

func TestCheck_Aliases(t *testing.T) {
	tests := []struct {
		name   string
		op     func(Predicate, ...CheckOption) Operator
		status int
	}{
		{"validate", Validate, http.StatusBadRequest},
		{"authorize", Authorize, http.StatusUnauthorized},
		{"allow", Allow, http.StatusForbidden},
		{"permit", Permit, http.StatusForbidden},
		{"find", Find, http.StatusNotFound},
		{"ifexists", IfExists, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := newExchange(t, http.MethodGet, "/")
			src := stream.NewSubject[*Packet]()
			tt.op(passIf(false), WithMessage("nope"), WithStatus(http.StatusTeapot))(src).
				Subscribe(streamtest.NewRecorder[*Packet]())

			src.Next(pr.Packet)

			assert.Equal(t, tt.status, pr.rec.Code, "alias status is fixed")
			assert.Equal(t, "nope", pr.rec.Body.String())
		})
	}
}

func TestCheck_Unsafe(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Authorize(passIf(false), WithMessage("login first"), Unsafe())(src).Subscribe(rec)

	src.Next(pr.Packet)

	assert.Equal(t, http.StatusUnauthorized, pr.rec.Code)
	var httpErr *HTTPError
	require.ErrorAs(t, rec.Err(), &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "login first", httpErr.Message)
}

func TestCheck_PredicateError(t *testing.T) {
	boom := errors.New("lookup failed")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Check(func(*Packet) (bool, error) { return false, boom })(src).Subscribe(rec)

	pr := newExchange(t, http.MethodGet, "/")
	src.Next(pr.Packet)

	assert.ErrorIs(t, rec.Err(), boom)
	assert.False(t, pr.Res.HasResponded())
}

func TestCheck_RespondedWhileEvaluating(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Check(func(p *Packet) (bool, error) {
		_ = p.Res.Status(http.StatusAccepted).Send("side effect")
		return false, nil
	}, WithStatus(http.StatusTeapot))(src).Subscribe(rec)

	src.Next(pr.Packet)

	assert.Equal(t, http.StatusAccepted, pr.rec.Code)
	assert.Equal(t, "side effect", pr.rec.Body.String())
	assert.Empty(t, rec.Values())
}

func TestCheck_PredicateOf(t *testing.T) {
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Check(PredicateOf(func(p *Packet) stream.Observable[bool] {
		return stream.Of(p.Req.URL.Query().Get("ok") == "1")
	}), WithStatus(http.StatusForbidden))(src).Subscribe(rec)

	good := newExchange(t, http.MethodGet, "/?ok=1")
	bad := newExchange(t, http.MethodGet, "/?ok=0")
	src.Next(good.Packet)
	src.Next(bad.Packet)

	require.Len(t, rec.Values(), 1)
	assert.Same(t, good.Packet, rec.Values()[0])
	assert.Equal(t, http.StatusForbidden, bad.rec.Code)
}

func TestCheck_Scenario(t *testing.T) {
	srv := serve(t, func(src Stream) {
		stream.Pipe(src,
			Check(func(p *Packet) (bool, error) {
				return p.Param("name") == "dude", nil
			}, WithStatus(http.StatusTeapot), WithMessage("teapot")),
			Respond(Text("Welcome")),
		).Subscribe(Sink(nil))
	})

	status, body := get(t, srv, "/john")
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, "teapot", body)

	status, body = get(t, srv, "/dude")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Welcome", body)
}

func TestSharedErrorBlastRadius(t *testing.T) {
	srv := serve(t, func(src Stream) {
		stream.Pipe(src,
			Check(func(p *Packet) (bool, error) {
				if p.Param("name") == "explode" {
					return false, NewHTTPError(http.StatusBadGateway, "upstream gone")
				}
				return true, nil
			}),
			Respond(Text("fine")),
		).Subscribe(Sink(nil))
	})

	status, body := get(t, srv, "/before")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fine", body)

	// Nothing answers the erroring request itself; the client gives up.
	go func() {
		client := &http.Client{Timeout: 200 * time.Millisecond}
		if resp, err := client.Get(srv.URL + "/explode"); err == nil {
			resp.Body.Close()
		}
	}()
	assert.Eventually(t, func() bool {
		status, _ := get(t, srv, "/after")
		return status == http.StatusServiceUnavailable
	}, 2*time.Second, 10*time.Millisecond)
}
