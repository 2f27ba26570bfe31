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
	"github.com/getmockd/rxmux/pkg/web"
)

func TestUse_ContinueForwardsPacket(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	UseFunc(func(req *web.Request, _ *web.Response, next web.NextFunc) {
		req.Ext().Set("user", "ada")
		next(nil)
	})(src).Subscribe(rec)

	src.Next(pr.Packet)

	require.Len(t, rec.Values(), 1)
	assert.Same(t, pr.Packet, rec.Values()[0])
	assert.Equal(t, "ada", rec.Values()[0].Ext().String("user"))
	assert.Empty(t, pr.continuations(), "control stays in the pipeline")
}

func TestUse_ContinueWithError(t *testing.T) {
	denied := errors.New("denied")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	UseFunc(func(_ *web.Request, _ *web.Response, next web.NextFunc) {
		next(denied)
	})(src).Subscribe(rec)

	src.Next(newExchange(t, http.MethodGet, "/").Packet)

	assert.ErrorIs(t, rec.Err(), denied)
}

func TestUse_Panic(t *testing.T) {
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	UseFunc(func(*web.Request, *web.Response, web.NextFunc) {
		panic("kaboom")
	})(src).Subscribe(rec)

	src.Next(newExchange(t, http.MethodGet, "/").Packet)

	assert.ErrorIs(t, rec.Err(), ErrHandlerPanic)
	assert.Contains(t, rec.Err().Error(), "kaboom")
}

func TestUse_NeverContinues(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	UseFunc(func(_ *web.Request, res *web.Response, _ web.NextFunc) {
		_ = res.Send("handled here")
	})(src).Subscribe(rec)

	src.Next(pr.Packet)

	assert.Empty(t, rec.Values())
	assert.NoError(t, rec.Err())
	assert.Equal(t, "handled here", pr.rec.Body.String())
}

func TestUse_AsyncContinue(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	UseFunc(func(_ *web.Request, _ *web.Response, next web.NextFunc) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			next(nil)
			next(errors.New("ignored"))
		}()
	})(src).Subscribe(rec)

	src.Next(pr.Packet)

	require.True(t, rec.WaitValues(1, time.Second))
	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, rec.Err())
}

func TestUseHTTP(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	stream.Pipe(src,
		UseHTTP(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Std", "yes")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("std"))
		})),
		Respond(Text("never")),
	).Subscribe(rec)

	src.Next(pr.Packet)

	assert.Equal(t, http.StatusCreated, pr.rec.Code)
	assert.Equal(t, "std", pr.rec.Body.String())
	assert.True(t, pr.Res.Finished())
	assert.Empty(t, rec.Values())
}

func TestUseHTTP_EmptyHandler(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	UseHTTP(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))(src).
		Subscribe(streamtest.NewRecorder[*Packet]())

	src.Next(pr.Packet)

	assert.Equal(t, http.StatusOK, pr.rec.Code)
	assert.True(t, pr.Res.HasResponded())
	assert.True(t, pr.Res.Finished())
}
