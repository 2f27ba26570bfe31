package flow

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/stream/streamtest"
)

func TestNext(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Next()(src).Subscribe(rec)

	src.Next(pr.Packet)

	assert.Equal(t, []error{nil}, pr.continuations())
	assert.True(t, pr.Continued())
	assert.Empty(t, rec.Values())
}

func TestNext_SkipsResponded(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	require.NoError(t, pr.Res.Send("done"))

	src := stream.NewSubject[*Packet]()
	Next()(src).Subscribe(streamtest.NewRecorder[*Packet]())
	src.Next(pr.Packet)

	assert.Empty(t, pr.continuations())
}

func TestNext_Unsafe(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	require.NoError(t, pr.Res.Send("done"))

	src := stream.NewSubject[*Packet]()
	Next(NextUnsafe())(src).Subscribe(streamtest.NewRecorder[*Packet]())
	src.Next(pr.Packet)

	assert.Len(t, pr.continuations(), 1)
}

func TestPacketNext_Once(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	boom := errors.New("boom")

	pr.Next(boom)
	pr.Next(nil)

	assert.Equal(t, []error{boom}, pr.continuations())
}

func TestWait(t *testing.T) {
	pr := newExchange(t, http.MethodGet, "/")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Wait(func(p *Packet) error {
		p.Ext().Set("waited", true)
		return nil
	})(src).Subscribe(rec)

	src.Next(pr.Packet)

	require.Len(t, rec.Values(), 1)
	assert.Same(t, pr.Packet, rec.Values()[0])
	assert.Equal(t, true, pr.Ext().Value("waited"))
}

func TestWait_Error(t *testing.T) {
	boom := errors.New("boom")
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	Wait(func(*Packet) error { return boom })(src).Subscribe(rec)

	src.Next(newExchange(t, http.MethodGet, "/").Packet)

	assert.ErrorIs(t, rec.Err(), boom)
}

func TestWaitFor(t *testing.T) {
	src := stream.NewSubject[*Packet]()
	rec := streamtest.NewRecorder[*Packet]()
	WaitFor(func(p *Packet) stream.Observable[any] {
		if p.Req.URL.Path == "/fail" {
			return stream.Throw[any](errors.New("nope"))
		}
		return stream.Of[any](1, 2, 3)
	})(src).Subscribe(rec)

	ok := newExchange(t, http.MethodGet, "/ok")
	src.Next(ok.Packet)
	require.Len(t, rec.Values(), 1)

	src.Next(newExchange(t, http.MethodGet, "/fail").Packet)
	assert.EqualError(t, rec.Err(), "nope")
}

func TestNoop(t *testing.T) {
	rec := streamtest.NewRecorder[*Packet]()
	Noop().Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.True(t, rec.Completed())
}
