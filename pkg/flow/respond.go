package flow

import (
	"errors"
	"fmt"

	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/web"
)

// ResponseFunc produces the payload for a packet. It may block; it runs on
// the goroutine that delivered the packet.
type ResponseFunc func(p *Packet) (any, error)

// Text returns a ResponseFunc that always answers s.
func Text(s string) ResponseFunc {
	return func(*Packet) (any, error) { return s, nil }
}

// Value returns a ResponseFunc that always answers v.
func Value(v any) ResponseFunc {
	return func(*Packet) (any, error) { return v, nil }
}

// Await returns a ResponseFunc answering the first value of the observable
// produced by fn. An observable that completes empty is an error.
func Await(fn func(p *Packet) stream.Observable[any]) ResponseFunc {
	return func(p *Packet) (any, error) {
		return stream.First(p.Context(), fn(p))
	}
}

// Respond answers every packet not yet responded to with the value produced
// by fn, using Send semantics. It emits nothing.
func Respond(fn ResponseFunc) Operator {
	return responder("respond", fn, (*web.Response).Send)
}

// JSON answers every packet not yet responded to with the value produced by
// fn encoded as JSON. It emits nothing.
func JSON(fn ResponseFunc) Operator {
	return responder("json", fn, (*web.Response).SendJSON)
}

func responder(name string, fn ResponseFunc, send func(*web.Response, any) error) Operator {
	return operator(name, func(p *Packet, out emitter) {
		if p.Res.HasResponded() {
			out.count(metrics.OutcomeSkipped)
			return
		}
		v, err := fn(p)
		if err != nil {
			if !out.aborted(p, err) {
				out.fail(err)
			}
			return
		}
		if err := deliver(p.Res, func(res *web.Response) error { return send(res, v) }); err != nil {
			out.fail(fmt.Errorf("%s: %w", name, err))
			return
		}
		out.count(metrics.OutcomeResponded)
	})
}

// deliver sends through res and swallows the errors of losing a race to
// another stage or to the dispatcher.
func deliver(res *web.Response, send func(*web.Response) error) error {
	err := send(res)
	if errors.Is(err, web.ErrAlreadyResponded) || errors.Is(err, web.ErrResponseClosed) {
		return nil
	}
	return err
}
