package flow

import (
	"log/slog"

	"github.com/getmockd/rxmux/pkg/logging"
	"github.com/getmockd/rxmux/pkg/stream"
)

// WaitFunc is a side effect run for a packet. It may block.
type WaitFunc func(p *Packet) error

// Wait runs action for every packet and forwards the packet unchanged once it
// returns. An error from action terminates the stream, unless it is the
// packet's request context ending.
func Wait(action WaitFunc) Operator {
	return operator("wait", func(p *Packet, out emitter) {
		if err := action(p); err != nil {
			if !out.aborted(p, err) {
				out.fail(err)
			}
			return
		}
		out.forward(p)
	})
}

// WaitFor is Wait for an action producing an observable: the packet is
// forwarded on its first value.
func WaitFor(action func(p *Packet) stream.Observable[any]) Operator {
	return Wait(func(p *Packet) error {
		_, err := stream.First(p.Context(), action(p))
		return err
	})
}

// Noop returns a packet stream that completes without emitting.
func Noop() Stream {
	return stream.Empty[*Packet]()
}

// Sink returns an observer that ends a pipeline: it drops packets and logs
// the error that terminates the stream.
func Sink(logger *slog.Logger) stream.Observer[*Packet] {
	log := logging.OrNop(logger)
	return stream.Funcs[*Packet]{
		OnError: func(err error) {
			log.Error("packet stream terminated", "error", err)
		},
		OnComplete: func() {
			log.Debug("packet stream completed")
		},
	}
}
