package flow

import (
	"errors"

	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/stream"
)

// emitter is what a packet handler sees of the derived stream.
type emitter struct {
	name string
	dst  stream.Observer[*Packet]
}

func (e emitter) forward(p *Packet) {
	metrics.Current().Packet(e.name, metrics.OutcomeForwarded)
	e.dst.Next(p)
}

func (e emitter) fail(err error) {
	metrics.Current().StreamError(e.name)
	e.dst.Error(err)
}

func (e emitter) count(outcome string) {
	metrics.Current().Packet(e.name, outcome)
}

// aborted reports whether err is only the packet's own request context
// ending, which happens when the client goes away. Such a packet is absorbed
// without terminating the stream so the route keeps serving later requests.
func (e emitter) aborted(p *Packet, err error) bool {
	ctxErr := p.Context().Err()
	if ctxErr == nil || !errors.Is(err, ctxErr) {
		return false
	}
	e.count(metrics.OutcomeAbsorbed)
	return true
}

// operator builds an Operator that runs onPacket for every source packet and
// passes source errors and completion through.
func operator(name string, onPacket func(p *Packet, out emitter)) Operator {
	return func(src Stream) Stream {
		return stream.New(func(dst stream.Observer[*Packet]) func() {
			out := emitter{name: name, dst: dst}
			sub := src.Subscribe(stream.Funcs[*Packet]{
				OnNext:     func(p *Packet) { onPacket(p, out) },
				OnError:    dst.Error,
				OnComplete: dst.Complete,
			})
			return sub.Unsubscribe
		})
	}
}
