package flow

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/getmockd/rxmux/pkg/logging"
	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/web"
)

// Packet is one in-flight request as it flows through a pipeline. It is
// shared by reference by every operator in every branch.
type Packet struct {
	Req *web.Request
	Res *web.Response

	next      web.NextFunc
	continued atomic.Bool
	log       *slog.Logger
}

// Stream is a stream of packets.
type Stream = stream.Observable[*Packet]

// Operator derives a packet stream from another.
type Operator = stream.Operator[*Packet, *Packet]

// NewPacket creates a packet for req/res whose continuation is next.
// A nil logger discards the continuation diagnostics.
func NewPacket(req *web.Request, res *web.Response, next web.NextFunc, logger *slog.Logger) *Packet {
	return &Packet{
		Req:  req,
		Res:  res,
		next: next,
		log:  logging.OrNop(logger),
	}
}

// Next delegates the request to the dispatcher's next matching handler, or
// to its error handling when err is not nil.
//
// Next does not look at Res.HasResponded; use the Next operator for that.
// Only the first call reaches the dispatcher: later calls are logged and
// dropped, since two handlers cannot both own one http.ResponseWriter.
func (p *Packet) Next(err error) {
	if !p.continued.CompareAndSwap(false, true) {
		p.log.Warn("continuation invoked more than once",
			"method", p.Req.Method, "path", p.Req.URL.Path, "error", err)
		return
	}
	if p.next != nil {
		p.next(err)
	}
}

// Continued reports whether Next has been called.
func (p *Packet) Continued() bool {
	return p.continued.Load()
}

// Context returns the request context.
func (p *Packet) Context() context.Context {
	return p.Req.Context()
}

// Param returns a route param of the request.
func (p *Packet) Param(name string) string {
	return p.Req.Param(name)
}

// Ext returns the request's extension bag.
func (p *Packet) Ext() *web.Bag {
	return p.Req.Ext()
}

// Logger returns the logger the packet was created with.
func (p *Packet) Logger() *slog.Logger {
	return p.log
}
