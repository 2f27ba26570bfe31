package flow

import (
	"net/http"
	"sync/atomic"

	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/web"
)

// Use bridges a continuation-style handler into the pipeline. h may be a
// plain web.HandlerFunc, a packet-stream router or a dispatcher sub-router.
//
// When h continues without error the original packet is forwarded; when it
// continues with an error, or panics, the stream errors. A handler that never
// continues has handled the request itself and the packet is absorbed.
func Use(h web.Handler) Operator {
	return operator("use", func(p *Packet, out emitter) {
		var called atomic.Bool
		next := func(err error) {
			if !called.CompareAndSwap(false, true) {
				return
			}
			if err != nil {
				out.fail(err)
				return
			}
			out.forward(p)
		}

		if err := web.Invoke(h, p.Req, p.Res, next); err != nil && called.CompareAndSwap(false, true) {
			out.fail(err)
		}
	})
}

// UseFunc is Use for a plain handler function.
func UseFunc(fn func(req *web.Request, res *web.Response, next web.NextFunc)) Operator {
	return Use(web.HandlerFunc(fn))
}

// UseHTTP bridges a standard library handler. Such a handler cannot
// continue, so every packet is absorbed once h returns; a handler that wrote
// nothing answers 200 with an empty body, like net/http does.
func UseHTTP(h http.Handler) Operator {
	return operator("use", func(p *Packet, out emitter) {
		w := p.Res.Writer()
		err := web.Invoke(web.HandlerFunc(func(req *web.Request, _ *web.Response, _ web.NextFunc) {
			h.ServeHTTP(w, req.Request)
		}), p.Req, p.Res, nil)
		if err != nil {
			out.fail(err)
			return
		}
		w.WriteHeader(http.StatusOK)
		p.Res.End()
		out.count(metrics.OutcomeAbsorbed)
	})
}
