package flow

import (
	"net/http"

	"github.com/getmockd/rxmux/pkg/metrics"
	"github.com/getmockd/rxmux/pkg/web"
)

// Reject answers every packet not yet responded to with status and message.
// It emits nothing.
func Reject(status int, message string) Operator {
	return operator("reject", func(p *Packet, out emitter) {
		if p.Res.HasResponded() {
			out.count(metrics.OutcomeSkipped)
			return
		}
		_ = deliver(p.Res, func(res *web.Response) error {
			return res.SendWithStatus(status, message)
		})
		out.count(metrics.OutcomeRejected)
	})
}

// BadRequest rejects with 400.
func BadRequest(message string) Operator { return Reject(http.StatusBadRequest, message) }

// Unauthorized rejects with 401.
func Unauthorized(message string) Operator { return Reject(http.StatusUnauthorized, message) }

// Forbidden rejects with 403.
func Forbidden(message string) Operator { return Reject(http.StatusForbidden, message) }

// NotFound rejects with 404.
func NotFound(message string) Operator { return Reject(http.StatusNotFound, message) }
