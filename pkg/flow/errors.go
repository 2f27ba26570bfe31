package flow

import (
	"fmt"
	"net/http"

	"github.com/getmockd/rxmux/pkg/web"
)

// HTTPError is a stream error that carries the status the dispatcher should
// answer with.
type HTTPError struct {
	Status  int
	Message string
}

// NewHTTPError creates an HTTPError. An empty message defaults to the
// status text.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// StatusCode implements web.StatusCoder.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// PublicMessage is the message the dispatcher answers with.
func (e *HTTPError) PublicMessage() string {
	return e.Message
}

// Is matches any *HTTPError with the same status.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Status == e.Status
}

var (
	// ErrRequestTimeout is raised by an unsafe Timeout when a request was
	// auto-answered.
	ErrRequestTimeout = NewHTTPError(http.StatusRequestTimeout, "")

	// ErrHandlerPanic wraps panics recovered from handlers bridged with Use.
	ErrHandlerPanic = web.ErrHandlerPanic
)
