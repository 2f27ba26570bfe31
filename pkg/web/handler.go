package web

import (
	"errors"
	"fmt"
	"net/http"
)

// NextFunc is the continuation a handler invokes to delegate a request to the
// next matching handler. A non-nil error delegates to error handling instead.
type NextFunc func(err error)

// Handler is anything that can take part in a dispatch chain: plain handler
// functions, dispatchers mounted as sub-routers and packet-stream routers.
type Handler interface {
	Handle(req *Request, res *Response, next NextFunc)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *Request, res *Response, next NextFunc)

// Handle calls f.
func (f HandlerFunc) Handle(req *Request, res *Response, next NextFunc) {
	f(req, res, next)
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code < 600 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// ErrHandlerPanic wraps panics recovered by Invoke.
var ErrHandlerPanic = errors.New("handler panicked")

// Invoke calls h and converts a panic into an error wrapping ErrHandlerPanic.
func Invoke(h Handler, req *Request, res *Response, next NextFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	h.Handle(req, res, next)
	return nil
}
