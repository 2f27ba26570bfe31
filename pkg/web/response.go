package web

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/getmockd/rxmux/pkg/httputil"
)

var (
	// ErrAlreadyResponded is returned by sends on a response that was already
	// answered.
	ErrAlreadyResponded = errors.New("response already sent")

	// ErrResponseClosed is returned by sends after the dispatcher released
	// the exchange (the handler returned or the client went away).
	ErrResponseClosed = errors.New("response closed")
)

// Response is the write-once response capability of one request.
// A Response is safe for concurrent use.
type Response struct {
	w http.ResponseWriter

	mu        sync.Mutex
	status    int
	written   int
	responded atomic.Bool
	closed    bool

	hooksMu  sync.Mutex
	hooks    []func()
	finished bool
	done     chan struct{}
}

// NewResponse wraps w.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{
		w:      w,
		status: http.StatusOK,
		done:   make(chan struct{}),
	}
}

// Header returns the header map that will be sent with the response.
func (r *Response) Header() http.Header {
	return r.w.Header()
}

// HasResponded reports whether the response has been sent. Once true it
// never reverts.
func (r *Response) HasResponded() bool {
	return r.responded.Load()
}

// Status sets the status used by the next Send or SendJSON.
func (r *Response) Status(code int) *Response {
	r.mu.Lock()
	r.status = code
	r.mu.Unlock()
	return r
}

// StatusCode returns the status that was written, or 0 if nothing was.
func (r *Response) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Send writes payload: strings as text, byte slices as binary, nil as an
// empty body and anything else as JSON.
func (r *Response) Send(payload any) error {
	contentType, body, err := httputil.Render(payload)
	if err != nil {
		return err
	}
	return r.write(0, contentType, body)
}

// SendWithStatus is Send answering code. The status is taken in the same
// locked step as the write, so a concurrent Status call cannot leak into it
// and its code cannot leak into a concurrent Send.
func (r *Response) SendWithStatus(code int, payload any) error {
	contentType, body, err := httputil.Render(payload)
	if err != nil {
		return err
	}
	return r.write(code, contentType, body)
}

// SendJSON writes payload as JSON, whatever its type.
func (r *Response) SendJSON(payload any) error {
	body, err := httputil.EncodeJSON(payload)
	if err != nil {
		return err
	}
	if body == nil {
		body = []byte("null")
	}
	return r.write(0, httputil.ContentTypeJSON, body)
}

// SendStatus writes code with its standard status text as body.
func (r *Response) SendStatus(code int) error {
	return r.write(code, httputil.ContentTypeText, []byte(http.StatusText(code)))
}

func (r *Response) write(status int, contentType string, body []byte) error {
	r.mu.Lock()
	if r.responded.Load() {
		r.mu.Unlock()
		return ErrAlreadyResponded
	}
	if r.closed {
		r.mu.Unlock()
		return ErrResponseClosed
	}
	if status == 0 {
		status = r.status
	}
	r.written = status
	r.responded.Store(true)
	err := httputil.WriteBytes(r.w, status, contentType, body)
	r.mu.Unlock()

	r.finish()
	return err
}

// OnFinish registers fn to run once the response finishes: after the first
// send, or when the dispatcher releases the exchange. If the response has
// already finished, fn runs immediately.
func (r *Response) OnFinish(fn func()) {
	r.hooksMu.Lock()
	if r.finished {
		r.hooksMu.Unlock()
		fn()
		return
	}
	r.hooks = append(r.hooks, fn)
	r.hooksMu.Unlock()
}

// Done is closed when the response finishes.
func (r *Response) Done() <-chan struct{} {
	return r.done
}

// Finished reports whether the response has finished.
func (r *Response) Finished() bool {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	return r.finished
}

func (r *Response) finish() {
	r.hooksMu.Lock()
	if r.finished {
		r.hooksMu.Unlock()
		return
	}
	r.finished = true
	hooks := r.hooks
	r.hooks = nil
	close(r.done)
	r.hooksMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Release closes the response for writing and fires the finish event if it
// has not fired yet. Dispatchers call it once net/http no longer owns the
// writer.
func (r *Response) Release() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.finish()
}

// Writer returns an http.ResponseWriter for handlers written against the
// standard library. The first WriteHeader or Write claims the response, so
// HasResponded becomes true and later sends fail. Call End once the handler
// returns to fire the finish event.
func (r *Response) Writer() http.ResponseWriter {
	return &claimWriter{r: r}
}

// End fires the finish event if the response was claimed through Writer.
func (r *Response) End() {
	if r.HasResponded() {
		r.finish()
	}
}

type claimWriter struct {
	r       *Response
	claimed bool
}

func (cw *claimWriter) Header() http.Header {
	return cw.r.w.Header()
}

func (cw *claimWriter) claim(status int) error {
	r := cw.r
	if cw.claimed {
		return nil
	}
	if r.closed {
		return ErrResponseClosed
	}
	if r.responded.Load() {
		return ErrAlreadyResponded
	}
	cw.claimed = true
	r.written = status
	r.responded.Store(true)
	r.w.WriteHeader(status)
	return nil
}

func (cw *claimWriter) WriteHeader(code int) {
	cw.r.mu.Lock()
	defer cw.r.mu.Unlock()
	_ = cw.claim(code)
}

func (cw *claimWriter) Write(b []byte) (int, error) {
	cw.r.mu.Lock()
	defer cw.r.mu.Unlock()
	if err := cw.claim(cw.r.status); err != nil {
		return 0, err
	}
	if cw.r.closed {
		return 0, ErrResponseClosed
	}
	return cw.r.w.Write(b)
}

func (cw *claimWriter) Unwrap() http.ResponseWriter {
	return cw.r.w
}
