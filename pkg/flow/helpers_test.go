package flow

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/web"
)

// exchange is a packet over a recorder, with its continuation recorded.
type exchange struct {
	*Packet
	rec *httptest.ResponseRecorder

	mu    sync.Mutex
	nexts []error
}

func newExchange(t *testing.T, method, target string) *exchange {
	t.Helper()
	rec := httptest.NewRecorder()
	req := web.NewRequest(httptest.NewRequest(method, target, nil))
	res := web.NewResponse(rec)
	pr := &exchange{rec: rec}
	pr.Packet = NewPacket(req, res, func(err error) {
		pr.mu.Lock()
		pr.nexts = append(pr.nexts, err)
		pr.mu.Unlock()
	}, nil)
	return pr
}

// newAbortedExchange is newExchange for a request whose client already went
// away.
func newAbortedExchange(t *testing.T, method, target string) *exchange {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	req := web.NewRequest(httptest.NewRequest(method, target, nil).WithContext(ctx))
	ex := &exchange{rec: rec}
	ex.Packet = NewPacket(req, web.NewResponse(rec), func(err error) {
		ex.mu.Lock()
		ex.nexts = append(ex.nexts, err)
		ex.mu.Unlock()
	}, nil)
	return ex
}

func (pr *exchange) continuations() []error {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return append([]error(nil), pr.nexts...)
}

// serve runs a test server that feeds every request into a subject piped
// through build. Requests to /<name> get the param "name". Continuations
// answer 404 "next", errors answer their status, and requests arriving after
// the pipeline ended answer 503.
func serve(t *testing.T, build func(src Stream)) *httptest.Server {
	t.Helper()
	subj := stream.NewSubject[*Packet]()
	build(subj)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := web.NewRequest(r)
		req.SetRoute(web.Route{
			Params: map[string]string{"name": strings.TrimPrefix(r.URL.Path, "/")},
			Path:   r.URL.Path,
		})
		res := web.NewResponse(w)
		defer res.Release()

		p := NewPacket(req, res, func(err error) {
			if err != nil {
				_ = res.Status(web.StatusOf(err)).Send(err.Error())
				return
			}
			_ = res.Status(http.StatusNotFound).Send("next")
		}, nil)

		if subj.Next(p) == 0 {
			_ = res.SendStatus(http.StatusServiceUnavailable)
		}
		select {
		case <-res.Done():
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}
