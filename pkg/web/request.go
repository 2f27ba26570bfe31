package web

import (
	"maps"
	"net/http"
	"strings"
	"sync"
)

// Request is one in-flight HTTP request as seen by handlers.
type Request struct {
	*http.Request

	mu      sync.RWMutex
	params  map[string]string
	baseURL string
	path    string
	ext     *Bag
}

// NewRequest wraps r. The routing path starts as r.URL.Path.
func NewRequest(r *http.Request) *Request {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	return &Request{
		Request: r,
		params:  map[string]string{},
		path:    path,
		ext:     NewBag(),
	}
}

// Ext returns the request's extension bag.
func (r *Request) Ext() *Bag {
	return r.ext
}

// Param returns the route param name captured by the current registration.
func (r *Request) Param(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[name]
}

// Params returns a copy of the current route params.
func (r *Request) Params() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.params)
}

// Path returns the path relative to the current mount point.
func (r *Request) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// BaseURL returns the mount prefix stripped from Path by enclosing routers.
func (r *Request) BaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseURL
}

// Route is the routing state of a Request: its params, mount prefix and
// relative path. Dispatchers save and restore it around nested dispatch.
type Route struct {
	Params  map[string]string
	BaseURL string
	Path    string
}

// Route returns the current routing state.
func (r *Request) Route() Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Route{Params: r.params, BaseURL: r.baseURL, Path: r.path}
}

// SetRoute replaces the routing state. It is meant for dispatchers.
func (r *Request) SetRoute(rt Route) {
	if rt.Params == nil {
		rt.Params = map[string]string{}
	}
	r.mu.Lock()
	r.params = rt.Params
	r.baseURL = rt.BaseURL
	r.path = rt.Path
	r.mu.Unlock()
}

// Mount strips prefix from the relative path, appends it to the base URL and
// installs params. It returns the routing state to restore once the mounted
// handler continues.
func (r *Request) Mount(prefix string, params map[string]string) Route {
	prev := r.Route()
	prefix = strings.TrimSuffix(prefix, "/")
	rest := strings.TrimPrefix(prev.Path, prefix)
	if rest == "" || rest[0] != '/' {
		rest = "/" + rest
	}
	r.SetRoute(Route{Params: params, BaseURL: prev.BaseURL + prefix, Path: rest})
	return prev
}
