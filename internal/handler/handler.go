// Package handler defines the application boundary a worker crosses to
// turn a parsed request.Request into a response.Response, and an
// exclusion lock around that boundary: by default only one worker may be
// inside a Handler's Invoke at a time, since application code cannot be
// assumed reentrant. A handler that already guards its own state may opt
// out by reporting ThreadSafe.
package handler

import (
	"sync"

	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
)

// Handler is the application code a worker invokes once a request has
// finished parsing.
type Handler interface {
	// Invoke produces the response for req. It must not block on anything
	// other than the work the response genuinely requires; the exclusion
	// lock around this call is released as soon as Invoke returns, before
	// any blocking write-loop begins.
	Invoke(req *request.Request) response.Response
	// ThreadSafe reports whether Invoke may run concurrently from more
	// than one worker goroutine at once. Most handlers should embed Unsafe
	// and report false.
	ThreadSafe() bool
}

// Unsafe is embedded by handlers that have not been written to tolerate
// concurrent Invoke calls, which is the common case and the conservative
// default.
type Unsafe struct{}

// ThreadSafe always reports false for Unsafe.
func (Unsafe) ThreadSafe() bool { return false }

// Registry wraps a single Handler with the exclusion lock its ThreadSafe
// flag requires. Every worker shares one Registry per listener.
type Registry struct {
	h  Handler
	mu sync.Mutex
}

// NewRegistry wraps h for use by the worker pool.
func NewRegistry(h Handler) *Registry {
	return &Registry{h: h}
}

// Invoke runs the wrapped handler, taking the exclusion lock first unless
// the handler has opted out via ThreadSafe.
func (g *Registry) Invoke(req *request.Request) response.Response {
	if g.h.ThreadSafe() {
		return g.h.Invoke(req)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.h.Invoke(req)
}
