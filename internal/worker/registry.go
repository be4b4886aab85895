// Package worker implements two worker strategies: a blocking worker that
// monopolizes one connection until its response is fully written, and a
// non-blocking worker that multiplexes many partially-written responses
// over its own epoll instance. Both pull pool.Job values off the shared
// dispatch queue and look up the connection and accumulating request they
// concern in a Registry populated by the acceptor.
package worker

import (
	"sync"

	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/token"
	"github.com/smukkama/emberd/internal/transport"
)

// Registry is the shared token-keyed table of live connections and their
// in-flight requests, handed from the acceptor to whichever worker a job
// is dispatched to. Remove always clears both maps together, so a
// connection can never outlive its request entry or vice versa.
type Registry struct {
	mu          sync.Mutex
	connections map[token.Token]transport.Connection
	requests    map[token.Token]*request.Request
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[token.Token]transport.Connection),
		requests:    make(map[token.Token]*request.Request),
	}
}

// Put registers a newly accepted connection and its accumulator under tok.
func (r *Registry) Put(tok token.Token, conn transport.Connection, req *request.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[tok] = conn
	r.requests[tok] = req
}

// Get looks up the connection and accumulator for tok.
func (r *Registry) Get(tok token.Token) (transport.Connection, *request.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[tok]
	if !ok {
		return nil, nil, false
	}
	return conn, r.requests[tok], true
}

// Remove clears both maps for tok. Always call this on every terminal
// disposition (clean close, fatal write error, failed dispatch) so the
// two maps never drift out of sync.
func (r *Registry) Remove(tok token.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, tok)
	delete(r.requests, tok)
}

// Len reports the number of live connections, for shutdown bookkeeping.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}
