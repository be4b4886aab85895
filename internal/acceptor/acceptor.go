// Package acceptor runs the connection-accept loop: block in Accept on the
// listener, allocate a token, read the connection until the request parses
// as complete (or is discarded as malformed or oversized), register the
// connection in the shared worker.Registry, and dispatch a pool.Job so some
// worker picks it up. All request handling happens in the worker pool; the
// acceptor's job ends at a fully parsed, dispatch-ready request.
package acceptor

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/emberd/internal/pool"
	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/token"
	"github.com/smukkama/emberd/internal/transport"
	"github.com/smukkama/emberd/internal/worker"
)

// wouldBlockRetryInterval is how long readUntilParseable sleeps between
// retries on a non-blocking connection with nothing to read yet, so a
// slow client occupies the acceptor goroutine without spinning a CPU core.
const wouldBlockRetryInterval = time.Millisecond

// DefaultReadChunkSize is the per-Read buffer size used while accumulating
// an in-flight request, independent of the total size budget a request may
// grow to before the acceptor gives up on it.
const DefaultReadChunkSize = 8192

// DefaultMaxRequestBytes is the accumulated-request size budget applied
// when a caller leaves MaxRequestBytes unset.
const DefaultMaxRequestBytes = 64 * 1024

// Acceptor owns a listener and feeds accepted connections into a pool.
type Acceptor struct {
	listener   transport.Listener
	pool       *pool.Pool
	registry   *worker.Registry
	tokens     *token.Allocator
	maxHeaders int

	// maxRequestBytes bounds how many bytes an accumulating request may
	// reach before the acceptor closes the connection rather than letting
	// a client that never finishes a request head grow memory without
	// limit.
	maxRequestBytes int

	log *logrus.Entry

	stopCh chan struct{}
}

// New builds an acceptor over listener, dispatching accepted connections
// into p and tracking them in registry. maxRequestBytes <= 0 falls back to
// DefaultMaxRequestBytes.
func New(listener transport.Listener, p *pool.Pool, registry *worker.Registry, tokens *token.Allocator, maxHeaders, maxRequestBytes int, log *logrus.Entry) *Acceptor {
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	return &Acceptor{
		listener:        listener,
		pool:            p,
		registry:        registry,
		tokens:          tokens,
		maxHeaders:      maxHeaders,
		maxRequestBytes: maxRequestBytes,
		log:             log,
		stopCh:          make(chan struct{}),
	}
}

// Run blocks accepting connections until Stop is called or the listener
// is closed, then returns nil. Any other accept error is logged and the
// loop continues. Intended to be run on its own goroutine.
func (a *Acceptor) Run() error {
	for {
		select {
		case <-a.stopCh:
			return nil
		default:
		}

		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-a.stopCh:
				return nil
			default:
			}
			if a.log != nil {
				a.log.WithError(err).Warn("accept failed")
			}
			continue
		}

		if err := conn.SetBlocking(false); err != nil && a.log != nil {
			a.log.WithError(err).WithField("fd", conn.Fd()).Warn("set non-blocking mode failed, continuing")
		}

		tok := a.tokens.Next()
		req := request.New(a.maxHeaders, conn.PeerAddr())

		if !a.readUntilParseable(conn, req) {
			continue
		}

		a.registry.Put(tok, conn, req)

		if err := a.pool.Dispatch(pool.WorkJob(tok)); err != nil {
			if a.log != nil {
				a.log.WithError(err).Warn("dispatch failed, closing connection")
			}
			conn.Close()
			a.registry.Remove(tok)
		}
	}
}

// readUntilParseable reads conn into req until Parse reports Complete,
// closing and returning false on a malformed request, a size-budget
// overflow, or a fatal read error. A would-block read (the connection is
// non-blocking and no bytes have arrived yet) is retried rather than
// treated as an error.
func (a *Acceptor) readUntilParseable(conn transport.Connection, req *request.Request) bool {
	buf := make([]byte, DefaultReadChunkSize)
	for {
		switch req.Parse() {
		case request.Complete:
			return true
		case request.Malformed:
			conn.Close()
			return false
		}

		if req.Len() >= a.maxRequestBytes {
			if a.log != nil {
				a.log.WithField("peer", req.PeerAddress).Warn("request exceeded size budget, closing")
			}
			conn.Close()
			return false
		}

		n, err := conn.Read(buf)
		if err != nil {
			if transport.WouldBlock(err) {
				time.Sleep(wouldBlockRetryInterval)
				continue
			}
			conn.Close()
			return false
		}
		if n == 0 {
			conn.Close()
			return false
		}
		req.Append(buf[:n])
	}
}

// Stop requests the accept loop to return and closes the listener so a
// blocked Accept call unblocks.
func (a *Acceptor) Stop() {
	close(a.stopCh)
	a.listener.Close()
}
