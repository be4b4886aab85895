package worker

import (
	"errors"
	"time"

	"github.com/smukkama/emberd/internal/poller"
	"github.com/smukkama/emberd/internal/pool"
	"github.com/smukkama/emberd/internal/queue"
	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
	"github.com/smukkama/emberd/internal/token"
	"github.com/smukkama/emberd/internal/transport"
)

// stashed is the bookkeeping a non-blocking worker keeps per active
// connection: the already-parsed request, the response being written, and
// whether the connection is currently registered for write readiness. The
// acceptor has already read the request to completion before dispatch, so
// a non-blocking worker only ever multiplexes the write half.
type stashed struct {
	conn    transport.Connection
	req     *request.Request
	resp    response.Response
	writing bool
	start   time.Time
}

// NonBlocking returns a pool.WorkerFunc that multiplexes many in-flight
// responses over a single epoll instance private to this worker. When the
// worker holds no stashed connections it blocks on the job queue to
// conserve CPU; once it holds at least one, it interleaves a non-blocking
// job check with a zero-timeout readiness poll so it keeps making progress
// on every stashed response without starving new dispatches.
func NonBlocking(ctx *Context) pool.WorkerFunc {
	return func(id int, jobs *queue.Unbounded[pool.Job]) {
		p, err := poller.New(poller.DefaultEventCapacity)
		if err != nil {
			if ctx.Log != nil {
				ctx.Log.WithError(err).Error("non-blocking worker could not start poller")
			}
			return
		}
		defer p.Close()

		active := make(map[token.Token]*stashed)
		draining := false

		for {
			if !draining {
				var j pool.Job
				var recvErr error
				if len(active) == 0 {
					j, recvErr = jobs.Recv()
				} else {
					j, recvErr = jobs.TryRecv()
				}
				switch {
				case recvErr == nil:
					if j.Shutdown {
						draining = true
					} else {
						acceptIntoWorker(ctx, p, active, j.Token)
					}
				case errors.Is(recvErr, queue.ErrClosed):
					draining = true
				case errors.Is(recvErr, queue.ErrEmpty):
					// Nothing queued right now; fall through to poll.
				}
			}

			if draining && len(active) == 0 {
				return
			}

			events, err := p.Poll(0)
			if err != nil {
				if ctx.Log != nil {
					ctx.Log.WithError(err).Error("poll failed")
				}
				continue
			}

			for _, ev := range events {
				s, ok := active[ev.Token]
				if !ok {
					continue
				}
				if ev.Writable {
					attemptWrite(ctx, p, active, ev.Token, s)
				}
			}
		}
	}
}

// acceptIntoWorker takes ownership of a freshly dispatched, already-complete
// request: invoke the handler and make the optimistic first write attempt
// before ever registering with the poller, since the write frequently
// completes without blocking at all.
func acceptIntoWorker(ctx *Context, p *poller.Poller, active map[token.Token]*stashed, tok token.Token) {
	conn, req, ok := ctx.Conns.Get(tok)
	if !ok {
		return
	}
	if err := conn.SetBlocking(false); err != nil {
		if ctx.Log != nil {
			ctx.Log.WithError(err).WithField("fd", conn.Fd()).Warn("set non-blocking mode failed, continuing")
		}
	}

	resp := ctx.Handlers.Invoke(req)
	req.SetResponse(resp)
	s := &stashed{conn: conn, req: req, resp: resp, start: time.Now()}
	active[tok] = s
	attemptWrite(ctx, p, active, tok, s)
}

func attemptWrite(ctx *Context, p *poller.Poller, active map[token.Token]*stashed, tok token.Token, s *stashed) {
	done, err := s.resp.WriteChunk(s.conn)
	if err != nil && !transport.WouldBlock(err) {
		s.resp.SetTerminal()
		finish(ctx, p, active, tok, s)
		return
	}
	if err == nil && done {
		finish(ctx, p, active, tok, s)
		return
	}
	// Either a partial write (done=false, err=nil) or a would-block on this
	// attempt: stash the response and wait for the next writable event.
	if !s.writing {
		s.writing = true
		_ = p.Deregister(s.conn.Fd())
		_ = p.Register(s.conn.Fd(), tok, poller.Writable)
	}
}

// finish tears down a connection that hit a fatal write error or a fully
// written response, always clearing both the local active map and the
// shared Registry together so the two never drift out of sync.
func finish(ctx *Context, p *poller.Poller, active map[token.Token]*stashed, tok token.Token, s *stashed) {
	if s.writing {
		_ = p.Deregister(s.conn.Fd())
	}
	s.conn.Close()
	delete(active, tok)
	ctx.Conns.Remove(tok)
	ctx.logCompletion(s.req, s.resp, s.start)
}
