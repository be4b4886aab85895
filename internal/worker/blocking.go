package worker

import (
	"time"

	"github.com/smukkama/emberd/internal/pool"
	"github.com/smukkama/emberd/internal/queue"
	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
	"github.com/smukkama/emberd/internal/transport"
)

// Blocking returns a pool.WorkerFunc that monopolizes one connection at a
// time: invoke the handler against the already-complete request the
// acceptor dispatched, then write the response to completion with the
// socket in blocking mode. This is the simpler of the two strategies and
// the one a pool should fall back to when a listener's non-blocking mode
// switch is unavailable.
func Blocking(ctx *Context) pool.WorkerFunc {
	return func(id int, jobs *queue.Unbounded[pool.Job]) {
		for {
			j, err := jobs.Recv()
			if err != nil {
				return
			}
			if j.Shutdown {
				return
			}
			conn, req, ok := ctx.Conns.Get(j.Token)
			if !ok {
				continue
			}
			handleBlocking(ctx, conn, req)
			ctx.Conns.Remove(j.Token)
		}
	}
}

func handleBlocking(ctx *Context, conn transport.Connection, req *request.Request) {
	// A failed mode switch is logged and the connection handled anyway.
	// The acceptor left the socket non-blocking, so in that case a
	// would-block write ends the response like any other write error
	// (see writeToCompletion).
	if err := conn.SetBlocking(true); err != nil && ctx.Log != nil {
		ctx.Log.WithError(err).WithField("fd", conn.Fd()).Warn("set blocking mode failed, continuing")
	}

	start := time.Now()
	resp := ctx.Handlers.Invoke(req)
	req.SetResponse(resp)
	writeToCompletion(conn, resp)
	conn.Close()
	ctx.logCompletion(req, resp, start)
}

// writeToCompletion blocks until resp reports itself complete or a write
// fails fatally.
func writeToCompletion(conn transport.Connection, resp response.Response) {
	for {
		done, err := resp.WriteChunk(conn)
		if err != nil {
			resp.SetTerminal()
			return
		}
		if done {
			return
		}
	}
}
