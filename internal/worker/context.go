package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/emberd/internal/accesslog"
	"github.com/smukkama/emberd/internal/handler"
	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
)

// Context bundles the state every worker goroutine, blocking or
// non-blocking, needs regardless of strategy. Requests reach a worker
// already fully read and parsed by the acceptor, so workers only invoke
// the handler and write the response.
type Context struct {
	Conns    *Registry
	Handlers *handler.Registry
	Log      *logrus.Entry
	// AccessLog is optional; when nil, completed requests are not shipped
	// anywhere beyond the structured log line.
	AccessLog *accesslog.Sink
}

// logCompletion ships one access-log entry for a finished request, if an
// AccessLog sink is configured. Failures are logged and otherwise ignored:
// access logging must never hold up the connection it describes.
func (c *Context) logCompletion(req *request.Request, resp response.Response, start time.Time) {
	if c.AccessLog == nil || req == nil {
		return
	}
	status := 0
	if t, ok := resp.(interface{ Status() int }); ok {
		status = t.Status()
	}
	entry := accesslog.Entry{
		RequestID:   req.RequestID,
		Method:      req.Method,
		Path:        req.Path,
		Status:      status,
		PeerAddress: req.PeerAddress,
		DurationMs:  time.Since(start).Milliseconds(),
		At:          start,
	}
	if err := c.AccessLog.Publish(context.Background(), entry); err != nil && c.Log != nil {
		c.Log.WithError(err).Warn("access log publish failed")
	}
}
