// Package examplehandler is the canonical handler used by cmd/emberd's
// default configuration and by the worker package's tests: it answers every request
// with a fixed 200 OK body, enough to exercise a full request/response
// round trip against a trivial handler without any application logic.
package examplehandler

import (
	"github.com/smukkama/emberd/internal/handler"
	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
)

// Hello answers every request with "Hello world!\n" regardless of method
// or path, and is safe for concurrent invocation since it holds no state.
type Hello struct{}

// ThreadSafe reports true: Hello touches no shared state.
func (Hello) ThreadSafe() bool { return true }

// Invoke implements handler.Handler.
func (Hello) Invoke(req *request.Request) response.Response {
	headers := []response.Header{
		{Name: "Content-type", Value: "text/plain"},
	}
	return response.NewText(200, headers, []byte("Hello world!\n"))
}

var _ handler.Handler = Hello{}
