package worker

import (
	"testing"

	"github.com/smukkama/emberd/internal/poller"
	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
	"github.com/smukkama/emberd/internal/token"
)

func mustResponse() response.Response {
	return response.NewText(200, nil, []byte("ok"))
}

func newThrowawayPoller(t *testing.T) *poller.Poller {
	t.Helper()
	p, err := poller.New(poller.DefaultEventCapacity)
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}
	return p
}

// These tests drive the non-blocking helper functions directly against a
// mockConn, without needing a real epoll instance under test control:
// attemptWrite and finish only need a *poller.Poller for Register/
// Deregister calls, which we give a throwaway instance that never
// actually observes events.
func TestAttemptWriteStashesOnWouldBlockThenCompletesOnResume(t *testing.T) {
	ctx := newTestContext()
	conn := newMockConn("")
	conn.blockNext = 1 // first write attempt would-block, second succeeds

	req := request.New(100, conn.PeerAddr())
	ctx.Conns.Put(token.Token(1), conn, req)

	s := &stashed{conn: conn, req: req, resp: mustResponse()}
	active := map[token.Token]*stashed{1: s}

	p := newThrowawayPoller(t)
	defer p.Close()

	attemptWrite(ctx, p, active, token.Token(1), s)
	if !s.writing {
		t.Fatal("expected response to be stashed as writing after a would-block")
	}
	if _, stillActive := active[token.Token(1)]; !stillActive {
		t.Fatal("expected connection to remain active while stashed")
	}

	attemptWrite(ctx, p, active, token.Token(1), s)
	if _, stillActive := active[token.Token(1)]; stillActive {
		t.Fatal("expected connection to be finished once fully written")
	}
	if !conn.isClosed() {
		t.Fatal("expected connection to be closed on completion")
	}
	if _, _, ok := ctx.Conns.Get(token.Token(1)); ok {
		t.Fatal("expected registry entry to be removed on completion")
	}
}

func TestAcceptIntoWorkerInvokesHandlerAndWritesOptimistically(t *testing.T) {
	ctx := newTestContext()
	conn := newMockConn("")
	req := newCompleteRequest(t, conn.PeerAddr(), "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	ctx.Conns.Put(token.Token(3), conn, req)

	active := make(map[token.Token]*stashed)
	p := newThrowawayPoller(t)
	defer p.Close()

	acceptIntoWorker(ctx, p, active, token.Token(3))

	if !conn.isClosed() {
		t.Fatal("expected a small response to complete on the optimistic write and close the connection")
	}
	if _, stillActive := active[token.Token(3)]; stillActive {
		t.Fatal("expected the connection to be finished, not stashed, after a complete optimistic write")
	}
	out := conn.allWritten()
	if string(out[:15]) != "HTTP/1.1 200 OK" {
		t.Fatalf("unexpected response head: %q", out)
	}
}

func TestAttemptWriteFinishesOnFatalError(t *testing.T) {
	ctx := newTestContext()
	conn := newMockConn("")
	conn.failAfter = 0 // every write attempt fails fatally

	req := request.New(100, conn.PeerAddr())
	ctx.Conns.Put(token.Token(2), conn, req)

	resp := mustResponse()
	s := &stashed{conn: conn, req: req, resp: resp}
	active := map[token.Token]*stashed{2: s}

	p := newThrowawayPoller(t)
	defer p.Close()

	attemptWrite(ctx, p, active, token.Token(2), s)

	if !resp.Complete() {
		t.Fatal("expected response to be marked terminal after a fatal write error")
	}
	if _, stillActive := active[token.Token(2)]; stillActive {
		t.Fatal("expected connection to be removed from active set after fatal error")
	}
}
