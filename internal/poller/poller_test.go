//go:build linux

package poller

import (
	"testing"

	"github.com/smukkama/emberd/internal/token"
	"golang.org/x/sys/unix"
)

func TestPollerRegisterAndWritableEvent(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New(DefaultEventCapacity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	tok := token.Token(7)
	if err := p.Register(fds[0], tok, Writable); err != nil {
		t.Fatalf("Register: %v", err)
	}

	events, err := p.Poll(100)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Token != tok {
		t.Fatalf("expected token %d, got %d", tok, events[0].Token)
	}
	if !events[0].Writable {
		t.Fatalf("expected writable event, got %+v", events[0])
	}

	if err := p.Deregister(fds[0]); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
}

func TestPollerZeroTimeoutNoEvents(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New(DefaultEventCapacity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Register(fds[0], token.Token(1), Readable); err != nil {
		t.Fatalf("Register: %v", err)
	}

	events, err := p.Poll(0)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
