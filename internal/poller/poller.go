//go:build linux

// Package poller is the readiness-notification primitive the non-blocking
// worker multiplexes stashed responses over: register(fd, token, interest),
// poll(events, timeout), deregister(fd). It wraps Linux epoll directly via
// golang.org/x/sys/unix, calling epoll_create1/epoll_ctl/epoll_wait
// directly rather than going through Go's runtime netpoller.
package poller

import (
	"errors"
	"fmt"

	"github.com/smukkama/emberd/internal/token"
	"golang.org/x/sys/unix"
)

// Interest describes which readiness kinds a registration cares about.
type Interest uint32

const (
	Readable Interest = unix.EPOLLIN
	Writable Interest = unix.EPOLLOUT
)

// Event is a single readiness notification.
type Event struct {
	Token    token.Token
	Readable bool
	Writable bool
}

// DefaultEventCapacity is the minimum event-buffer capacity a worker's
// poller is guaranteed to hold per Poll call.
const DefaultEventCapacity = 1024

// Poller is a single worker's epoll instance. Not safe for concurrent use
// by more than one goroutine; each worker owns exactly one and never lets
// it escape to another goroutine.
type Poller struct {
	epfd int
	raw  []unix.EpollEvent
}

// New creates an epoll instance with the given event-buffer capacity.
func New(eventCapacity int) (*Poller, error) {
	if eventCapacity < DefaultEventCapacity {
		eventCapacity = DefaultEventCapacity
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}
	return &Poller{
		epfd: epfd,
		raw:  make([]unix.EpollEvent, eventCapacity),
	}, nil
}

// Register adds fd to the poller's interest set keyed by tok.
func (p *Poller) Register(fd int, tok token.Token, interest Interest) error {
	ev := unix.EpollEvent{Events: uint32(interest), Fd: int32(fd)}
	// Token is stashed in the event's 64-bit union field so Poll can
	// recover it without a side table; EpollEvent.Fd already carries the
	// low 32 bits, so pack the token into Pad instead to survive fd reuse.
	ev.Pad = int32(tok)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Deregister removes fd from the poller's interest set. Must be called
// before the connection owning fd is closed, since epoll drops stale
// registrations silently only on close and a reused fd would otherwise
// collide with a new connection's registration.
func (p *Poller) Deregister(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("poller: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Poll blocks up to timeoutMillis (0 = return immediately, -1 = block
// forever) and returns the readiness events observed.
func (p *Poller) Poll(timeoutMillis int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.raw, timeoutMillis)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("poller: epoll_wait: %w", err)
	}
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		raw := p.raw[i]
		events = append(events, Event{
			Token:    token.Token(raw.Pad),
			Readable: raw.Events&uint32(unix.EPOLLIN) != 0,
			Writable: raw.Events&uint32(unix.EPOLLOUT) != 0,
		})
	}
	return events, nil
}

// Close releases the epoll instance.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
