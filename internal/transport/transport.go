// Package transport gives the gateway a uniform view over TCP and Unix
// domain stream sockets: a Listener/Connection capability pair that can be
// toggled between blocking and non-blocking mode and registered with the
// poller, without callers ever branching on the underlying socket kind.
//
// Both variants operate on raw file descriptors via golang.org/x/sys/unix
// rather than net.Listener/net.Conn. Go's net package quietly hands
// accepted sockets to the runtime's own epoll instance; this gateway needs
// to drive its own poller (internal/poller) per worker, so it manages fds
// itself from accept() onward.
package transport

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Kind distinguishes the two listener variants this package supports.
type Kind int

const (
	Tcp Kind = iota
	UnixDomain
)

func (k Kind) String() string {
	if k == Tcp {
		return "tcp"
	}
	return "unix"
}

// Connection is a single accepted stream socket, exclusively owned by
// whichever component currently holds it: the acceptor until dispatch,
// then exactly one worker until the connection closes.
type Connection interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	// Fd exposes the raw descriptor for poller registration and for
	// response-serializer techniques (e.g. sendfile) that live outside
	// this package.
	Fd() int
	// PeerAddr reports the remote address (IP for Tcp, path for
	// UnixDomain), or "" if it cannot be determined.
	PeerAddr() string
	// SetBlocking toggles the descriptor's O_NONBLOCK flag.
	SetBlocking(blocking bool) error
	Close() error
}

// Listener accepts new Connections of a single Kind.
type Listener interface {
	Accept() (Connection, error)
	Addr() string
	Fd() int
	Kind() Kind
	Close() error
}

// WouldBlock classifies an I/O error as "retry when ready" versus fatal.
// Only EAGAIN/EWOULDBLOCK qualify.
func WouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// ParseAddress splits addr into (host, port) if it parses as host:port;
// otherwise the whole string is treated as a filesystem path and returned
// as (path, "").
func ParseAddress(addr string) (string, string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, ""
	}
	return host, port
}

// DefaultBacklog is used by callers that don't have an opinion on the
// listen() backlog.
const DefaultBacklog = 1024

// Listen opens a listener of the given kind at addr: ListenTCP for Tcp,
// ListenUnix for UnixDomain.
func Listen(kind Kind, addr string, backlog int) (Listener, error) {
	switch kind {
	case Tcp:
		return ListenTCP(addr, backlog)
	case UnixDomain:
		return ListenUnix(addr, backlog)
	default:
		return nil, fmt.Errorf("transport: unknown listener kind %v", kind)
	}
}
