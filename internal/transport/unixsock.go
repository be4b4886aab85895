package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// unixListener wraps a raw, non-blocking-capable Unix domain stream socket.
type unixListener struct {
	fd   int
	addr string
	keep *os.File
}

// ListenUnix binds and listens on the given filesystem path, removing any
// stale socket file left behind by a previous run. backlog <= 0 falls back
// to DefaultBacklog.
func ListenUnix(path string, backlog int) (Listener, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}

	sa := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: listen %s: %w", path, err)
	}

	return &unixListener{fd: fd, addr: path}, nil
}

// newUnixListenerFromFd wraps an already-bound, already-listening fd
// inherited via socket activation.
func newUnixListenerFromFd(f *os.File, path string) (Listener, error) {
	return &unixListener{fd: int(f.Fd()), addr: path, keep: f}, nil
}

func (l *unixListener) Accept() (Connection, error) {
	connFd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	return &unixConn{fd: connFd}, nil
}

func (l *unixListener) Addr() string { return l.addr }
func (l *unixListener) Fd() int      { return l.fd }
func (l *unixListener) Kind() Kind   { return UnixDomain }
func (l *unixListener) Close() error {
	defer os.Remove(l.addr)
	if l.keep != nil {
		return l.keep.Close()
	}
	return unix.Close(l.fd)
}

// unixConn is a single accepted Unix domain stream socket.
type unixConn struct {
	fd int
}

func (c *unixConn) Read(b []byte) (int, error) {
	n, err := unix.Read(c.fd, b)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("transport: connection closed")
	}
	return n, nil
}

func (c *unixConn) Write(b []byte) (int, error) {
	return unix.Write(c.fd, b)
}

func (c *unixConn) Fd() int { return c.fd }

// PeerAddr reports the remote socket's bound pathname, or "" if the peer is
// anonymous (the common case for a client created with connect()).
func (c *unixConn) PeerAddr() string {
	sa, err := unix.Getpeername(c.fd)
	if err != nil {
		return ""
	}
	if su, ok := sa.(*unix.SockaddrUnix); ok && su.Name != "" {
		return su.Name
	}
	return ""
}

func (c *unixConn) SetBlocking(blocking bool) error {
	return unix.SetNonblock(c.fd, !blocking)
}

func (c *unixConn) Close() error { return unix.Close(c.fd) }
