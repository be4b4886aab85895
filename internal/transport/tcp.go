package transport

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// tcpListener wraps a raw, non-blocking-capable IPv4 TCP listening socket.
type tcpListener struct {
	fd   int
	addr string
	// keep retains the *os.File backing an activation-derived fd so its
	// finalizer never closes the descriptor out from under us. nil for
	// listeners this package created itself.
	keep *os.File
}

// ListenTCP binds and listens on addr ("host:port"; host may be empty for
// all interfaces). backlog <= 0 falls back to DefaultBacklog.
func ListenTCP(addr string, backlog int) (Listener, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	host, portStr := ParseAddress(addr)
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid tcp port in %q: %w", addr, err)
	}

	var ip net.IP
	if host == "" {
		ip = net.IPv4zero
	} else {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("transport: resolve %q: %w", host, err)
		}
		ip = ips[0].To4()
		if ip == nil {
			return nil, fmt.Errorf("transport: %q does not resolve to an IPv4 address", host)
		}
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}

	local, err := unix.Getsockname(fd)
	localAddr := addr
	if err == nil {
		if in4, ok := local.(*unix.SockaddrInet4); ok {
			localAddr = fmt.Sprintf("%s:%d", net.IP(in4.Addr[:]).String(), in4.Port)
		}
	}

	return &tcpListener{fd: fd, addr: localAddr}, nil
}

// newTCPListenerFromFd wraps an already-bound, already-listening fd
// inherited via socket activation.
func newTCPListenerFromFd(f *os.File) (Listener, error) {
	fd := int(f.Fd())
	addr := fmt.Sprintf("fd:%d", fd)
	if local, err := unix.Getsockname(fd); err == nil {
		if in4, ok := local.(*unix.SockaddrInet4); ok {
			addr = fmt.Sprintf("%s:%d", net.IP(in4.Addr[:]).String(), in4.Port)
		}
	}
	return &tcpListener{fd: fd, addr: addr, keep: f}, nil
}

func (l *tcpListener) Accept() (Connection, error) {
	connFd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	return &tcpConn{fd: connFd}, nil
}

func (l *tcpListener) Addr() string { return l.addr }
func (l *tcpListener) Fd() int      { return l.fd }
func (l *tcpListener) Kind() Kind   { return Tcp }
func (l *tcpListener) Close() error {
	if l.keep != nil {
		return l.keep.Close()
	}
	return unix.Close(l.fd)
}

// tcpConn is a single accepted TCP stream socket.
type tcpConn struct {
	fd int
}

func (c *tcpConn) Read(b []byte) (int, error) {
	n, err := unix.Read(c.fd, b)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, net.ErrClosed
	}
	return n, nil
}

func (c *tcpConn) Write(b []byte) (int, error) {
	return unix.Write(c.fd, b)
}

func (c *tcpConn) Fd() int { return c.fd }

func (c *tcpConn) PeerAddr() string {
	sa, err := unix.Getpeername(c.fd)
	if err != nil {
		return ""
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return net.IP(in4.Addr[:]).String()
	}
	return ""
}

func (c *tcpConn) SetBlocking(blocking bool) error {
	return unix.SetNonblock(c.fd, !blocking)
}

func (c *tcpConn) Close() error { return unix.Close(c.fd) }
