package transport

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestParseAddressHostPort(t *testing.T) {
	host, port := ParseAddress("127.0.0.1:8080")
	if host != "127.0.0.1" || port != "8080" {
		t.Fatalf("unexpected parse: host=%q port=%q", host, port)
	}
}

func TestParseAddressPath(t *testing.T) {
	host, port := ParseAddress("/run/emberd.sock")
	if host != "/run/emberd.sock" || port != "" {
		t.Fatalf("unexpected parse: host=%q port=%q", host, port)
	}
}

func TestWouldBlock(t *testing.T) {
	if !WouldBlock(unix.EAGAIN) {
		t.Fatal("expected EAGAIN to be classified as would-block")
	}
	if !WouldBlock(unix.EWOULDBLOCK) {
		t.Fatal("expected EWOULDBLOCK to be classified as would-block")
	}
	if WouldBlock(unix.ECONNRESET) {
		t.Fatal("expected ECONNRESET to not be classified as would-block")
	}
}

func TestKindString(t *testing.T) {
	if Tcp.String() != "tcp" {
		t.Fatalf("expected tcp, got %q", Tcp.String())
	}
	if UnixDomain.String() != "unix" {
		t.Fatalf("expected unix, got %q", UnixDomain.String())
	}
}

func TestTCPListenAcceptRoundTrip(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer l.Close()

	if l.Kind() != Tcp {
		t.Fatalf("expected Tcp kind, got %v", l.Kind())
	}

	clientDone := make(chan error, 1)
	go func() {
		fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
		if err != nil {
			clientDone <- err
			return
		}
		defer unix.Close(fd)

		host, portStr := ParseAddress(l.Addr())
		_ = host
		var sa unix.SockaddrInet4
		sa.Port = mustAtoi(portStr)
		copy(sa.Addr[:], []byte{127, 0, 0, 1})
		clientDone <- unix.Connect(fd, &sa)
	}()

	conn, err := l.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer conn.Close()

	if err := <-clientDone; err != nil {
		t.Fatalf("client connect: %v", err)
	}
	if conn.Fd() < 0 {
		t.Fatal("expected a valid fd")
	}
}

func mustAtoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
