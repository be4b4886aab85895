package transport

import (
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"
)

// FromActivation builds a Listener from the file descriptor inherited from
// the init system. activation.Files parses the conventional LISTEN_FDS /
// LISTEN_PID environment variables; this function only takes the first
// descriptor, verifies its socket family against kind, and forces it
// non-blocking before wrapping it.
//
// unixPath is only consulted when kind is UnixDomain, since an inherited
// Unix socket's own filesystem path cannot always be recovered from the fd
// alone (and isn't needed for accept()/read()/write()).
func FromActivation(kind Kind, unixPath string) (Listener, error) {
	files := activation.Files(false)
	if len(files) == 0 {
		return nil, fmt.Errorf("transport: socket activation requested but no file descriptors were inherited")
	}
	return fromActivationFile(files[0], kind, unixPath)
}

func fromActivationFile(f *os.File, kind Kind, unixPath string) (Listener, error) {
	fd := int(f.Fd())

	domain, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_DOMAIN)
	if err != nil {
		return nil, fmt.Errorf("transport: could not inspect inherited fd %d: %w", fd, err)
	}

	switch kind {
	case Tcp:
		if domain != unix.AF_INET && domain != unix.AF_INET6 {
			return nil, fmt.Errorf("transport: inherited fd %d is not an inet socket (domain=%d)", fd, domain)
		}
	case UnixDomain:
		if domain != unix.AF_UNIX {
			return nil, fmt.Errorf("transport: inherited fd %d is not a unix socket (domain=%d)", fd, domain)
		}
	default:
		return nil, fmt.Errorf("transport: unknown listener kind %v", kind)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("transport: set inherited fd %d non-blocking: %w", fd, err)
	}

	if kind == Tcp {
		return newTCPListenerFromFd(f)
	}
	return newUnixListenerFromFd(f, unixPath)
}

// FromActivationPreferTCP breaks the tie when socket activation is
// requested without a specific kind: try Tcp first; on any failure try
// UnixDomain against the same inherited descriptor; fail startup if
// neither matches.
func FromActivationPreferTCP(unixPath string) (Listener, error) {
	files := activation.Files(false)
	if len(files) == 0 {
		return nil, fmt.Errorf("transport: socket activation requested but no file descriptors were inherited")
	}
	f := files[0]

	if l, err := fromActivationFile(f, Tcp, unixPath); err == nil {
		return l, nil
	}
	l, err := fromActivationFile(f, UnixDomain, unixPath)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: socket activation failed for both tcp and unix: %w", err)
	}
	return l, nil
}
