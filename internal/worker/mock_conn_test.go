package worker

import (
	"errors"
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

// mockConn is an in-memory transport.Connection double that lets a test
// script exactly which writes succeed, which would-block, and which fail
// fatally, without needing a real socket pair.
type mockConn struct {
	mu sync.Mutex

	readData []byte
	readPos  int
	readErr  error

	writes      [][]byte
	blockNext   int // number of subsequent writes that should return EAGAIN
	failAfter   int // -1 means never fail; else every write once writeCount exceeds failAfter fails with writeErr
	writeCount  int
	writeErr    error
	closed      bool
	blockingSet bool
}

func newMockConn(request string) *mockConn {
	return &mockConn{readData: []byte(request), failAfter: -1}
}

func (m *mockConn) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	if m.readPos >= len(m.readData) {
		return 0, unix.EAGAIN
	}
	n := copy(b, m.readData[m.readPos:])
	m.readPos += n
	return n, nil
}

func (m *mockConn) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCount++
	if m.blockNext > 0 {
		m.blockNext--
		return 0, unix.EAGAIN
	}
	if m.failAfter >= 0 && m.writeCount > m.failAfter {
		if m.writeErr == nil {
			return 0, errors.New("mock: fatal write error")
		}
		return 0, m.writeErr
	}
	cp := append([]byte(nil), b...)
	m.writes = append(m.writes, cp)
	return len(b), nil
}

func (m *mockConn) Fd() int              { return -1 }
func (m *mockConn) PeerAddr() string     { return "mock-peer" }
func (m *mockConn) SetBlocking(bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockingSet = true
	return nil
}
func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) allWritten() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ io.Closer = (*mockConn)(nil)
