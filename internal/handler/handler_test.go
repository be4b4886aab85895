package handler

import (
	"sync"
	"testing"
	"time"

	"github.com/smukkama/emberd/internal/request"
	"github.com/smukkama/emberd/internal/response"
)

type slowHandler struct {
	Unsafe
	concurrent *int32
	maxSeen    *int32
	mu         *sync.Mutex
}

func (s *slowHandler) Invoke(req *request.Request) response.Response {
	s.mu.Lock()
	*s.concurrent++
	if *s.concurrent > *s.maxSeen {
		*s.maxSeen = *s.concurrent
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	*s.concurrent--
	s.mu.Unlock()

	return response.NewText(200, nil, []byte("ok"))
}

func TestRegistrySerializesUnsafeHandler(t *testing.T) {
	var concurrent, maxSeen int32
	var mu sync.Mutex
	reg := NewRegistry(&slowHandler{concurrent: &concurrent, maxSeen: &maxSeen, mu: &mu})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Invoke(request.New(100, "peer"))
		}()
	}
	wg.Wait()

	if maxSeen > 1 {
		t.Fatalf("expected handler invocations to be serialized, saw %d concurrent", maxSeen)
	}
}

type threadSafeHandler struct{}

func (threadSafeHandler) Invoke(req *request.Request) response.Response {
	return response.NewText(200, nil, []byte("ok"))
}
func (threadSafeHandler) ThreadSafe() bool { return true }

func TestRegistryAllowsConcurrentThreadSafeHandler(t *testing.T) {
	reg := NewRegistry(threadSafeHandler{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if resp := reg.Invoke(request.New(100, "peer")); resp == nil {
				t.Errorf("expected non-nil response")
			}
		}()
	}
	wg.Wait()
}
