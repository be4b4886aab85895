package pool

import (
	"sync"

	"github.com/smukkama/emberd/internal/queue"
)

// WorkerFunc is the loop body a pool worker goroutine runs: pull jobs from
// the shared queue, dispatching on Job.Shutdown, until told to stop. id is
// a stable 0-based index a worker can use to size its own per-worker state
// (e.g. an epoll instance's token-to-connection maps).
type WorkerFunc func(id int, jobs *queue.Unbounded[Job])

// Pool is the fixed-size worker-pool dispatcher, built around an
// unbounded job queue and the Job tagged union.
type Pool struct {
	jobs *queue.Unbounded[Job]
	wg   sync.WaitGroup
	size int
}

// New starts size worker goroutines, each running run against the pool's
// shared job queue, and returns the pool ready to accept dispatches.
func New(size int, run WorkerFunc) *Pool {
	p := &Pool{
		jobs: queue.New[Job](),
		size: size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			run(id, p.jobs)
		}(i)
	}
	return p
}

// Dispatch enqueues j. It never blocks, since the underlying
// queue is unbounded.
func (p *Pool) Dispatch(j Job) error {
	return p.jobs.Send(j)
}

// Shutdown enqueues one shutdown job per worker, so every worker observes
// exactly one and returns. Jobs already queued ahead of the shutdown
// signals are still drained first, giving in-flight connections a chance
// to finish.
func (p *Pool) Shutdown() {
	for i := 0; i < p.size; i++ {
		p.jobs.Send(ShutdownJob())
	}
}

// Join blocks until every worker goroutine has returned.
func (p *Pool) Join() {
	p.wg.Wait()
}
