// Package pool is the worker-pool dispatcher: it owns the unbounded job
// queue the acceptor feeds and the fixed set of worker goroutines that
// drain it. A job is an explicit tagged union — either real work or a
// shutdown signal — never a token value that might collide with a real
// connection's token.
package pool

import "github.com/smukkama/emberd/internal/token"

// Job is the unit of work handed from the acceptor to a worker. Exactly
// one of the two dispositions applies; Shutdown is never inferred from a
// sentinel Token value.
type Job struct {
	// Token identifies the connection this job concerns. Zero when Shutdown
	// is true, since a shutdown job concerns no particular connection.
	Token token.Token
	// Shutdown, when true, tells the receiving worker to stop pulling jobs
	// and return instead of treating this as connection work.
	Shutdown bool
}

// WorkJob builds a Job carrying real connection work.
func WorkJob(tok token.Token) Job {
	return Job{Token: tok}
}

// ShutdownJob builds the sentinel job workers use to unwind cleanly.
func ShutdownJob() Job {
	return Job{Shutdown: true}
}
