// Package token identifies connections inside a worker's poller
// registration space.
package token

import "sync/atomic"

// Token is an opaque identifier for a connection within one worker's
// registration space. Unlike the source this is based on, the zero value
// carries no special meaning: shutdown is signalled by pool.Job's Shutdown
// flag, not by a reserved token (see DESIGN.md).
type Token uint64

// Allocator hands out monotonically increasing tokens, safe for concurrent
// use by multiple acceptor goroutines.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator returns an Allocator whose first Next() call returns 1. The
// gateway has no reserved token value, but starting at 1 keeps token log
// output visually distinct from zero-valued struct fields in traces.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.next.Store(1)
	return a
}

// Next returns the next token, never repeating a value for the lifetime of
// the allocator.
func (a *Allocator) Next() Token {
	return Token(a.next.Add(1) - 1)
}
