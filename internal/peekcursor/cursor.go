// Package peekcursor implements the streaming cursor protocol over one or
// more remote transaction-log storage-team channels: single-stream cursors,
// their ordered/unordered broadcast merge, advanceTo seeking, and a
// latency-aware pipelined cursor over a single live endpoint.
package peekcursor

import (
	"context"
	"iter"

	"github.com/flowguru/foundationdb/internal/wire"
)

// Cursor is the uniform iteration protocol every concrete cursor in this
// package implements: StorageTeamPeekCursor, the two BroadcastCursor
// variants, and ServerPeekCursor.
//
// Cursors are not safe for concurrent use by multiple goroutines.
type Cursor interface {
	// HasRemaining reports whether a VSM is locally buffered and visible.
	// It may skip and discard hidden MessageEmptyVersion records as a side
	// effect, mutating iterator position — that mutation is an explicit,
	// documented part of the call, not an oversight.
	HasRemaining() bool

	// Get returns the head element without advancing. ok is false iff
	// HasRemaining() is false.
	Get() (vsm wire.VSM, ok bool)

	// Next advances past the head element. Precondition: HasRemaining().
	Next()

	// RemoteMoreAvailable performs one round of remote fetch. It returns
	// true if new data was loaded, false if the fetch came back empty
	// within the retry budget (caller should try again), and
	// ErrEndOfStream if the remote side reports permanent closure.
	RemoteMoreAvailable(ctx context.Context) (bool, error)

	// Reset rewinds to the state immediately after the last successful
	// RemoteMoreAvailable. Idempotent. Never issues network calls.
	Reset()
}

// Iterate returns a one-shot forward iter.Seq[wire.VSM] over c's
// already-buffered data — it never calls RemoteMoreAvailable itself. A
// caller that wants to block for remote data should drive RemoteMoreAvailable
// directly and call Iterate again once it returns true.
//
// The returned sequence is not safe to use concurrently with direct Next()
// calls on c; pick one driving style per cursor lifetime.
func Iterate(c Cursor) iter.Seq[wire.VSM] {
	return func(yield func(wire.VSM) bool) {
		for c.HasRemaining() {
			v, ok := c.Get()
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
			c.Next()
		}
	}
}

// Iterator is an explicit pause/resume handle over a Cursor, for callers
// that cannot express their consumption as a single range-over-func loop
// (e.g. interleaving reads from several cursors by hand).
type Iterator struct {
	cursor Cursor
}

// NewIterator wraps c in an explicit Iterator.
func NewIterator(c Cursor) *Iterator { return &Iterator{cursor: c} }

// HasNext reports whether Next would yield a value without blocking.
func (it *Iterator) HasNext() bool { return it.cursor.HasRemaining() }

// Next returns the next buffered VSM and advances past it.
// Precondition: HasNext().
func (it *Iterator) Next() wire.VSM {
	v, _ := it.cursor.Get()
	it.cursor.Next()
	return v
}
