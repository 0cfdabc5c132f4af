package peekcursor

import "github.com/flowguru/foundationdb/internal/peekrpc"

// These are re-exported from peekrpc so callers of this package never need
// to import peekrpc just to compare errors with errors.Is.
var (
	ErrEndOfStream       = peekrpc.ErrEndOfStream
	ErrTimeout           = peekrpc.ErrTimeout
	ErrOperationObsolete = peekrpc.ErrOperationObsolete
)
