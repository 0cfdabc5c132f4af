// Package peekrpc defines the wire contract for the Peek RPC: the request
// and reply shapes a PeekCursor sends to and receives from a TLog server,
// sentinel errors the cursor layer retries or surfaces on, and a
// google.golang.org/grpc transport binding for that contract.
package peekrpc

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/flowguru/foundationdb/internal/wire"
)

// EndVersionUnbounded marks a peek request with no upper version bound —
// "give me everything you have, and wait for more if there's nothing yet".
const EndVersionUnbounded uint64 = math.MaxUint64

// PeekRequest is what a PeekCursor sends to ask a TLog server for messages
// belonging to a storage team at or after BeginVersion.
type PeekRequest struct {
	DebugID         uuid.UUID
	TeamID          wire.StorageTeamID
	BeginVersion    uint64
	EndVersion      uint64
	ReturnIfBlocked bool
	OnlySpilled     bool
}

// PeekReply is a TLog server's response to a PeekRequest. Data holds zero or
// more wire.EncodeVersionGroup-framed version groups, decodable with
// wire.NewDeserializer.
type PeekReply struct {
	Data                     []byte
	BeginVersion             uint64
	EndVersion               uint64
	Popped                   *uint64
	MaxKnownVersion          uint64
	MinKnownCommittedVersion uint64
	OnlySpilled              bool
}

var (
	// ErrEndOfStream is returned by a PeekClient when the requested team's
	// log has been permanently retired and will never produce more data.
	ErrEndOfStream = errors.New("peekrpc: end of stream")
	// ErrTimeout is returned when a peek blocked past its deadline without
	// any data arriving.
	ErrTimeout = errors.New("peekrpc: timeout")
	// ErrOperationObsolete is returned when a request targets a version
	// range the server has already popped.
	ErrOperationObsolete = errors.New("peekrpc: operation obsolete")
)

// PeekClient is the cursor layer's view of a TLog server connection: issue a
// peek, get a reply or one of the sentinel errors above.
type PeekClient interface {
	Peek(ctx context.Context, req *PeekRequest) (*PeekReply, error)
}
