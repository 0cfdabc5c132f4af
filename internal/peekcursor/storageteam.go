package peekcursor

import (
	"context"
	"math/rand"

	"github.com/google/uuid"

	"github.com/flowguru/foundationdb/internal/peekrpc"
	"github.com/flowguru/foundationdb/internal/wire"
	"github.com/flowguru/foundationdb/pkg/log"
)

// StorageTeamPeekCursor is a single-stream cursor over one storage team's
// committed mutation channel. It issues peek RPCs against one of several
// interchangeable endpoints, tracks the next version to request (nextBegin)
// separately from the last version it has received (lastVersion), and
// lazily deserializes the most recent reply.
type StorageTeamPeekCursor struct {
	teamID    wire.StorageTeamID
	endpoints []string
	client    peekrpc.PeekClient
	logger    log.Logger

	beginVersion uint64
	nextBegin    uint64
	lastVersion  uint64

	maxKnownVersion          uint64
	minKnownCommittedVersion uint64

	deser *wire.Deserializer

	// head/headValid cache the next visible VSM so Get() can peek without
	// consuming it from the deserializer; HasRemaining fills this cache,
	// skipping hidden empty-version records as it does so.
	head      wire.VSM
	headValid bool

	// reportEmptyVersion controls whether HasRemaining surfaces
	// MessageEmptyVersion records or silently skips them. A standalone
	// consumer (a storage-server replayer interested only in mutations)
	// wants them hidden; a BroadcastCursor needs to see them to keep
	// members aligned, and constructs every member with this set to true.
	reportEmptyVersion bool

	// lastReply is the bytes of the most recent successful reply, retained
	// so Reset can rebuild a fresh deserializer over it without a network
	// round trip.
	lastReply []byte
}

var _ Cursor = (*StorageTeamPeekCursor)(nil)

// StorageTeamCursorOption configures a StorageTeamPeekCursor at construction.
type StorageTeamCursorOption func(*StorageTeamPeekCursor)

// WithReportEmptyVersion makes MessageEmptyVersion records visible to
// HasRemaining/Get/Next instead of silently skipped.
func WithReportEmptyVersion(report bool) StorageTeamCursorOption {
	return func(c *StorageTeamPeekCursor) { c.reportEmptyVersion = report }
}

// WithLogger overrides the default no-op logger.
func WithLogger(l log.Logger) StorageTeamCursorOption {
	return func(c *StorageTeamPeekCursor) { c.logger = l }
}

// NewStorageTeamPeekCursor constructs a cursor starting at beginVersion
// (inclusive) over teamID, able to peek any of endpoints (non-empty).
func NewStorageTeamPeekCursor(teamID wire.StorageTeamID, endpoints []string, client peekrpc.PeekClient, beginVersion uint64, opts ...StorageTeamCursorOption) *StorageTeamPeekCursor {
	if len(endpoints) == 0 {
		panic("peekcursor: StorageTeamPeekCursor requires at least one endpoint")
	}
	c := &StorageTeamPeekCursor{
		teamID:       teamID,
		endpoints:    append([]string(nil), endpoints...),
		client:       client,
		logger:       log.NewLogger(log.WithOutput(log.NewNullOutput())),
		beginVersion: beginVersion,
		nextBegin:    beginVersion,
		lastVersion:  beginVersion,
		deser:        wire.NewDeserializer(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TeamID returns the storage team this cursor reads.
func (c *StorageTeamPeekCursor) TeamID() wire.StorageTeamID { return c.teamID }

// HasRemaining reports whether a visible VSM is buffered. When
// reportEmptyVersion is false it discards leading MessageEmptyVersion
// records from the deserializer as a side effect of looking past them.
func (c *StorageTeamPeekCursor) HasRemaining() bool {
	if c.headValid {
		return true
	}
	for c.deser.HasNext() {
		v := c.deser.Next()
		if c.reportEmptyVersion || v.Message.Type != wire.MessageEmptyVersion {
			c.head = v
			c.headValid = true
			return true
		}
	}
	return false
}

// Get returns the current head VSM without advancing.
func (c *StorageTeamPeekCursor) Get() (wire.VSM, bool) {
	if !c.HasRemaining() {
		return wire.VSM{}, false
	}
	return c.head, true
}

// Next advances past the head VSM. Precondition: HasRemaining().
func (c *StorageTeamPeekCursor) Next() {
	c.headValid = false
}

// Version returns the version of the current head, or false if there is
// none buffered.
func (c *StorageTeamPeekCursor) Version() (uint64, bool) {
	v, ok := c.Get()
	if !ok {
		return 0, false
	}
	return v.Version, true
}

// Compare orders two cursors by the (Version, Subsequence) of their heads.
// Cursors with no remaining data sort last.
func (c *StorageTeamPeekCursor) Compare(other *StorageTeamPeekCursor) int {
	av, aok := c.Get()
	bv, bok := other.Get()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	case av.Less(bv):
		return -1
	case bv.Less(av):
		return 1
	default:
		return 0
	}
}

// RemoteMoreAvailable issues one peek RPC through the cursor's PeekClient
// and loads the reply into the deserializer. It picks one of endpoints
// uniformly at random and records it in the debug log; the PeekClient is
// not told which endpoint was picked, so the RPC goes wherever that client
// is connected.
func (c *StorageTeamPeekCursor) RemoteMoreAvailable(ctx context.Context) (bool, error) {
	endpoint := c.endpoints[rand.Intn(len(c.endpoints))]
	req := &peekrpc.PeekRequest{
		DebugID:      uuid.New(),
		TeamID:       c.teamID,
		BeginVersion: c.nextBegin,
		EndVersion:   peekrpc.EndVersionUnbounded,
	}
	c.logger.Debug("storageteam.get_more",
		log.Str("team", string(c.teamID)),
		log.Str("endpoint", endpoint),
		log.Uint64("begin_version", req.BeginVersion),
	)
	reply, err := c.client.Peek(ctx, req)
	if err != nil {
		c.logger.Debug("storageteam.get_more_failed", log.Str("team", string(c.teamID)), log.Err(err))
		return false, err
	}

	d := wire.NewDeserializer(reply.Data)
	if d.Empty() {
		return false, nil
	}

	c.deser = d
	c.lastReply = reply.Data
	c.maxKnownVersion = reply.MaxKnownVersion
	c.minKnownCommittedVersion = reply.MinKnownCommittedVersion
	c.lastVersion = reply.EndVersion - 1
	c.nextBegin = reply.EndVersion
	c.headValid = false
	return true, nil
}

// Reset rewinds to the state immediately after the last successful
// RemoteMoreAvailable. No network I/O.
func (c *StorageTeamPeekCursor) Reset() {
	c.deser = wire.NewDeserializer(c.lastReply)
	c.headValid = false
}

// FastForwardTo discards buffered records strictly below minVersion. Used
// by a BroadcastCursor's Reset to align a member's local iterator with the
// shared currentVersion after a snapshot restore, without any network I/O.
func (c *StorageTeamPeekCursor) FastForwardTo(minVersion uint64) {
	for c.HasRemaining() {
		v, _ := c.Get()
		if v.Version >= minVersion {
			return
		}
		c.Next()
	}
}

// MaxKnownVersion returns the most recently reported advisory high
// watermark for this team.
func (c *StorageTeamPeekCursor) MaxKnownVersion() uint64 { return c.maxKnownVersion }

// MinKnownCommittedVersion returns the most recently reported advisory low
// watermark for this team.
func (c *StorageTeamPeekCursor) MinKnownCommittedVersion() uint64 {
	return c.minKnownCommittedVersion
}

// LastVersion returns the highest version this cursor has received from the
// remote so far.
func (c *StorageTeamPeekCursor) LastVersion() uint64 { return c.lastVersion }
