package peekcursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowguru/foundationdb/internal/knobs"
	"github.com/flowguru/foundationdb/internal/peekrpc"
	"github.com/flowguru/foundationdb/internal/wire"
	"github.com/flowguru/foundationdb/pkg/log"
)

// Variant selects a BroadcastCursor's merge discipline at construction. It
// is a one-time choice that also picks the underlying Container
// implementation — never a runtime type switch in the hot Next() path.
type Variant int

const (
	// Ordered merges all members into one globally (Version, Subsequence)
	// sorted stream via an OrderedContainer (binary heap).
	Ordered Variant = iota
	// Unordered groups records by team within a version via an
	// UnorderedContainer (FIFO); it does not sort subsequences across teams.
	Unordered
)

// broadcastSnapshot is the restart point captured after the most recent
// successful RemoteMoreAvailable, restored by Reset without any network
// calls.
type broadcastSnapshot struct {
	version     uint64
	haveVersion bool
	container   Container
	valid       bool
}

// BroadcastCursor merges N StorageTeamPeekCursors under the broadcast
// invariant: at any consistent point, every non-retired, non-empty member
// shares the same currentVersion. See invariants 1-7 in the data model.
type BroadcastCursor struct {
	variant Variant

	memberIDs []wire.StorageTeamID // stable insertion order, for repeatable walks
	members   map[wire.StorageTeamID]*StorageTeamPeekCursor

	container Container
	nextFn    func(*BroadcastCursor)

	currentVersion     uint64
	haveCurrentVersion bool

	emptyTeamIDs   map[wire.StorageTeamID]bool
	retiredTeamIDs map[wire.StorageTeamID]bool

	maxKnownVersion          uint64
	minKnownCommittedVersion uint64

	restartSnapshot *broadcastSnapshot

	knobs  knobs.Knobs
	logger log.Logger
}

var _ Cursor = (*BroadcastCursor)(nil)
var _ memberLookup = (*BroadcastCursor)(nil)

// NewBroadcastCursor constructs an empty BroadcastCursor of the given
// variant. Members are added with AddMember before the cursor is iterated.
func NewBroadcastCursor(variant Variant, k knobs.Knobs, logger log.Logger) *BroadcastCursor {
	b := &BroadcastCursor{
		variant:        variant,
		members:        make(map[wire.StorageTeamID]*StorageTeamPeekCursor),
		emptyTeamIDs:   make(map[wire.StorageTeamID]bool),
		retiredTeamIDs: make(map[wire.StorageTeamID]bool),
		knobs:          k,
		logger:         logger,
	}
	switch variant {
	case Ordered:
		b.container = NewOrderedContainer(b)
		b.nextFn = nextOrdered
	case Unordered:
		b.container = NewUnorderedContainer()
		b.nextFn = nextUnordered
	default:
		panic(fmt.Sprintf("peekcursor: unknown BroadcastCursor variant %d", variant))
	}
	return b
}

// AddMember registers a new storage team under this broadcast cursor. The
// member cursor is always constructed with reportEmptyVersion=true, since
// the broadcast layer needs to see MessageEmptyVersion records to keep
// members aligned (§4.2/§4.4).
func (b *BroadcastCursor) AddMember(teamID wire.StorageTeamID, endpoints []string, client peekrpc.PeekClient, beginVersion uint64) {
	if _, exists := b.members[teamID]; exists {
		panic(fmt.Sprintf("peekcursor: team %q already registered on this BroadcastCursor", teamID))
	}
	m := NewStorageTeamPeekCursor(teamID, endpoints, client, beginVersion,
		WithReportEmptyVersion(true),
		WithLogger(b.logger),
	)
	b.members[teamID] = m
	b.memberIDs = append(b.memberIDs, teamID)
	b.emptyTeamIDs[teamID] = true
}

// headOf implements memberLookup for the OrderedContainer's heap ordering.
func (b *BroadcastCursor) headOf(teamID wire.StorageTeamID) (wire.VSM, bool) {
	m := b.members[teamID]
	if m == nil {
		return wire.VSM{}, false
	}
	return m.Get()
}

// HasRemaining reports whether the container currently holds a team ready
// to yield. If the container is empty it attempts a (network-free) refill
// from already-buffered member data first.
func (b *BroadcastCursor) HasRemaining() bool {
	if b.container.Empty() {
		b.tryFillContainer()
	}
	return !b.container.Empty()
}

// Get returns the head VSM of the team currently at the front of the
// container.
func (b *BroadcastCursor) Get() (wire.VSM, bool) {
	if !b.HasRemaining() {
		return wire.VSM{}, false
	}
	id, ok := b.container.Front()
	if !ok {
		return wire.VSM{}, false
	}
	return b.headOf(id)
}

// Next advances past the head VSM, re-seeding the container from local
// buffers as the variant's discipline requires. Precondition: HasRemaining().
func (b *BroadcastCursor) Next() {
	if !b.HasRemaining() {
		panic("peekcursor: BroadcastCursor.Next called with no remaining data")
	}
	b.nextFn(b)
}

func nextOrdered(b *BroadcastCursor) {
	id, ok := b.container.Pop()
	if !ok {
		return
	}
	m := b.members[id]
	m.Next()
	if m.HasRemaining() {
		v, _ := m.Get()
		if v.Version == b.currentVersion {
			b.container.Push(id)
		}
		// A member that jumped past currentVersion is dropped from the
		// container until the next refill cycle re-aligns it.
	}
}

func nextUnordered(b *BroadcastCursor) {
	id, ok := b.container.Front()
	if !ok {
		return
	}
	m := b.members[id]
	m.Next()
	if !m.HasRemaining() {
		b.container.Pop()
		return
	}
	v, _ := m.Get()
	if v.Version != b.currentVersion {
		b.container.Pop()
	}
	// Otherwise the team stays at the front: more records for it remain
	// at currentVersion, and the unordered variant groups by team.
}

// tryFillContainer walks members in stable order, discovering which share
// currentVersion and which are empty. Precondition: container.Empty().
// Returns true if the container now holds every non-empty member and the
// caller can resume iterating; false if one or more members need a remote
// refill (emptyTeamIDs reflects exactly which ones).
func (b *BroadcastCursor) tryFillContainer() bool {
	if !b.container.Empty() {
		panic("peekcursor: tryFillContainer called with a non-empty container")
	}
	b.purgeDrainedRetired()

	// currentVersion is re-derived fresh on every walk: the first
	// non-empty member sets it, every subsequent non-empty member must
	// agree. A stale b.currentVersion from a prior walk must never leak
	// into this check.
	var version uint64
	haveVersion := false

	b.emptyTeamIDs = make(map[wire.StorageTeamID]bool)
	for _, id := range b.memberIDs {
		m := b.members[id]
		if !m.HasRemaining() {
			b.emptyTeamIDs[id] = true
			continue
		}
		v, _ := m.Get()
		if !haveVersion {
			version = v.Version
			haveVersion = true
		} else if v.Version != version {
			panic(fmt.Sprintf(
				"peekcursor: broadcast invariant violated: team %q at version %d, expected %d",
				id, v.Version, version,
			))
		}
	}

	switch {
	case haveVersion:
		b.currentVersion = version
		b.haveCurrentVersion = true
	case len(b.memberIDs) == 1:
		// The lone remaining member is empty: there is nothing to
		// derive a version from this walk. Preserve the prior
		// currentVersion rather than invalidating it, so a future
		// member added to this cursor has a meaningful value to start
		// from instead of zero.
	default:
		b.haveCurrentVersion = false
	}

	if len(b.emptyTeamIDs) > 0 {
		return false
	}
	if len(b.memberIDs) == 0 {
		return false
	}
	for _, id := range b.memberIDs {
		m := b.members[id]
		if m.HasRemaining() {
			b.container.Push(id)
		}
	}
	return true
}

// purgeDrainedRetired removes members that are both retired and fully
// drained of buffered data — retirement is monotonic, so once a team has
// no remaining data and will never be peeked again, it can be forgotten.
func (b *BroadcastCursor) purgeDrainedRetired() {
	if len(b.retiredTeamIDs) == 0 {
		return
	}
	kept := b.memberIDs[:0:0]
	for _, id := range b.memberIDs {
		if b.retiredTeamIDs[id] && !b.members[id].HasRemaining() {
			delete(b.members, id)
			delete(b.retiredTeamIDs, id)
			delete(b.emptyTeamIDs, id)
			continue
		}
		kept = append(kept, id)
	}
	b.memberIDs = kept
}

// RemoteMoreAvailable fans a peek RPC out to every empty team in parallel
// and awaits all of them, per §4.4/§5.
func (b *BroadcastCursor) RemoteMoreAvailable(ctx context.Context) (bool, error) {
	b.purgeDrainedRetired()

	if len(b.emptyTeamIDs) == 0 {
		return false, peekrpc.ErrEndOfStream
	}

	type outcome struct {
		teamID        wire.StorageTeamID
		retrievedData bool
		endOfStream   bool
	}

	ids := make([]wire.StorageTeamID, 0, len(b.emptyTeamIDs))
	for id := range b.emptyTeamIDs {
		ids = append(ids, id)
	}

	results := make([]outcome, len(ids))
	group, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		member := b.members[id]
		group.Go(func() error {
			res := peekSingleCursor(gctx, id, member, b.knobs)
			results[i] = outcome{teamID: res.teamID, retrievedData: res.retrievedData, endOfStream: res.endOfStream}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return false, err
	}

	allResolved := true
	for _, r := range results {
		switch {
		case r.retrievedData:
			delete(b.emptyTeamIDs, r.teamID)
		case r.endOfStream:
			b.retiredTeamIDs[r.teamID] = true
			delete(b.emptyTeamIDs, r.teamID)
			b.logger.Debug("broadcast.team_retired", log.Str("team", string(r.teamID)))
		default:
			allResolved = false
		}
	}

	if !allResolved {
		return false, nil
	}

	b.maxKnownVersion = maxUint64Over(b.maxKnownVersion, b.memberIDs, func(id wire.StorageTeamID) uint64 {
		return b.members[id].MaxKnownVersion()
	})
	b.minKnownCommittedVersion = maxUint64Over(b.minKnownCommittedVersion, b.memberIDs, func(id wire.StorageTeamID) uint64 {
		return b.members[id].MinKnownCommittedVersion()
	})

	filled := b.tryFillContainer()
	if filled {
		b.restartSnapshot = &broadcastSnapshot{
			version:     b.currentVersion,
			haveVersion: b.haveCurrentVersion,
			container:   b.container.Clone(),
			valid:       true,
		}
	}
	return filled, nil
}

func maxUint64Over(acc uint64, ids []wire.StorageTeamID, f func(wire.StorageTeamID) uint64) uint64 {
	for _, id := range ids {
		if v := f(id); v > acc {
			acc = v
		}
	}
	return acc
}

// Reset restores currentVersion and the container to their values
// immediately after the most recent successful RemoteMoreAvailable. It
// never issues network calls.
func (b *BroadcastCursor) Reset() {
	if b.restartSnapshot == nil || !b.restartSnapshot.valid {
		return
	}
	snap := b.restartSnapshot
	b.currentVersion = snap.version
	b.haveCurrentVersion = snap.haveVersion
	b.container = snap.container.Clone()
	b.emptyTeamIDs = make(map[wire.StorageTeamID]bool)

	for _, id := range b.memberIDs {
		m := b.members[id]
		m.Reset()
		if snap.haveVersion {
			m.FastForwardTo(snap.version)
		}
	}
}

// peekResult classifies the outcome of one team's retry-bounded refill
// attempt.
type peekResult struct {
	teamID        wire.StorageTeamID
	retrievedData bool
	endOfStream   bool
}

// peekSingleCursor retries member.RemoteMoreAvailable up to
// k.MergeCursorRetryTimes times with exponential-jittered backoff,
// grounded on the teacher's computeBackoff/applyPolicyEnv retry machinery,
// generalized from publish-retry policy to peek-retry policy.
func peekSingleCursor(ctx context.Context, teamID wire.StorageTeamID, member *StorageTeamPeekCursor, k knobs.Knobs) peekResult {
	attempts := k.MergeCursorRetryTimes
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := member.RemoteMoreAvailable(ctx)
		if err != nil {
			if isEndOfStream(err) {
				return peekResult{teamID: teamID, endOfStream: true}
			}
			// Any other error (including ErrTimeout) falls through to the
			// retry/backoff loop below.
		} else if ok {
			return peekResult{teamID: teamID, retrievedData: true}
		}

		if ctx.Err() != nil {
			return peekResult{teamID: teamID}
		}
		if attempt < attempts {
			wait := computeBackoff(k.MergeCursorRetryDelay, attempt)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return peekResult{teamID: teamID}
			}
		}
	}
	return peekResult{teamID: teamID}
}

func isEndOfStream(err error) bool {
	return errors.Is(err, peekrpc.ErrEndOfStream)
}
