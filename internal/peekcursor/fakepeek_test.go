package peekcursor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowguru/foundationdb/internal/peekrpc"
	"github.com/flowguru/foundationdb/internal/wire"
)

// versionEntry is the scripted data committed at one version for one team.
type versionEntry struct {
	items []wire.VSM
	delay time.Duration
}

// fakePeekClient is an in-memory peekrpc.PeekClient double standing in for
// the TLog server implementation, which is out of scope for this
// repository. Tests commit data at specific versions per team; Peek answers
// a request by finding the lowest committed version at or after the
// request's BeginVersion, exactly like a sparse commit log answering a
// request into a gap. This makes replies a pure function of the requested
// BeginVersion, so concurrent pipelined requests against the same team
// (ServerPeekCursor's parallel mode) resolve deterministically regardless
// of which goroutine reaches the lock first.
type fakePeekClient struct {
	mu       sync.Mutex
	versions map[wire.StorageTeamID]map[uint64]versionEntry
	terminal map[wire.StorageTeamID]error
	peeks    []*peekrpc.PeekRequest
}

func newFakePeekClient() *fakePeekClient {
	return &fakePeekClient{
		versions: make(map[wire.StorageTeamID]map[uint64]versionEntry),
		terminal: make(map[wire.StorageTeamID]error),
	}
}

// queueData commits items at version v for teamID.
func (f *fakePeekClient) queueData(teamID wire.StorageTeamID, v uint64, items []wire.VSM) {
	f.queueDataWithDelay(teamID, v, items, 0)
}

// queueDataWithDelay is queueData plus an artificial round-trip delay, used
// to exercise slow-peer detection.
func (f *fakePeekClient) queueDataWithDelay(teamID wire.StorageTeamID, v uint64, items []wire.VSM, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.versions[teamID]
	if !ok {
		m = make(map[uint64]versionEntry)
		f.versions[teamID] = m
	}
	m[v] = versionEntry{items: items, delay: delay}
}

// queueEndOfStream marks teamID as permanently exhausted once every
// committed version below the request's BeginVersion has been served.
func (f *fakePeekClient) queueEndOfStream(teamID wire.StorageTeamID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminal[teamID] = peekrpc.ErrEndOfStream
}

func (f *fakePeekClient) queueTimeout(teamID wire.StorageTeamID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminal[teamID] = peekrpc.ErrTimeout
}

func (f *fakePeekClient) requestsSeen() []*peekrpc.PeekRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*peekrpc.PeekRequest(nil), f.peeks...)
}

func (f *fakePeekClient) Peek(ctx context.Context, req *peekrpc.PeekRequest) (*peekrpc.PeekReply, error) {
	f.mu.Lock()
	f.peeks = append(f.peeks, req)

	var (
		found bool
		at    uint64
		entry versionEntry
	)
	if m := f.versions[req.TeamID]; m != nil {
		candidates := make([]uint64, 0, len(m))
		for v := range m {
			if v >= req.BeginVersion {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) > 0 {
			sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
			at = candidates[0]
			entry = m[at]
			found = true
		}
	}
	termErr := f.terminal[req.TeamID]
	f.mu.Unlock()

	if !found {
		if termErr != nil {
			return nil, termErr
		}
		return &peekrpc.PeekReply{BeginVersion: req.BeginVersion, EndVersion: req.BeginVersion}, nil
	}

	if entry.delay > 0 {
		select {
		case <-time.After(entry.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var buf []byte
	if len(entry.items) > 0 {
		buf = wire.EncodeVersionGroup(buf, at, entry.items)
	}

	return &peekrpc.PeekReply{
		Data:            buf,
		BeginVersion:    req.BeginVersion,
		EndVersion:      at + 1,
		MaxKnownVersion: at,
	}, nil
}
