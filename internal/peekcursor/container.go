package peekcursor

import (
	"container/heap"

	"github.com/flowguru/foundationdb/internal/wire"
)

// memberLookup resolves a team's current head VSM. Containers hold only
// team IDs plus this lookup — never a pointer back into a member cursor —
// so there is no reference cycle between a BroadcastCursor and its
// container.
type memberLookup interface {
	headOf(teamID wire.StorageTeamID) (wire.VSM, bool)
}

// Container is the small priority structure a BroadcastCursor keeps over
// the teams that currently hold data at its shared currentVersion.
type Container interface {
	Push(teamID wire.StorageTeamID)
	Pop() (wire.StorageTeamID, bool)
	Front() (wire.StorageTeamID, bool)
	Erase(teamID wire.StorageTeamID)
	Empty() bool
	Len() int
	Clone() Container
}

// --- OrderedContainer: binary min-heap keyed by head (Version, Subsequence) ---

type orderedHeap struct {
	ids    []wire.StorageTeamID
	lookup memberLookup
}

func (h orderedHeap) Len() int { return len(h.ids) }

func (h orderedHeap) Less(i, j int) bool {
	vi, iok := h.lookup.headOf(h.ids[i])
	vj, jok := h.lookup.headOf(h.ids[j])
	if !iok {
		return false
	}
	if !jok {
		return true
	}
	return vi.Less(vj)
}

func (h orderedHeap) Swap(i, j int) { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }

func (h *orderedHeap) Push(x interface{}) { h.ids = append(h.ids, x.(wire.StorageTeamID)) }

func (h *orderedHeap) Pop() interface{} {
	old := h.ids
	n := len(old)
	item := old[n-1]
	h.ids = old[:n-1]
	return item
}

// OrderedContainer is a container/heap.Interface-backed min-heap of team
// IDs, ordered by each team's current head (Version, Subsequence). Used by
// the ordered BroadcastCursor variant, which must yield a single globally
// sorted stream.
type OrderedContainer struct {
	h *orderedHeap
}

// NewOrderedContainer returns an empty OrderedContainer resolving heads
// through lookup.
func NewOrderedContainer(lookup memberLookup) *OrderedContainer {
	return &OrderedContainer{h: &orderedHeap{lookup: lookup}}
}

func (c *OrderedContainer) Push(teamID wire.StorageTeamID) { heap.Push(c.h, teamID) }

func (c *OrderedContainer) Pop() (wire.StorageTeamID, bool) {
	if c.h.Len() == 0 {
		return "", false
	}
	return heap.Pop(c.h).(wire.StorageTeamID), true
}

func (c *OrderedContainer) Front() (wire.StorageTeamID, bool) {
	if c.h.Len() == 0 {
		return "", false
	}
	return c.h.ids[0], true
}

// Erase removes teamID from the heap in O(n), then re-heapifies. Rare path
// (mid-stream retirement), so this trades asymptotic optimality for
// simplicity, matching the spec's stated complexity budget.
func (c *OrderedContainer) Erase(teamID wire.StorageTeamID) {
	for i, id := range c.h.ids {
		if id == teamID {
			c.h.ids = append(c.h.ids[:i], c.h.ids[i+1:]...)
			heap.Init(c.h)
			return
		}
	}
}

func (c *OrderedContainer) Empty() bool { return c.h.Len() == 0 }
func (c *OrderedContainer) Len() int    { return c.h.Len() }

func (c *OrderedContainer) Clone() Container {
	clone := &OrderedContainer{h: &orderedHeap{
		ids:    append([]wire.StorageTeamID(nil), c.h.ids...),
		lookup: c.h.lookup,
	}}
	return clone
}

// --- UnorderedContainer: FIFO queue, no cross-team subsequence ordering ---

// UnorderedContainer is a FIFO of team IDs, used by the unordered
// BroadcastCursor variant: members are drained front-to-back, grouped by
// team within a version rather than strictly interleaved by subsequence.
type UnorderedContainer struct {
	ids []wire.StorageTeamID
}

// NewUnorderedContainer returns an empty UnorderedContainer.
func NewUnorderedContainer() *UnorderedContainer {
	return &UnorderedContainer{}
}

func (c *UnorderedContainer) Push(teamID wire.StorageTeamID) {
	c.ids = append(c.ids, teamID)
}

func (c *UnorderedContainer) Pop() (wire.StorageTeamID, bool) {
	if len(c.ids) == 0 {
		return "", false
	}
	id := c.ids[0]
	c.ids = c.ids[1:]
	return id, true
}

func (c *UnorderedContainer) Front() (wire.StorageTeamID, bool) {
	if len(c.ids) == 0 {
		return "", false
	}
	return c.ids[0], true
}

func (c *UnorderedContainer) Erase(teamID wire.StorageTeamID) {
	for i, id := range c.ids {
		if id == teamID {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			return
		}
	}
}

func (c *UnorderedContainer) Empty() bool { return len(c.ids) == 0 }
func (c *UnorderedContainer) Len() int    { return len(c.ids) }

func (c *UnorderedContainer) Clone() Container {
	return &UnorderedContainer{ids: append([]wire.StorageTeamID(nil), c.ids...)}
}
