package peekcursor

import (
	"context"
	"testing"
	"time"

	"github.com/flowguru/foundationdb/internal/knobs"
	"github.com/flowguru/foundationdb/internal/wire"
)

func slowPeerKnobs() knobs.Knobs {
	k := knobs.Default()
	k.PeekMaxLatency = time.Nanosecond
	k.PeekStatsInterval = 0
	k.PeekStatsSlowAmount = 1
	k.PeekStatsSlowRatio = 0.5
	k.DesiredTotalBytes = 0
	k.PeekResetInterval = 0
	return k
}

func TestServerPeekCursor_SlowPeerReset(t *testing.T) {
	client := newFakePeekClient()
	client.queueDataWithDelay("a", 1, []wire.VSM{mut(1, 0, "a0")}, 5*time.Millisecond)

	c := NewServerPeekCursor("a", NewStaticEndpointSource("ep1"), client, 0, slowPeerKnobs())

	ok, err := c.RemoteMoreAvailable(context.Background())
	if err != nil || !ok {
		t.Fatalf("RemoteMoreAvailable = %v,%v", ok, err)
	}
	if c.Resets() != 1 {
		t.Fatalf("resets = %d, want 1", c.Resets())
	}
}

func TestServerPeekCursor_FastPeerNoReset(t *testing.T) {
	client := newFakePeekClient()
	client.queueData("a", 1, []wire.VSM{mut(1, 0, "a0")})

	k := slowPeerKnobs()
	k.PeekMaxLatency = time.Hour // nothing will ever look slow

	c := NewServerPeekCursor("a", NewStaticEndpointSource("ep1"), client, 0, k)
	if _, err := c.RemoteMoreAvailable(context.Background()); err != nil {
		t.Fatalf("RemoteMoreAvailable: %v", err)
	}
	if c.Resets() != 0 {
		t.Fatalf("resets = %d, want 0", c.Resets())
	}
}

func TestServerPeekCursor_SerialBasic(t *testing.T) {
	client := newFakePeekClient()
	client.queueData("a", 1, []wire.VSM{mut(1, 0, "a0"), mut(1, 1, "a1")})
	client.queueEndOfStream("a")

	c := NewServerPeekCursor("a", NewStaticEndpointSource("ep1"), client, 0, knobs.Default())
	if _, err := c.RemoteMoreAvailable(context.Background()); err != nil {
		t.Fatalf("RemoteMoreAvailable: %v", err)
	}
	got := drainAll(t, c)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	_, err := c.RemoteMoreAvailable(context.Background())
	if err == nil {
		t.Fatalf("expected end-of-stream error")
	}
}

// changingEndpointSource is an EndpointSource whose Changes channel a test
// can push to directly, unlike staticEndpointSource's permanently nil one.
type changingEndpointSource struct {
	current string
	changes chan string
}

func newChangingEndpointSource(initial string) *changingEndpointSource {
	return &changingEndpointSource{current: initial, changes: make(chan string, 1)}
}

func (s *changingEndpointSource) Current() string        { return s.current }
func (s *changingEndpointSource) Changes() <-chan string { return s.changes }
func (s *changingEndpointSource) announce(endpoint string) {
	s.current = endpoint
	s.changes <- endpoint
}

func TestServerPeekCursor_EndpointChangeRotatesGeneration(t *testing.T) {
	client := newFakePeekClient()
	client.queueData("a", 1, []wire.VSM{mut(1, 0, "a0")})
	client.queueData("a", 2, []wire.VSM{mut(2, 0, "a1")})

	eps := newChangingEndpointSource("ep1")
	c := NewServerPeekCursor("a", eps, client, 0, knobs.Default())

	if _, err := c.RemoteMoreAvailable(context.Background()); err != nil {
		t.Fatalf("RemoteMoreAvailable #1: %v", err)
	}
	firstGen := c.Generation()
	drainAll(t, c)

	eps.announce("ep2")

	ok, err := c.RemoteMoreAvailable(context.Background())
	if err != nil || !ok {
		t.Fatalf("RemoteMoreAvailable #2 = %v,%v", ok, err)
	}
	if c.Generation() == firstGen {
		t.Fatalf("expected generation to rotate after endpoint change")
	}
	got := drainAll(t, c)
	if len(got) != 1 || got[0].Version != 2 {
		t.Fatalf("got %+v, want the version-2 record with nothing skipped across the endpoint change", got)
	}
}

func TestServerPeekCursor_ParallelBasic(t *testing.T) {
	client := newFakePeekClient()
	client.queueData("a", 1, []wire.VSM{mut(1, 0, "a0")})
	client.queueData("a", 2, []wire.VSM{mut(2, 0, "a1")})
	client.queueEndOfStream("a")

	k := knobs.Default()
	k.ParallelGetMoreRequests = 3
	// Begin exactly at the first committed version: the parallel guesses
	// below assume one version advances per reply starting from nextBegin,
	// an assumption that only holds once nextBegin itself lands on a real
	// commit boundary.
	c := NewServerPeekCursor("a", NewStaticEndpointSource("ep1"), client, 1, k, WithParallel(true))

	ok, err := c.RemoteMoreAvailable(context.Background())
	if err != nil || !ok {
		t.Fatalf("RemoteMoreAvailable = %v,%v", ok, err)
	}
	got := drainAll(t, c)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(got), got)
	}
	if got[0].Version != 1 || got[1].Version != 2 {
		t.Fatalf("records out of order: %+v", got)
	}
}
