package peekcursor

import (
	"context"
	"testing"

	"github.com/flowguru/foundationdb/internal/wire"
)

func TestAdvanceTo_Gap(t *testing.T) {
	client := newFakePeekClient()
	// A gap between version 1 and version 5: nothing at versions 2-4.
	client.queueData("a", 1, []wire.VSM{mut(1, 0, "a0")})
	client.queueData("a", 5, []wire.VSM{mut(5, 0, "a1"), mut(5, 1, "a2")})

	c := NewStorageTeamPeekCursor("a", []string{"ep"}, client, 0)
	if err := AdvanceTo(context.Background(), c, 5, 1); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}

	v, ok := c.Get()
	if !ok {
		t.Fatalf("expected a record at the target")
	}
	if v.Version != 5 || v.Subsequence != 1 {
		t.Fatalf("got (%d,%d), want (5,1)", v.Version, v.Subsequence)
	}
}

func TestAdvanceTo_TargetInFuture(t *testing.T) {
	client := newFakePeekClient()
	client.queueData("a", 1, []wire.VSM{mut(1, 0, "a0")})

	c := NewStorageTeamPeekCursor("a", []string{"ep"}, client, 0)
	if err := AdvanceTo(context.Background(), c, 100, 0); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	if c.HasRemaining() {
		t.Fatalf("expected cursor drained past the only available record")
	}
}

func TestAdvanceTo_EndOfStreamPropagates(t *testing.T) {
	client := newFakePeekClient()
	client.queueEndOfStream("a")

	c := NewStorageTeamPeekCursor("a", []string{"ep"}, client, 0)
	err := AdvanceTo(context.Background(), c, 10, 0)
	if err == nil {
		t.Fatalf("expected an error")
	}
}
