package wire

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeVersionGroupRoundTrip(t *testing.T) {
	items := []VSM{
		{Version: 100, Subsequence: 1, Message: Message{Type: MessageMutation, Payload: []byte("a")}},
		{Version: 100, Subsequence: 2, Message: Message{Type: MessageMutation, Payload: []byte("bb")}},
	}
	buf := EncodeVersionGroup(nil, 100, items)

	g, err := decodeVersionGroup(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.version != 100 {
		t.Fatalf("version = %d, want 100", g.version)
	}
	if len(g.items) != 2 {
		t.Fatalf("items = %d, want 2", len(g.items))
	}
	if g.consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", g.consumed, len(buf))
	}
	for i, it := range g.items {
		if !reflect.DeepEqual(it, items[i]) {
			t.Fatalf("item %d = %+v, want %+v", i, it, items[i])
		}
	}
}

func TestDecodeVersionGroupDetectsCorruption(t *testing.T) {
	buf := EncodeVersionGroup(nil, 5, []VSM{
		{Version: 5, Subsequence: 1, Message: Message{Type: MessageMutation, Payload: []byte("x")}},
	})
	buf[len(buf)-1] ^= 0xFF // flip a byte in the CRC trailer

	if _, err := decodeVersionGroup(buf); err != ErrCorruptRecord {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestEncodeEmptyVersionGroup(t *testing.T) {
	buf := EncodeVersionGroup(nil, 7, nil)
	g, err := decodeVersionGroup(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g.items) != 0 {
		t.Fatalf("items = %d, want 0", len(g.items))
	}
}
