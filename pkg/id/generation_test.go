package id

import (
	"testing"
	"time"
)

func TestGenerationSourceMonotonic(t *testing.T) {
	s := NewGenerationSource()
	NowMs = func() int64 { return 5000 }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	a := s.Next()
	b := s.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a<b")
	}
}
