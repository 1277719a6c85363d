package timeline

import (
	"testing"

	"github.com/basalt-robotics/cortex/internal/clock"
)

type sample struct {
	t clock.Instant
	v int
}

func (s sample) Timestamp() clock.Instant { return s.t }

func TestRingTrackEmptyBracket(t *testing.T) {
	r := NewRingTrack[sample](4)
	_, hasBefore, _, hasAfter := r.GetBracket(clock.Instant(10))
	if hasBefore || hasAfter {
		t.Fatalf("expected empty bracket on empty track")
	}
}

func TestRingTrackBracketBeforeFirst(t *testing.T) {
	r := NewRingTrack[sample](4)
	r.Push(sample{t: 10, v: 1})
	r.Push(sample{t: 20, v: 2})

	before, hasBefore, after, hasAfter := r.GetBracket(clock.Instant(5))
	if !hasBefore || !hasAfter {
		t.Fatalf("expected both sides present")
	}
	if before.v != 1 || after.v != 1 {
		t.Fatalf("expected earliest record on both sides, got %v %v", before, after)
	}
}

func TestRingTrackBracketPastLast(t *testing.T) {
	r := NewRingTrack[sample](4)
	r.Push(sample{t: 10, v: 1})
	r.Push(sample{t: 20, v: 2})

	before, hasBefore, _, hasAfter := r.GetBracket(clock.Instant(100))
	if !hasBefore || hasAfter {
		t.Fatalf("expected only before present past the last record")
	}
	if before.v != 2 {
		t.Fatalf("expected latest record, got %v", before)
	}
}

func TestRingTrackBracketStraddles(t *testing.T) {
	r := NewRingTrack[sample](4)
	r.Push(sample{t: 10, v: 1})
	r.Push(sample{t: 20, v: 2})
	r.Push(sample{t: 30, v: 3})

	before, hasBefore, after, hasAfter := r.GetBracket(clock.Instant(25))
	if !hasBefore || !hasAfter {
		t.Fatalf("expected both sides present")
	}
	if before.v != 2 || after.v != 3 {
		t.Fatalf("expected (2,3), got (%v,%v)", before.v, after.v)
	}
}

func TestRingTrackEvictsOldestAtCapacity(t *testing.T) {
	r := NewRingTrack[sample](3)
	r.Push(sample{t: 1, v: 1})
	r.Push(sample{t: 2, v: 2})
	r.Push(sample{t: 3, v: 3})
	r.Push(sample{t: 4, v: 4})

	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
	latest, ok := r.GetLatest()
	if !ok || latest.v != 4 {
		t.Fatalf("expected latest v=4, got %v", latest)
	}
	all := r.GetRange(0, 100)
	if len(all) != 3 || all[0].v != 2 {
		t.Fatalf("expected oldest evicted, got %v", all)
	}
}

func TestRingTrackGetRangeInclusive(t *testing.T) {
	r := NewRingTrack[sample](10)
	for i := 1; i <= 5; i++ {
		r.Push(sample{t: clock.Instant(i * 10), v: i})
	}
	got := r.GetRange(20, 40)
	if len(got) != 3 {
		t.Fatalf("expected 3 records in [20,40], got %d", len(got))
	}
	if got[0].v != 2 || got[2].v != 4 {
		t.Fatalf("unexpected range contents: %v", got)
	}
}
