package cognition

import (
	"testing"

	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/pkg/perception"
)

func det(label string, conf float64, box perception.Box2D) perception.Detection {
	return perception.Detection{Label: label, Confidence: conf, Box: box}
}

func TestBirthOnHighConfidenceDetection(t *testing.T) {
	e := NewEngine()
	e.Update([]perception.Detection{det("cup", 0.9, perception.Box2D{X: 10, Y: 10, W: 20, H: 20})}, clock.Instant(0))

	all := e.IterateAll()
	if len(all) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(all))
	}
	if all[0].Category != "cup" {
		t.Fatalf("expected cup, got %s", all[0].Category)
	}
	if fact := all[0].KnowledgeGraph["graspable"]; fact.Value != "true" {
		t.Fatalf("expected common-sense graspable=true for cup, got %+v", fact)
	}
}

func TestLowConfidenceDetectionDoesNotBirth(t *testing.T) {
	e := NewEngine()
	e.Update([]perception.Detection{det("cup", 0.3, perception.Box2D{X: 0, Y: 0, W: 10, H: 10})}, clock.Instant(0))
	if len(e.IterateAll()) != 0 {
		t.Fatalf("expected no entities born below confidence threshold")
	}
}

func TestTrackIDNeverReassigned(t *testing.T) {
	e := NewEngine()
	e.Update([]perception.Detection{det("cup", 0.9, perception.Box2D{X: 0, Y: 0, W: 10, H: 10})}, clock.Instant(0))
	first := e.IterateAll()[0].TrackID

	// Force prune by advancing time far beyond TTL with no detections.
	for i := 1; i <= 5; i++ {
		e.Update(nil, clock.Instant(int64(i)*10_000_000))
	}
	if len(e.IterateAll()) != 0 {
		t.Fatalf("expected entity pruned after long absence")
	}

	e.Update([]perception.Detection{det("cup", 0.9, perception.Box2D{X: 0, Y: 0, W: 10, H: 10})}, clock.Instant(100_000_000))
	second := e.IterateAll()[0].TrackID
	if second == first {
		t.Fatalf("track_id reused: %d", first)
	}
}

func TestOldEntitySurvivesOcclusion(t *testing.T) {
	e := NewEngine()
	ent := newEntity(7, det("person", 0.9, perception.Box2D{}), clock.Instant(0))
	ent.Age = 120
	ent.LastSeen = clock.Instant(0)
	e.entities[7] = ent

	// 3 seconds absent: > TIME_TO_LIVE(2s) but < old-entity tolerance(4s).
	e.Update(nil, clock.Instant(3_000_000))

	if _, ok := e.GetByID(7); !ok {
		t.Fatalf("expected old entity to survive 3s occlusion")
	}
}

func TestHitStreakResetsOnMissButAgeNeverDrops(t *testing.T) {
	e := NewEngine()
	box := perception.Box2D{X: 0, Y: 0, W: 10, H: 10}

	e.Update([]perception.Detection{det("cup", 0.9, box)}, clock.Instant(0))
	id := e.IterateAll()[0].TrackID
	ent, _ := e.GetByID(id)
	if ent.Age != 1 || ent.HitStreak != 1 {
		t.Fatalf("expected age=1 hit_streak=1 at birth, got age=%d hit_streak=%d", ent.Age, ent.HitStreak)
	}

	e.Update([]perception.Detection{det("cup", 0.9, box)}, clock.Instant(10_000))
	if ent.Age != 2 || ent.HitStreak != 2 {
		t.Fatalf("expected age=2 hit_streak=2 after second hit, got age=%d hit_streak=%d", ent.Age, ent.HitStreak)
	}

	// Miss: no detections this tick, entity stays alive (well within TTL).
	e.Update(nil, clock.Instant(20_000))
	if ent.HitStreak != 0 {
		t.Fatalf("expected hit_streak reset to 0 on miss, got %d", ent.HitStreak)
	}
	if ent.Age != 2 {
		t.Fatalf("expected age to hold steady on a miss tick, got %d", ent.Age)
	}
	if ent.Age < ent.HitStreak {
		t.Fatalf("invariant violated: age(%d) < hit_streak(%d)", ent.Age, ent.HitStreak)
	}

	e.Update([]perception.Detection{det("cup", 0.9, box)}, clock.Instant(30_000))
	if ent.HitStreak != 1 {
		t.Fatalf("expected hit_streak to restart at 1 after a fresh hit, got %d", ent.HitStreak)
	}
	if ent.Age != 3 {
		t.Fatalf("expected age to keep climbing across the miss, got %d", ent.Age)
	}
}

func TestRecordObservationMergesByEMA(t *testing.T) {
	e := &WorldEntity{KnowledgeGraph: map[string]Fact{}}
	e.RecordObservation("empty", "true", 0.5)
	e.RecordObservation("empty", "true", 0.9)
	got := e.KnowledgeGraph["empty"]
	if got.Confidence <= 0.5 || got.Confidence >= 0.9 {
		t.Fatalf("expected EMA-blended confidence strictly between inputs, got %v", got.Confidence)
	}
}
