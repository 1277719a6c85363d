// Package cognition tracks detections into persistent 3D entities across
// ticks: prediction, greedy IoU association, EMA-smoothed updates, birth
// of new entities, and time-based pruning.
package cognition

import (
	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/pkg/perception"
)

// Fact is a single entry in an entity's knowledge graph: a confidence-
// weighted belief about the entity, merged across repeated observations
// by exponential moving average rather than overwritten.
type Fact struct {
	Confidence float64
	Value      string
}

// WorldEntity is a tracked object persisted across ticks.
type WorldEntity struct {
	TrackID   uint64
	Category  string
	LastBox   perception.Box2D
	LastMask  []byte
	Position  [3]float64
	Velocity  [3]float64
	Age       int
	HitStreak int
	LastSeen  clock.Instant

	KnowledgeGraph map[string]Fact
}

func newEntity(id uint64, det perception.Detection, t clock.Instant) *WorldEntity {
	e := &WorldEntity{
		TrackID:        id,
		Category:       det.Label,
		LastBox:        det.Box,
		Position:       det.Position3D,
		Age:            1,
		HitStreak:      1,
		LastSeen:       t,
		KnowledgeGraph: map[string]Fact{},
	}
	injectCommonSense(e)
	return e
}

// injectCommonSense seeds birth-time knowledge by category, e.g. a cup is
// graspable and fragile, a person is not graspable and is an agent.
func injectCommonSense(e *WorldEntity) {
	switch e.Category {
	case "cup", "mug", "bottle", "bowl":
		e.KnowledgeGraph["graspable"] = Fact{Confidence: 0.9, Value: "true"}
		e.KnowledgeGraph["fragile"] = Fact{Confidence: 0.7, Value: "true"}
	case "person":
		e.KnowledgeGraph["graspable"] = Fact{Confidence: 0.99, Value: "false"}
		e.KnowledgeGraph["is_agent"] = Fact{Confidence: 0.99, Value: "true"}
	case "chair", "table", "sofa":
		e.KnowledgeGraph["graspable"] = Fact{Confidence: 0.95, Value: "false"}
		e.KnowledgeGraph["movable"] = Fact{Confidence: 0.5, Value: "false"}
	case "book", "remote", "phone":
		e.KnowledgeGraph["graspable"] = Fact{Confidence: 0.85, Value: "true"}
	}
}

// RecordObservation merges a new fact into the entity's knowledge graph.
// When the key already holds the same value, its confidence moves toward
// the new observation's confidence by the same EMA constant used for
// velocity smoothing (capped at 1.0) rather than being overwritten
// outright. A new key, or an observation with a different value, replaces
// the stored fact.
func (e *WorldEntity) RecordObservation(key, value string, confidence float64) {
	const emaAlpha = 0.3
	existing, ok := e.KnowledgeGraph[key]
	if !ok || existing.Value != value {
		e.KnowledgeGraph[key] = Fact{Confidence: confidence, Value: value}
		return
	}
	merged := existing.Confidence + emaAlpha*(confidence-existing.Confidence)
	if merged > 1.0 {
		merged = 1.0
	}
	e.KnowledgeGraph[key] = Fact{Confidence: merged, Value: value}
}
