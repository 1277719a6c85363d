package cognition

import (
	"strings"
	"sync/atomic"

	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/pkg/perception"
)

const (
	iouThreshold        = 0.3
	newEntityConfidence = 0.5

	// velocity/position blend weights from the predict/update step.
	velocityOldWeight = 0.7
	velocityNewWeight = 0.3
	posPredictWeight  = 0.4
	posMeasureWeight  = 0.6

	// pruning windows, in seconds.
	timeToLiveSeconds       = 2.0
	oldEntityAgeThreshold   = 100
	oldEntityToleranceSecs  = 2 * timeToLiveSeconds
	youngEntityAgeThreshold = 5
	youngEntityGraceSecs    = 0.5
)

// trackIDCounter is process-wide and monotonic: track_id is never reused,
// which a plain counter gives for free and which the "track_id is never
// reassigned" invariant depends on.
var trackIDCounter uint64

func nextTrackID() uint64 {
	return atomic.AddUint64(&trackIDCounter, 1)
}

// Engine is the ObjectCognitionEngine: it owns the entity set exclusively
// and is intended to be driven only from the tick thread, so no internal
// locking is needed (per the concurrency model: external readers only
// ever observe it from the tick thread too).
type Engine struct {
	entities map[uint64]*WorldEntity
	lastTick clock.Instant
	hasTick  bool
}

func NewEngine() *Engine {
	return &Engine{entities: map[uint64]*WorldEntity{}}
}

// Update runs predict -> associate -> update/birth -> prune for one tick.
func (e *Engine) Update(detections []perception.Detection, t clock.Instant) {
	dt := 0.0
	if e.hasTick {
		dt = t.Sub(e.lastTick).Seconds()
	}
	e.lastTick = t
	e.hasTick = true

	e.predict(dt)
	matched := e.associate(detections)
	e.resetMissed(matched)
	e.updateMatched(matched, detections, dt, t)
	e.birth(detections, matched, t)
	e.prune(t)
}

func (e *Engine) predict(dt float64) {
	for _, ent := range e.entities {
		ent.Position[0] += ent.Velocity[0] * dt
		ent.Position[1] += ent.Velocity[1] * dt
		ent.Position[2] += ent.Velocity[2] * dt
	}
}

// associate performs greedy IoU matching: for each entity, pick the
// unmatched same-category detection with the highest IoU above
// iouThreshold, ties broken by higher IoU then lower detection index.
// Returns entity track_id -> matched detection index.
func (e *Engine) associate(detections []perception.Detection) map[uint64]int {
	matched := map[uint64]int{}
	usedDet := map[int]bool{}

	for _, ent := range e.entities {
		bestIdx := -1
		bestIoU := iouThreshold
		for i, det := range detections {
			if usedDet[i] || det.Label != ent.Category {
				continue
			}
			iou := boxIoU(ent.LastBox, det.Box)
			if iou > bestIoU || (iou == bestIoU && bestIdx != -1 && i < bestIdx) {
				if iou >= iouThreshold {
					bestIoU = iou
					bestIdx = i
				}
			}
		}
		if bestIdx != -1 {
			matched[ent.TrackID] = bestIdx
			usedDet[bestIdx] = true
		}
	}
	return matched
}

// resetMissed zeroes HitStreak for every entity that wasn't matched to a
// detection this tick, so a consecutive-hit streak never survives an
// occlusion: age is left as it is (it grows only on matched ticks), while
// hit_streak restarts from 0.
func (e *Engine) resetMissed(matched map[uint64]int) {
	for trackID, ent := range e.entities {
		if _, ok := matched[trackID]; !ok {
			ent.HitStreak = 0
		}
	}
}

func (e *Engine) updateMatched(matched map[uint64]int, detections []perception.Detection, dt float64, t clock.Instant) {
	for trackID, idx := range matched {
		ent := e.entities[trackID]
		det := detections[idx]

		if dt > 0 {
			measuredVel := [3]float64{
				(det.Position3D[0] - ent.Position[0]) / dt,
				(det.Position3D[1] - ent.Position[1]) / dt,
				(det.Position3D[2] - ent.Position[2]) / dt,
			}
			for i := 0; i < 3; i++ {
				ent.Velocity[i] = velocityOldWeight*ent.Velocity[i] + velocityNewWeight*measuredVel[i]
			}
		}

		for i := 0; i < 3; i++ {
			ent.Position[i] = posPredictWeight*ent.Position[i] + posMeasureWeight*det.Position3D[i]
		}

		ent.Age++
		ent.HitStreak++
		ent.LastBox = det.Box
		ent.LastMask = det.Mask
		ent.LastSeen = t
	}
}

func (e *Engine) birth(detections []perception.Detection, matched map[uint64]int, t clock.Instant) {
	usedDet := map[int]bool{}
	for _, idx := range matched {
		usedDet[idx] = true
	}
	for i, det := range detections {
		if usedDet[i] || det.Confidence <= newEntityConfidence {
			continue
		}
		id := nextTrackID()
		e.entities[id] = newEntity(id, det, t)
	}
}

func (e *Engine) prune(t clock.Instant) {
	for id, ent := range e.entities {
		absence := t.Sub(ent.LastSeen).Seconds()
		var tolerance float64
		switch {
		case ent.Age > oldEntityAgeThreshold:
			tolerance = oldEntityToleranceSecs
		case ent.Age < youngEntityAgeThreshold:
			tolerance = youngEntityGraceSecs
		default:
			tolerance = timeToLiveSeconds
		}
		if absence > tolerance {
			delete(e.entities, id)
		}
	}
}

// FindByCategory returns every live entity whose category contains
// keyword as a substring.
func (e *Engine) FindByCategory(keyword string) []*WorldEntity {
	var out []*WorldEntity
	for _, ent := range e.entities {
		if strings.Contains(ent.Category, keyword) {
			out = append(out, ent)
		}
	}
	return out
}

func (e *Engine) GetByID(id uint64) (*WorldEntity, bool) {
	ent, ok := e.entities[id]
	return ent, ok
}

func (e *Engine) IterateAll() []*WorldEntity {
	out := make([]*WorldEntity, 0, len(e.entities))
	for _, ent := range e.entities {
		out = append(out, ent)
	}
	return out
}

func boxIoU(a, b perception.Box2D) float64 {
	ax2, ay2 := a.X+a.W, a.Y+a.H
	bx2, by2 := b.X+b.W, b.Y+b.H

	ix1, iy1 := max(a.X, b.X), max(a.Y, b.Y)
	ix2, iy2 := min(ax2, bx2), min(ay2, by2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih
	union := a.W*a.H + b.W*b.H - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
