// Package executive implements the MultiTaskExecutive: dynamic task
// scheduling, asynchronous planning, and predictive-coding verification
// of in-flight steps.
package executive

import (
	"time"

	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/pkg/perception"
)

type Priority int

const (
	PriorityBackground Priority = 0
	PriorityNormal     Priority = 50
	PriorityUrgent     Priority = 80
	PriorityCritical   Priority = 100
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

const MaxRetries = 3

// Expectation is the predicted sensory consequence of a step, checked
// against incoming perception to compute prediction error.
type Expectation struct {
	HasVisual        bool
	ExpectedLabel    string
	ExpectedROI      perception.Box2D
	ExpectedConfidence float64

	HasTactile      bool
	ExpectedForce   float64
	ForceTolerance  float64

	ExpectedDuration time.Duration
}

const defaultStepTimeout = 5 * time.Second

type SubTaskStatus string

const (
	SubTaskPending   SubTaskStatus = "PENDING"
	SubTaskRunning   SubTaskStatus = "RUNNING"
	SubTaskCompleted SubTaskStatus = "COMPLETED"
	SubTaskFailed    SubTaskStatus = "FAILED"
	SubTaskRetrying  SubTaskStatus = "RETRYING"
)

// SubTask is a single step within a TaskContext.
type SubTask struct {
	ID            string
	Description   string
	TargetObject  string
	ActionVerb    string
	Status        SubTaskStatus
	RetryCount    int
	IsVerified    bool
	Expectation   Expectation
	PredictionError float64

	// StartedAt replaces the source's static per-function timer: each
	// SubTask owns its own clock so verification timeout is a plain
	// field comparison, not hidden function-local state.
	StartedAt clock.Instant
	verified  int
	surprise  float64
}

// TaskContext is a single user-level task decomposed into SubTask steps.
type TaskContext struct {
	TaskID            string
	UserInstruction   string
	BasePriority      Priority
	DynamicScore      float64
	DependsOnIDs      []string
	RequiredResources []string
	Steps             []*SubTask
	CurrentStepIdx    int
	Status            TaskStatus

	// firstSeenAt drives the starvation bonus in dynamic scoring.
	firstSeenAt clock.Instant
	wasRunning  bool
}

func (t *TaskContext) CurrentStep() *SubTask {
	if t.CurrentStepIdx < 0 || t.CurrentStepIdx >= len(t.Steps) {
		return nil
	}
	return t.Steps[t.CurrentStepIdx]
}

// mockExpectedROI is the region a generated visual expectation is pinned
// to. A real deployment would consult the semantic map for the target's
// last known position; absent that, this stands in for "near frame
// center", same as the prototype it's ported from.
var mockExpectedROI = perception.Box2D{X: 200, Y: 150, W: 240, H: 180}

const (
	defaultExpectedForce  = 5.0
	defaultForceTolerance = 2.0
)

// generateExpectation fills in a pending step's Expectation from its
// ActionVerb. find and grasp both expect the target object to appear
// near the mocked ROI; grasp additionally expects roughly 5N of tactile
// feedback. Called once per step, before it starts running — a step
// whose Expectation was already supplied by its caller is left alone.
func generateExpectation(step *SubTask) {
	if step.Expectation.HasVisual || step.Expectation.HasTactile {
		return
	}
	if step.ActionVerb == "find" || step.ActionVerb == "grasp" {
		step.Expectation.HasVisual = true
		step.Expectation.ExpectedLabel = step.TargetObject
		step.Expectation.ExpectedROI = mockExpectedROI
	}
	if step.ActionVerb == "grasp" {
		step.Expectation.HasTactile = true
		step.Expectation.ExpectedForce = defaultExpectedForce
		step.Expectation.ForceTolerance = defaultForceTolerance
	}
}
