package executive

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/internal/logging"
	"github.com/basalt-robotics/cortex/pkg/cogstream"
	"github.com/basalt-robotics/cortex/pkg/perception"
)

const (
	runningInertia  = 5.0
	starvationRate  = 0.1 // score bonus per second waited
	starvationCap   = 40.0
)

// PlanSource is the StrategicPlanner seam the executive calls into to
// trigger (re)planning. Kept as an interface so the executive doesn't
// import pkg/strategy directly, matching the explicit-dependency-
// injection guidance: the planner is constructed elsewhere and handed in.
type PlanSource interface {
	PlanFromTaskPool(ctx context.Context, taskPoolSummary, recentStream string) (string, error)
}

// plannedAction is the shape parsed out of a planner response.
type plannedAction struct {
	TaskID      string   `json:"task_id"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Priority    string   `json:"priority"`
}

// Executive is the MultiTaskExecutive.
type Executive struct {
	mu    sync.Mutex
	tasks map[string]*TaskContext

	planner PlanSource
	stream  *cogstream.Stream

	sf          singleflight.Group
	planningKey string
}

// New constructs an Executive. planner and stream are explicit
// dependencies passed at construction, per the design note eliminating
// setter-injection failure modes.
func New(planner PlanSource, stream *cogstream.Stream) *Executive {
	return &Executive{
		tasks:       map[string]*TaskContext{},
		planner:     planner,
		stream:      stream,
		planningKey: "plan",
	}
}

// AddTask inserts a new task into the pool.
func (e *Executive) AddTask(instruction string, priority Priority, steps []*SubTask, t clock.Instant) *TaskContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	tc := &TaskContext{
		TaskID:          uuid.NewString(),
		UserInstruction: instruction,
		BasePriority:    priority,
		Steps:           steps,
		Status:          TaskPending,
		firstSeenAt:     t,
	}
	e.tasks[tc.TaskID] = tc
	return tc
}

// Update runs the dynamic scoring pass and advances the selected task's
// current step with predictive verification. It returns the task that
// just finished this tick, if any (for the caller to trigger reflection).
// It does not poll planning: TriggerPlanning blocks until its planner
// call returns and hands the result back to its own caller.
func (e *Executive) Update(ctx *perception.FusedContext, t clock.Instant) (finished *TaskContext) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scoreAll(t)
	selected := e.selectTask()
	if selected == nil {
		return nil
	}

	if selected.Status == TaskPending {
		selected.Status = TaskRunning
	}
	selected.wasRunning = true

	step := selected.CurrentStep()
	if step == nil {
		selected.Status = TaskCompleted
		return selected
	}

	if step.Status == SubTaskPending {
		generateExpectation(step)
		step.Status = SubTaskRunning
		step.StartedAt = t
		if step.Expectation.ExpectedDuration == 0 {
			step.Expectation.ExpectedDuration = defaultStepTimeout
		}
	}

	e.verifyStep(selected, step, ctx, t)

	if step.Status == SubTaskFailed && step.RetryCount >= MaxRetries {
		selected.Status = TaskFailed
		return selected
	}
	if step.Status == SubTaskCompleted {
		selected.CurrentStepIdx++
		if selected.CurrentStepIdx >= len(selected.Steps) {
			selected.Status = TaskCompleted
			return selected
		}
	}
	return nil
}

func (e *Executive) scoreAll(t clock.Instant) {
	for _, tc := range e.tasks {
		score := float64(tc.BasePriority)
		if tc.Status == TaskRunning {
			score += runningInertia
		}
		waitSecs := t.Sub(tc.firstSeenAt).Seconds()
		starvation := waitSecs * starvationRate
		if starvation > starvationCap {
			starvation = starvationCap
		}
		score += starvation
		tc.DynamicScore = score
	}
}

func (e *Executive) selectTask() *TaskContext {
	var candidates []*TaskContext
	for _, tc := range e.tasks {
		if tc.Status == TaskPending || tc.Status == TaskRunning {
			candidates = append(candidates, tc)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DynamicScore != candidates[j].DynamicScore {
			return candidates[i].DynamicScore > candidates[j].DynamicScore
		}
		return candidates[i].TaskID < candidates[j].TaskID
	})
	return candidates[0]
}

// verifyStep implements predictive verification: compare incoming
// perception against the step's Expectation, accumulate surprise, and
// advance/fail the step accordingly.
func (e *Executive) verifyStep(tc *TaskContext, step *SubTask, fc *perception.FusedContext, t clock.Instant) {
	if step.Expectation.HasVisual && fc != nil && fc.HasVision {
		matched := false
		for _, det := range fc.Vision.Detections {
			if det.Label == step.Expectation.ExpectedLabel && boxesIntersect(det.Box, step.Expectation.ExpectedROI) {
				matched = true
				break
			}
		}
		if matched {
			step.verified++
		} else {
			step.surprise += 0.5
		}
	}

	if step.Expectation.HasTactile {
		actualForce := 0.0
		if fc != nil && fc.HasRobot {
			actualForce = fc.Robot.GripperForce
		}
		forceError := actualForce - step.Expectation.ExpectedForce
		if forceError < 0 {
			forceError = -forceError
		}
		if forceError > step.Expectation.ForceTolerance {
			step.surprise += 1.0
			logging.With("component", "executive").Warn("unexpected force",
				"step_id", step.ID, "expected", step.Expectation.ExpectedForce, "actual", actualForce)
		}
	}

	step.PredictionError = step.surprise

	timedOut := t.Sub(step.StartedAt) > step.Expectation.ExpectedDuration
	if step.verified > 0 {
		step.IsVerified = true
		step.Status = SubTaskCompleted
		return
	}
	if timedOut {
		step.RetryCount++
		if step.RetryCount >= MaxRetries {
			step.Status = SubTaskFailed
		} else {
			step.Status = SubTaskRetrying
			step.StartedAt = t
		}
	}
}

func boxesIntersect(a, b perception.Box2D) bool {
	if b.W == 0 && b.H == 0 {
		return true // no ROI constraint configured
	}
	ax2, ay2 := a.X+a.W, a.Y+a.H
	bx2, by2 := b.X+b.W, b.Y+b.H
	return a.X < bx2 && ax2 > b.X && a.Y < by2 && ay2 > b.Y
}

// TriggerPlanning spawns at most one in-flight planning call; concurrent
// or rapid calls coalesce onto the same result via singleflight, giving
// the documented "further triggers are suppressed" behavior while still
// letting every caller observe the outcome.
func (e *Executive) TriggerPlanning(ctx context.Context, reason string) (*plannedAction, error) {
	taskPoolSummary := e.summarizeTasks()
	recent := ""
	if e.stream != nil {
		recent = e.stream.BuildContextPrompt()
	}

	v, err, _ := e.sf.Do(e.planningKey, func() (any, error) {
		resp, err := e.planner.PlanFromTaskPool(ctx, taskPoolSummary, recent)
		if err != nil {
			return nil, err
		}
		var pa plannedAction
		if err := json.Unmarshal([]byte(resp), &pa); err != nil {
			return nil, err
		}
		return &pa, nil
	})
	if err != nil {
		logging.With("component", "executive").Warn("planning failed", "reason", reason, "err", err)
		return nil, err
	}
	return v.(*plannedAction), nil
}

func (e *Executive) summarizeTasks() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := ""
	for _, tc := range e.tasks {
		out += tc.TaskID + ": " + tc.UserInstruction + " [" + string(tc.Status) + "]\n"
	}
	return out
}

// Tasks returns a snapshot of the task pool, for diagnostics and tests.
func (e *Executive) Tasks() []*TaskContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*TaskContext, 0, len(e.tasks))
	for _, tc := range e.tasks {
		out = append(out, tc)
	}
	return out
}

// ClearAll empties the task pool, used on a "Stop" barge-in command.
func (e *Executive) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = map[string]*TaskContext{}
}
