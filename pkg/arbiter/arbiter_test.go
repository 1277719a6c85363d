package arbiter

import "testing"

type recordingExecutor struct {
	executed []Intent
}

func (r *recordingExecutor) Execute(intent Intent) {
	r.executed = append(r.executed, intent)
}

func TestSafetyAlwaysWinsByPriority(t *testing.T) {
	a := New()
	exec := &recordingExecutor{}
	proposals := []Proposal{
		{Source: "Task", Priority: 10, Intent: Grasp(1)},
		{Source: "SafetyReflex", Priority: 100, Intent: SafetyStop()},
	}
	winner := a.Arbitrate(0, proposals, exec, nil)
	if winner.Source != "SafetyReflex" {
		t.Fatalf("expected SafetyReflex to win, got %s", winner.Source)
	}
	if len(exec.executed) != 1 || exec.executed[0].Kind != IntentSafetyStop {
		t.Fatalf("expected SafetyStop executed, got %+v", exec.executed)
	}
}

func TestHysteresisHoldsIncumbentWithinMargin(t *testing.T) {
	a := New()
	exec := &recordingExecutor{}

	// First tick establishes Task as the incumbent.
	a.Arbitrate(0, []Proposal{{Source: "Task", Priority: 10, Intent: NoOp()}}, exec, nil)

	// Second tick: Exploration edges ahead by less than the hysteresis
	// margin, but Task is still present, so Task should be held.
	winner := a.Arbitrate(1, []Proposal{
		{Source: "Task", Priority: 10, Intent: NoOp()},
		{Source: "Exploration", Priority: 10.05, Intent: NoOp()},
	}, exec, nil)

	if winner.Source != "Task" {
		t.Fatalf("expected hysteresis to hold incumbent Task, got %s", winner.Source)
	}
}

func TestWinnerSwitchesWhenMarginExceeded(t *testing.T) {
	a := New()
	exec := &recordingExecutor{}

	a.Arbitrate(0, []Proposal{{Source: "Task", Priority: 10, Intent: NoOp()}}, exec, nil)

	winner := a.Arbitrate(1, []Proposal{
		{Source: "Task", Priority: 10, Intent: NoOp()},
		{Source: "SafetyReflex", Priority: 100, Intent: SafetyStop()},
	}, exec, nil)

	if winner.Source != "SafetyReflex" {
		t.Fatalf("expected decisive priority gap to switch winner, got %s", winner.Source)
	}
}

func TestIncumbentNotHeldIfAbsent(t *testing.T) {
	a := New()
	exec := &recordingExecutor{}

	a.Arbitrate(0, []Proposal{{Source: "Task", Priority: 10, Intent: NoOp()}}, exec, nil)

	// Task is gone this tick; Exploration should win outright even
	// within what would have been the hysteresis margin.
	winner := a.Arbitrate(1, []Proposal{
		{Source: "Exploration", Priority: 10.05, Intent: NoOp()},
	}, exec, nil)

	if winner.Source != "Exploration" {
		t.Fatalf("expected Exploration to win when incumbent absent, got %s", winner.Source)
	}
}
