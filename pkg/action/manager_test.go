package action

import (
	"testing"
	"time"

	"github.com/basalt-robotics/cortex/internal/clock"
)

type fakeBackend struct {
	stalled bool
	failErr error
}

func (f *fakeBackend) Execute(cmd Command) error { return f.failErr }
func (f *fakeBackend) IsStalled() bool           { return f.stalled }

func TestManagerTransitionsToSucceededAfterDuration(t *testing.T) {
	m := NewManager(&fakeBackend{})
	m.succeedAfter = 10 * time.Millisecond
	start := clock.Now()
	if err := m.Execute(Command{Name: "move"}, "move", start); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !m.IsBusy() {
		t.Fatalf("expected busy immediately after execute")
	}

	m.RefreshStatus(start.Add(20 * time.Millisecond))
	if m.Status() != StatusSucceeded {
		t.Fatalf("expected SUCCEEDED after duration elapsed, got %s", m.Status())
	}
}

func TestManagerFailsOnStall(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)
	start := clock.Now()
	m.Execute(Command{Name: "move"}, "move", start)

	backend.stalled = true
	m.RefreshStatus(start.Add(time.Millisecond))
	if m.Status() != StatusFailed {
		t.Fatalf("expected FAILED on stall, got %s", m.Status())
	}
}

func TestManagerOverwritesCurrentAction(t *testing.T) {
	m := NewManager(&fakeBackend{})
	now := clock.Now()
	m.Execute(Command{Name: "a"}, "a", now)
	m.Execute(Command{Name: "b"}, "b", now)
	if m.CurrentAction() != "b" {
		t.Fatalf("expected overwrite to 'b', got %s", m.CurrentAction())
	}
}
