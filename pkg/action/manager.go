// Package action implements ActionManager (serialized motor commands) and
// TTSEngine (queued speech), both against an abstract Backend/Provider
// driver contract with a Chain fallback combinator.
package action

import (
	"sync"
	"time"

	"github.com/basalt-robotics/cortex/internal/clock"
)

type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// MotorBackend is the abstract low-level motor driver contract: issue a
// command, report whether it is still in flight or has stalled.
type MotorBackend interface {
	Execute(cmd Command) error
	IsStalled() bool
}

// Command is an opaque motor instruction; its shape is owned by the
// backend, not interpreted here.
type Command struct {
	Name    string
	Payload map[string]float64
}

var ZeroTorque = Command{Name: "ZERO"}

const defaultSucceedAfter = 2 * time.Second

// Manager tracks at most one current action at a time.
type Manager struct {
	mu           sync.Mutex
	backend      MotorBackend
	current      string
	status       Status
	startedAt    clock.Instant
	succeedAfter time.Duration
}

func NewManager(backend MotorBackend) *Manager {
	return &Manager{backend: backend, status: StatusIdle, succeedAfter: defaultSucceedAfter}
}

// Execute overwrites the current action, per the "at most one" invariant.
func (m *Manager) Execute(cmd Command, name string, now clock.Instant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Execute(cmd); err != nil {
		m.status = StatusFailed
		return err
	}
	m.current = name
	m.status = StatusRunning
	m.startedAt = now
	return nil
}

// RefreshStatus transitions RUNNING -> SUCCEEDED after succeedAfter has
// elapsed, or RUNNING -> FAILED if the backend reports a stall. Callers
// invoke this each tick before reading Status/IsBusy.
func (m *Manager) RefreshStatus(now clock.Instant) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusRunning {
		return
	}
	if m.backend.IsStalled() {
		m.status = StatusFailed
		return
	}
	if now.Sub(m.startedAt) >= m.succeedAfter {
		m.status = StatusSucceeded
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) IsBusy() bool {
	return m.Status() == StatusRunning
}

func (m *Manager) CurrentAction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
