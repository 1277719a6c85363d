package arbiter

import (
	"sort"

	"github.com/basalt-robotics/cortex/internal/clock"
)

const hysteresisMargin = 0.1

// Executor resolves a winning Intent into side effects. The implementation
// lives in pkg/agent, which dispatches to pkg/action (motor/speech) and
// pkg/attention (inhibition for LookAt).
type Executor interface {
	Execute(intent Intent)
}

// DecisionLogger is notified when the winning source changes, so the
// caller can append a DECISION_SWITCH event to the cognitive stream.
type DecisionLogger interface {
	LogDecisionSwitch(t clock.Instant, from, to string)
}

// Arbiter performs winner-take-all selection with hysteresis: when a new
// source leads but its lead over the runner-up is less than
// hysteresisMargin, the incumbent is kept instead, provided it is still
// among this tick's proposals.
type Arbiter struct {
	lastWinner string
	haveWinner bool
}

func New() *Arbiter {
	return &Arbiter{}
}

// Arbitrate sorts proposals by priority descending, applies the
// hysteresis hold rule, logs a decision switch if the winner changed, and
// invokes the executor. It returns the winning proposal.
func (a *Arbiter) Arbitrate(t clock.Instant, proposals []Proposal, exec Executor, logger DecisionLogger) Proposal {
	if len(proposals) == 0 {
		return Proposal{Intent: NoOp()}
	}

	sorted := make([]Proposal, len(proposals))
	copy(sorted, proposals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	winner := sorted[0]
	if a.haveWinner && winner.Source != a.lastWinner && len(sorted) > 1 {
		margin := sorted[0].Priority - sorted[1].Priority
		if margin < hysteresisMargin {
			if held, ok := findBySource(sorted, a.lastWinner); ok {
				winner = held
			}
		}
	}

	if !a.haveWinner || winner.Source != a.lastWinner {
		if a.haveWinner && logger != nil {
			logger.LogDecisionSwitch(t, a.lastWinner, winner.Source)
		}
		a.lastWinner = winner.Source
		a.haveWinner = true
	}

	if exec != nil {
		exec.Execute(winner.Intent)
	}
	return winner
}

func findBySource(proposals []Proposal, source string) (Proposal, bool) {
	for _, p := range proposals {
		if p.Source == source {
			return p, true
		}
	}
	return Proposal{}, false
}
