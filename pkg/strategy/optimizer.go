package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/basalt-robotics/cortex/internal/logging"
	"github.com/basalt-robotics/cortex/pkg/inference"
)

// reflectionAction is the shape the LLM is expected to return from a
// reflect_on_episode call.
type reflectionAction struct {
	Action   string   `json:"action"` // ADD | MODIFY | DELETE | NONE
	TargetID uint64   `json:"target_id,omitempty"`
	NewRule  string   `json:"new_rule,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Optimizer runs the reflective learning loop: after an episode
// completes, ask the LLM whether the strategy DB should gain, lose, or
// modify a rule, and apply the verdict.
type Optimizer struct {
	db      *DB
	planner inference.Planner
}

func NewOptimizer(db *DB, planner inference.Planner) *Optimizer {
	return &Optimizer{db: db, planner: planner}
}

// ReflectOnEpisode builds a prompt containing the episode log and the
// existing rule set (by ID), asks the planner, and mutates the DB
// according to the parsed verdict. Intended to run on a background
// goroutine; errors are logged and swallowed per the error-handling
// design (background reflection errors never surface to the tick).
func (o *Optimizer) ReflectOnEpisode(ctx context.Context, episodeLog string, success bool) {
	prompt := o.buildReflectionPrompt(episodeLog, success)

	resp, err := o.planner.Complete(ctx, prompt)
	if err != nil {
		logging.With("component", "strategy.optimizer").Warn("reflection planner call failed", "err", err)
		return
	}

	var verdict reflectionAction
	if err := json.Unmarshal([]byte(resp), &verdict); err != nil {
		logging.With("component", "strategy.optimizer").Warn("malformed reflection response", "err", err)
		return
	}

	switch verdict.Action {
	case "ADD":
		o.db.Add(verdict.NewRule, verdict.Tags)
	case "MODIFY":
		o.db.Modify(verdict.TargetID, verdict.NewRule, verdict.Tags)
	case "DELETE":
		o.db.Delete(verdict.TargetID)
	case "NONE", "":
		// no-op
	}
}

func (o *Optimizer) buildReflectionPrompt(episodeLog string, success bool) string {
	out := fmt.Sprintf("Episode outcome: %v\nEpisode log:\n%s\n\nExisting rules:\n", success, episodeLog)
	for _, e := range o.db.All() {
		out += fmt.Sprintf("  [%d] %s (tags=%v, usage=%d)\n", e.ID, e.RuleText, e.Tags, e.UsageCount)
	}
	out += "\nRespond with JSON: {\"action\": \"ADD|MODIFY|DELETE|NONE\", \"target_id\": ..., \"new_rule\": \"...\", \"tags\": [...]}"
	return out
}
