package strategy

import (
	"context"
	"fmt"

	"github.com/basalt-robotics/cortex/pkg/inference"
)

// Planner builds prompts and calls the abstract LLM oracle on behalf of
// the executive. It has two prompt-building modes, mirroring the
// original design's two overloads: one grounded in the current task pool,
// one grounded in a goal plus retrieved strategies and entity memory
// (RAG-style).
type Planner struct {
	oracle inference.Planner
	db     *DB
}

func NewPlanner(oracle inference.Planner, db *DB) *Planner {
	return &Planner{oracle: oracle, db: db}
}

// PlanFromTaskPool asks the oracle to re-plan given a textual summary of
// the current task pool and recent stream context, grounding it with
// strategies retrieved against both.
func (p *Planner) PlanFromTaskPool(ctx context.Context, taskPoolSummary, recentStream string) (string, error) {
	retrieved := BuildRetrievalBlock(p.db.RetrieveRelevant(taskPoolSummary, recentStream))
	prompt := fmt.Sprintf(
		"You control a robot. Current tasks:\n%s\n\nRecent events:\n%s\n\nRelevant learned strategies:\n%s\n\nPropose next actions as JSON.",
		taskPoolSummary, recentStream, retrieved,
	)
	return p.oracle.Complete(ctx, prompt)
}

// PlanFromGoal asks the oracle to produce a plan for a fresh goal,
// grounding it with strategies retrieved against the goal plus recent
// stream context, and a summary of known entities.
func (p *Planner) PlanFromGoal(ctx context.Context, goal, recentStream, entityMemorySummary string) (string, error) {
	retrieved := BuildRetrievalBlock(p.db.RetrieveRelevant(goal, recentStream))
	prompt := fmt.Sprintf(
		"Goal: %s\n\nRelevant learned strategies:\n%s\n\nKnown entities:\n%s\n\nPropose a step-by-step plan as JSON.",
		goal, retrieved, entityMemorySummary,
	)
	return p.oracle.Complete(ctx, prompt)
}
