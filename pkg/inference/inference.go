// Package inference provides the abstract text-to-text planning oracle
// the strategic planner calls out to. It intentionally exposes nothing
// about transport: the concrete LLM backend is wired in by the host
// application, out of scope here.
package inference

import "context"

// Planner is a single-shot completion oracle: given a prompt, produce a
// response. Implementations are expected to have nontrivial latency
// (hundreds of milliseconds to seconds), which is why callers never
// invoke it from the tick thread directly (see pkg/executive's
// single-flight planning).
type Planner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PlannerFunc adapts a plain function to the Planner interface.
type PlannerFunc func(ctx context.Context, prompt string) (string, error)

func (f PlannerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
