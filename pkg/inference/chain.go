package inference

import (
	"context"
	"fmt"
	"strings"
)

// ChainError aggregates the error from every Planner a Chain tried.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("all planners failed: %s", strings.Join(parts, "; "))
}

func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Chain tries a sequence of Planners in order, falling back to the next
// on error. Used when a host wants a cheap local planner with a stronger
// remote one as fallback (or vice versa).
type Chain struct {
	planners []Planner
}

func NewChain(planners ...Planner) *Chain {
	return &Chain{planners: planners}
}

func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	var errs []error
	for _, p := range c.planners {
		resp, err := p.Complete(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		errs = append(errs, err)
	}
	return "", &ChainError{Errors: errs}
}

var _ Planner = (*Chain)(nil)
