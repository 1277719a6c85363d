package inference

import "context"

// Mock is a deterministic Planner used by tests and as the default
// wiring when no real planner is configured. It degrades gracefully: no
// new strategies, a single fallback response, rather than blocking
// forever waiting on a real backend.
type Mock struct {
	Response string
	Err      error
	Calls    []string
}

func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return `{"action":"NONE"}`, nil
}

var _ Planner = (*Mock)(nil)
