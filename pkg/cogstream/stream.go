// Package cogstream is the append-only event log (CognitiveStream) that
// feeds LLM planning context: a bounded history of perception, thought,
// decision, and action events.
package cogstream

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/basalt-robotics/cortex/internal/clock"
)

type EventType string

const (
	PerceptionVisual EventType = "PERCEPTION_VISUAL"
	PerceptionAudio  EventType = "PERCEPTION_AUDIO"
	PerceptionBody   EventType = "PERCEPTION_BODY"
	ThoughtChain     EventType = "THOUGHT_CHAIN"
	DecisionSwitch   EventType = "DECISION_SWITCH"
	ActionPhysical   EventType = "ACTION_PHYSICAL"
	ActionVerbal     EventType = "ACTION_VERBAL"
)

var typeMarker = map[EventType]string{
	PerceptionVisual: "[Eye]",
	PerceptionAudio:  "[Ear]",
	PerceptionBody:   "[Body]",
	ThoughtChain:     "[Think]",
	DecisionSwitch:   "[Decide]",
	ActionPhysical:   "[Act]",
	ActionVerbal:     "[Say]",
}

// Event is a single entry in the stream.
type Event struct {
	ID           string
	T            clock.Instant
	Type         EventType
	Summary      string
	DetailedData map[string]any
}

const maxHistory = 100

// Stream is a bounded deque of Events, safe for concurrent appends (the
// tick thread and background reflection goroutines may both append).
type Stream struct {
	mu   sync.Mutex
	evts []Event

	lastFrameQuality string
	lastArmState     string
	haveLast         bool
}

func New() *Stream {
	return &Stream{}
}

func (s *Stream) append(e Event) {
	e.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evts = append(s.evts, e)
	if len(s.evts) > maxHistory {
		s.evts = s.evts[len(s.evts)-maxHistory:]
	}
}

// AddVisualContext appends a PERCEPTION_VISUAL event, but only when
// frame_quality actually changed since the last call — the stream
// deduplicates status transitions rather than logging every tick.
func (s *Stream) AddVisualContext(t clock.Instant, frameQuality string, detections int) {
	s.mu.Lock()
	changed := !s.haveLast || s.lastFrameQuality != frameQuality
	s.lastFrameQuality = frameQuality
	s.haveLast = true
	s.mu.Unlock()

	if !changed {
		return
	}
	s.append(Event{
		T:       t,
		Type:    PerceptionVisual,
		Summary: fmt.Sprintf("vision quality=%s detections=%d", frameQuality, detections),
		DetailedData: map[string]any{
			"frame_quality": frameQuality,
			"detections":    detections,
		},
	})
}

// AddSystemStatus appends a PERCEPTION_BODY event only when arm_state
// changed since the last call.
func (s *Stream) AddSystemStatus(t clock.Instant, armState string) {
	s.mu.Lock()
	changed := !s.haveLast || s.lastArmState != armState
	s.lastArmState = armState
	s.haveLast = true
	s.mu.Unlock()

	if !changed {
		return
	}
	s.append(Event{
		T:            t,
		Type:         PerceptionBody,
		Summary:      fmt.Sprintf("arm_state=%s", armState),
		DetailedData: map[string]any{"arm_state": armState},
	})
}

func (s *Stream) AddAudio(t clock.Instant, text string) {
	s.append(Event{T: t, Type: PerceptionAudio, Summary: text})
}

func (s *Stream) AddThought(t clock.Instant, summary string, data map[string]any) {
	s.append(Event{T: t, Type: ThoughtChain, Summary: summary, DetailedData: data})
}

func (s *Stream) AddDecisionSwitch(t clock.Instant, from, to string) {
	s.append(Event{
		T:       t,
		Type:    DecisionSwitch,
		Summary: fmt.Sprintf("switched from %q to %q", from, to),
		DetailedData: map[string]any{
			"from": from,
			"to":   to,
		},
	})
}

func (s *Stream) AddActionPhysical(t clock.Instant, summary string) {
	s.append(Event{T: t, Type: ActionPhysical, Summary: summary})
}

func (s *Stream) AddActionVerbal(t clock.Instant, text string) {
	s.append(Event{T: t, Type: ActionVerbal, Summary: text})
}

// Recent returns up to n most recent events, oldest first.
func (s *Stream) Recent(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.evts) {
		n = len(s.evts)
	}
	out := make([]Event, n)
	copy(out, s.evts[len(s.evts)-n:])
	return out
}

// BuildContextPrompt serializes events in order with their type-prefix
// marker, for inclusion in an LLM prompt.
func (s *Stream) BuildContextPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, e := range s.evts {
		marker := typeMarker[e.Type]
		if marker == "" {
			marker = "[?]"
		}
		fmt.Fprintf(&b, "%s %s\n", marker, e.Summary)
	}
	return b.String()
}
