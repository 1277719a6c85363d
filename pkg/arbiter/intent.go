// Package arbiter implements winner-take-all selection across competing
// behavior proposals, with hysteresis to prevent oscillation.
package arbiter

// Intent is the tagged-variant replacement for an opaque execute
// closure: each proposal carries data for exactly one of these kinds,
// resolved by an exhaustive switch in Execute rather than an indirect
// callable.
type Intent struct {
	Kind IntentKind

	// Grasp
	TargetID uint64

	// LookAt
	Label string

	// Speak
	Text string
}

type IntentKind string

const (
	IntentSafetyStop IntentKind = "SAFETY_STOP"
	IntentGrasp      IntentKind = "GRASP"
	IntentLookAt     IntentKind = "LOOK_AT"
	IntentSpeak      IntentKind = "SPEAK"
	IntentNoOp       IntentKind = "NO_OP"
)

func SafetyStop() Intent        { return Intent{Kind: IntentSafetyStop} }
func Grasp(targetID uint64) Intent { return Intent{Kind: IntentGrasp, TargetID: targetID} }
func LookAt(label string) Intent   { return Intent{Kind: IntentLookAt, Label: label} }
func Speak(text string) Intent     { return Intent{Kind: IntentSpeak, Text: text} }
func NoOp() Intent                 { return Intent{Kind: IntentNoOp} }

// Proposal is an ActionProposal: a candidate behavior with a priority and
// an Intent to execute if it wins arbitration.
type Proposal struct {
	Source      string
	Priority    float64
	Description string
	Intent      Intent
}

// Priority scale constants named in the design.
const (
	PrioritySafetyReflex = 100.0
	PriorityTaskMax      = 15.0
	PriorityTaskMin      = 5.0
	PriorityExploration  = 2.5
	PriorityIdle         = 0.0
)
