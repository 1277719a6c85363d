// Package agent wires every other package into the 100Hz tick
// orchestrator: the phase-ordered heartbeat described in the design.
package agent

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/internal/logging"
	"github.com/basalt-robotics/cortex/pkg/action"
	"github.com/basalt-robotics/cortex/pkg/arbiter"
	"github.com/basalt-robotics/cortex/pkg/attention"
	"github.com/basalt-robotics/cortex/pkg/cognition"
	"github.com/basalt-robotics/cortex/pkg/cogstream"
	"github.com/basalt-robotics/cortex/pkg/control"
	"github.com/basalt-robotics/cortex/pkg/executive"
	"github.com/basalt-robotics/cortex/pkg/perception"
)

const stopDebounceWindow = 2 * time.Second

// Agent is the tick orchestrator. All dependencies are supplied at
// construction (explicit injection, per the design note), never via
// setters, so the wiring is never in a half-assembled state.
type Agent struct {
	perception *perception.System
	cognition  *cognition.Engine
	stream     *cogstream.Stream
	attentionE *attention.Engine
	executive  *executive.Executive
	controller *control.Controller
	arbiterI   *arbiter.Arbiter
	actions    *action.Manager
	tts        *action.TTSEngine

	log *slog.Logger

	lastCommand   string
	lastCommandAt clock.Instant

	taskKeyword string

	reflectionHook func(taskID, episodeLog string, success bool)

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New constructs an Agent from its fully-built dependencies.
func New(
	p *perception.System,
	c *cognition.Engine,
	s *cogstream.Stream,
	a *attention.Engine,
	ex *executive.Executive,
	ctrl *control.Controller,
	arb *arbiter.Arbiter,
	am *action.Manager,
	tts *action.TTSEngine,
) *Agent {
	return &Agent{
		perception: p,
		cognition:  c,
		stream:     s,
		attentionE: a,
		executive:  ex,
		controller: ctrl,
		arbiterI:   arb,
		actions:    am,
		tts:        tts,
		log:        logging.With("component", "agent"),
	}
}

// Start launches the agent's background workers — the ASR worker and the
// TTS worker — under a shared errgroup, and returns immediately. Tick
// still runs on the host's own ticker goroutine; Start only owns the
// workers Tick fires and forgets (including reflection goroutines spawned
// when a task finishes). Stop joins all of them.
func (a *Agent) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.perception.RunASRWorker(gctx)
		return nil
	})
	g.Go(func() error {
		a.tts.Run(gctx)
		return nil
	})

	a.group = g
	a.cancel = cancel
	return nil
}

// Stop cancels every worker Start launched and waits for clean shutdown.
func (a *Agent) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.perception.Stop()
	if a.group == nil {
		return nil
	}
	return a.group.Wait()
}

// Tick runs one heartbeat. The host application is responsible for
// calling this at >=10Hz; Agent does not own its own ticker (that is
// main-loop bootstrap, out of scope here).
func (a *Agent) Tick(ctx context.Context) {
	now := clock.Now()

	// 1. stability recovery
	a.controller.UpdateInternalState()

	// 2. assemble fused context
	fc := a.perception.GetContext(now)

	// 3. gain reduction on blur, skip cognition this tick
	if fc.HasVision && fc.Vision.Quality == perception.QualityBlurry {
		a.controller.ReduceGainForStability()
		return
	}

	// 4. hardware fault short-circuit
	if fc.Status.ArmState == perception.StateStalled {
		a.actions.Execute(action.ZeroTorque, "SafetyStop", now)
		a.tts.SpeakAsync("My arm seems to be stuck.")
		return
	}

	// 5. vision not ready yet
	if fc.Status.VisionState == perception.StateInitializing {
		return
	}

	a.actions.RefreshStatus(now)
	// 6. no context switch mid-motion
	if a.actions.IsBusy() {
		return
	}

	// 7. append perception events
	if fc.HasVision {
		a.stream.AddVisualContext(now, string(fc.Vision.Quality), len(fc.Vision.Detections))
	}
	a.stream.AddSystemStatus(now, string(fc.Status.ArmState))

	// 8. handle transcript, suppressing ASR while speaking except "Stop"
	if fc.HasTranscript {
		a.handleTranscript(fc.LatestTranscript.Text, now)
		a.perception.MarkTranscriptProcessed(fc.LatestTranscript)
	}

	// 9. cognition update
	var detections []perception.Detection
	if fc.HasVision {
		detections = fc.Vision.Detections
	}
	a.cognition.Update(detections, now)

	// 10. executive update
	finished := a.executive.Update(&fc, now)
	if finished != nil {
		reflect := func() error {
			episodeLog := a.stream.BuildContextPrompt()
			success := finished.Status == executiveCompletedStatus()
			a.onEpisodeFinished(finished.TaskID, episodeLog, success)
			return nil
		}
		if a.group != nil {
			a.group.Go(reflect)
		} else {
			go reflect()
		}
		a.stream.AddActionVerbal(now, "finished task: "+finished.UserInstruction)
	}

	// 12. saliency
	attnDets := toAttentionDetections(detections)
	surprise := map[string]float64{}
	if step := currentStep(a.executive); step != nil {
		surprise[step.TargetObject] = step.PredictionError
	}
	saliency := a.attentionE.Compute(attnDets, a.taskKeyword, surprise)

	// 13/14. collect proposals and arbitrate
	proposals := a.collectProposals(fc, saliency, now)
	exec := &executor{agent: a}
	a.arbiterI.Arbitrate(now, proposals, exec, &decisionLogger{stream: a.stream})
}

func (a *Agent) onEpisodeFinished(taskID, episodeLog string, success bool) {
	if a.reflectionHook != nil {
		a.reflectionHook(taskID, episodeLog, success)
	}
}

// SetReflectionHook wires a background-reflection callback, e.g.
// strategy.Optimizer.ReflectOnEpisode, invoked on a goroutine whenever a
// task finishes.
func (a *Agent) SetReflectionHook(hook func(taskID, episodeLog string, success bool)) {
	a.reflectionHook = hook
}

func executiveCompletedStatus() executive.TaskStatus { return executive.TaskCompleted }

func currentStep(ex *executive.Executive) *executive.SubTask {
	for _, tc := range ex.Tasks() {
		if tc.Status == executive.TaskRunning {
			return tc.CurrentStep()
		}
	}
	return nil
}

func toAttentionDetections(dets []perception.Detection) []attention.Detection {
	out := make([]attention.Detection, len(dets))
	for i, d := range dets {
		out[i] = attention.Detection{Label: d.Label, Confidence: d.Confidence}
	}
	return out
}

// OnUserCommand is the façade entry point for ASR transcripts delivered
// outside the tick (e.g. directly by a host that bypasses GetContext).
// "Stop" triggers immediate cancellation; identical commands within
// stopDebounceWindow are ignored to avoid re-triggering on noisy ASR
// repeats, replacing the source's static-local debounce with a field on
// Agent.
func (a *Agent) OnUserCommand(text string, now clock.Instant) {
	a.handleTranscript(text, now)
}

func (a *Agent) handleTranscript(text string, now clock.Instant) {
	if a.tts.IsSpeaking() && text != "Stop" {
		return
	}

	if text == a.lastCommand && now.Sub(a.lastCommandAt) < stopDebounceWindow {
		return
	}
	a.lastCommand = text
	a.lastCommandAt = now

	if text == "Stop" {
		a.handleStop(now)
		return
	}

	a.stream.AddAudio(now, text)
	a.executive.AddTask(text, executive.PriorityNormal, nil, now)
}

func (a *Agent) handleStop(now clock.Instant) {
	a.tts.Stop()
	a.executive.ClearAll()
	a.actions.Execute(action.ZeroTorque, "SafetyStop", now)
}

func (a *Agent) collectProposals(fc perception.FusedContext, saliency []attention.Salience, now clock.Instant) []arbiter.Proposal {
	var proposals []arbiter.Proposal

	if fc.Status.ArmState == perception.StateStalled || fc.Status.VisionState == perception.StateError {
		proposals = append(proposals, arbiter.Proposal{
			Source:      "SafetyReflex",
			Priority:    arbiter.PrioritySafetyReflex,
			Description: "hardware fault",
			Intent:      arbiter.SafetyStop(),
		})
	}

	if step := currentStep(a.executive); step != nil {
		priority := arbiter.PriorityTaskMin
		if step.PredictionError > 0 {
			priority = arbiter.PriorityTaskMax
		}
		proposals = append(proposals, arbiter.Proposal{
			Source:      "Task",
			Priority:    priority,
			Description: step.Description,
			Intent:      arbiter.Grasp(0),
		})
	}

	if best := bestSalient(saliency); best != nil {
		proposals = append(proposals, arbiter.Proposal{
			Source:      "Exploration",
			Priority:    arbiter.PriorityExploration,
			Description: "look at " + best.Label,
			Intent:      arbiter.LookAt(best.Label),
		})
	}

	proposals = append(proposals, arbiter.Proposal{
		Source:      "Idle",
		Priority:    arbiter.PriorityIdle,
		Description: "idle",
		Intent:      arbiter.NoOp(),
	})

	return proposals
}

func bestSalient(s []attention.Salience) *attention.Salience {
	if len(s) == 0 {
		return nil
	}
	best := s[0]
	for _, v := range s[1:] {
		if v.Score > best.Score {
			best = v
		}
	}
	return &best
}

// executor resolves a winning Intent into side effects.
type executor struct {
	agent *Agent
}

func (e *executor) Execute(intent arbiter.Intent) {
	now := clock.Now()
	switch intent.Kind {
	case arbiter.IntentSafetyStop:
		e.agent.actions.Execute(action.ZeroTorque, "SafetyStop", now)
	case arbiter.IntentGrasp:
		e.agent.actions.Execute(action.Command{Name: "grasp"}, "Grasp", now)
	case arbiter.IntentLookAt:
		e.agent.actions.Execute(action.Command{Name: "look_at", Payload: map[string]float64{}}, "LookAt", now)
		e.agent.attentionE.Inhibit(intent.Label)
	case arbiter.IntentSpeak:
		e.agent.tts.SpeakAsync(intent.Text)
	case arbiter.IntentNoOp:
		// no-op
	}
}

type decisionLogger struct {
	stream *cogstream.Stream
}

func (d *decisionLogger) LogDecisionSwitch(t clock.Instant, from, to string) {
	d.stream.AddDecisionSwitch(t, from, to)
}
