// Command cortex wires every cognitive-core package into a runnable
// tick loop. It has no real sensor or motor drivers of its own — those
// are hardware-specific and out of scope — so it stands in stub
// implementations of Detector, ASR, MotorBackend, and TTSProvider,
// useful for manual smoke-testing the tick loop end to end.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/basalt-robotics/cortex/internal/logging"
	"github.com/basalt-robotics/cortex/internal/store"
	"github.com/basalt-robotics/cortex/pkg/action"
	"github.com/basalt-robotics/cortex/pkg/agent"
	"github.com/basalt-robotics/cortex/pkg/arbiter"
	"github.com/basalt-robotics/cortex/pkg/attention"
	"github.com/basalt-robotics/cortex/pkg/cognition"
	"github.com/basalt-robotics/cortex/pkg/cogstream"
	"github.com/basalt-robotics/cortex/pkg/control"
	"github.com/basalt-robotics/cortex/pkg/executive"
	"github.com/basalt-robotics/cortex/pkg/inference"
	"github.com/basalt-robotics/cortex/pkg/perception"
	"github.com/basalt-robotics/cortex/pkg/strategy"
)

func main() {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	tickHz := flag.Float64("tick-hz", 20, "tick loop frequency")
	strategyFile := flag.String("strategy-store", "", "path to persist the learned strategy DB (empty disables persistence)")
	muscleMemoryFile := flag.String("muscle-memory-store", "", "path to persist the muscle-memory regressor")
	flag.Parse()

	logging.Init(*logLevel)
	log := logging.With("component", "cmd.cortex")

	oracle := inference.NewMock("")

	strategyStore := store.Store(store.NullStore{})
	if *strategyFile != "" {
		strategyStore = store.NewJSONStore(*strategyFile)
	}
	strategyDB := strategy.NewDB(strategyStore)
	if err := strategyDB.Load(); err != nil {
		log.Warn("failed to load strategy db", "err", err)
	}
	strategicPlanner := strategy.NewPlanner(oracle, strategyDB)
	optimizer := strategy.NewOptimizer(strategyDB, oracle)

	perceptionSys := perception.New(perception.DefaultConfig(), stubDetector{}, stubASR{})
	cognitionEngine := cognition.NewEngine()
	stream := cogstream.New()
	attentionEngine := attention.New()
	exec := executive.New(strategicPlanner, stream)

	regressor := control.NewLinearRegressor(6)
	if *muscleMemoryFile != "" {
		if err := regressor.Load(store.NewJSONStore(*muscleMemoryFile)); err != nil {
			log.Warn("failed to load muscle memory", "err", err)
		}
	}
	controller := control.NewController(regressor)

	arb := arbiter.New()
	actions := action.NewManager(stubMotorBackend{})
	tts := action.NewTTSEngine(stubTTSProvider{log: log})

	core := agent.New(perceptionSys, cognitionEngine, stream, attentionEngine, exec, controller, arb, actions, tts)
	core.SetReflectionHook(func(taskID, episodeLog string, success bool) {
		optimizer.ReflectOnEpisode(context.Background(), episodeLog, success)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	if err := core.Start(ctx); err != nil {
		log.Error("failed to start agent workers", "err", err)
		os.Exit(1)
	}
	perceptionSys.SetStatus(perception.SystemStatus{
		VisionState: perception.StateReady,
		ArmState:    perception.StateReady,
		AudioState:  perception.StateReady,
	})

	log.Info("cortex tick loop starting", "tick_hz", *tickHz)
	runTickLoop(ctx, core, *tickHz)

	if err := core.Stop(); err != nil {
		log.Warn("agent workers did not shut down cleanly", "err", err)
	}
	if *muscleMemoryFile != "" {
		if err := regressor.Save(store.NewJSONStore(*muscleMemoryFile)); err != nil {
			log.Warn("failed to save muscle memory", "err", err)
		}
	}
	log.Info("cortex stopped")
}

func runTickLoop(ctx context.Context, core *agent.Agent, hz float64) {
	period := time.Duration(float64(time.Second) / hz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			core.Tick(ctx)
		}
	}
}

// stubDetector returns no detections; a real deployment wires in an
// actual object-detection model here.
type stubDetector struct{}

func (stubDetector) Detect(gray gocv.Mat) ([]perception.Detection, error) {
	return nil, nil
}

// stubASR never transcribes anything; a real deployment wires in a
// streaming speech-to-text backend here.
type stubASR struct{}

func (stubASR) Transcribe(pcm []int16, sampleRate int) (string, float64, error) {
	return "", 0, nil
}

// stubMotorBackend always reports success and never stalls.
type stubMotorBackend struct{}

func (stubMotorBackend) Execute(cmd action.Command) error { return nil }
func (stubMotorBackend) IsStalled() bool                  { return false }

// stubTTSProvider logs what it would have said instead of producing audio.
type stubTTSProvider struct {
	log interface{ Info(string, ...any) }
}

func (p stubTTSProvider) Speak(ctx context.Context, text string) error {
	p.log.Info("speak", "text", text)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(300 * time.Millisecond):
		return nil
	}
}
