package perception

import (
	"context"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/basalt-robotics/cortex/internal/clock"
	"github.com/basalt-robotics/cortex/pkg/timeline"
)

// ASR is the abstract speech-to-text external collaborator.
type ASR interface {
	Transcribe(pcm []int16, sampleRate int) (text string, confidence float64, err error)
}

// System holds the four RingTracks and the gating/VAD pipelines that feed
// them. It is the component named PerceptionSystem in the design.
type System struct {
	cfg *Config
	log *slog.Logger

	body       *timeline.RingTrack[RobotState]
	vision     *timeline.RingTrack[VisualFrame]
	transcript *timeline.RingTrack[AudioTranscript]

	detector Detector
	asr      ASR

	gating *gatingState

	statusMu sync.RWMutex
	status   SystemStatus

	audioMu    sync.Mutex
	audioCond  *sync.Cond
	audioQueue [][]int16
	vadState   *vad
	stopped    bool

	lastDeliveredMu sync.Mutex
	lastDelivered   clock.Instant
}

// New constructs a PerceptionSystem. detector and asr are the external
// collaborators named in the design (detection model, ASR engine).
func New(cfg *Config, detector Detector, asr ASR) *System {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &System{
		cfg:        cfg,
		log:        cfg.Logger,
		body:       timeline.NewRingTrack[RobotState](cfg.BodyCapacity),
		vision:     timeline.NewRingTrack[VisualFrame](cfg.VisionCapacity),
		transcript: timeline.NewRingTrack[AudioTranscript](cfg.TranscriptCapacity),
		detector:   detector,
		asr:        asr,
		gating:     newGatingState(),
		vadState:   newVAD(cfg),
		status: SystemStatus{
			VisionState: StateInitializing,
			ArmState:    StateInitializing,
			AudioState:  StateInitializing,
		},
	}
	s.audioCond = sync.NewCond(&s.audioMu)
	return s
}

// OnIMUJoint is the driver callback for proprioceptive samples. It must
// complete in microseconds: it only pushes into the body track.
func (s *System) OnIMUJoint(state RobotState) {
	s.body.Push(state)
}

// OnCameraFrame is the driver callback for camera frames. Unlike the
// proprioceptive/audio callbacks, this one does real work inline on the
// driver thread: the L0/L1 gating stages and, for frames that pass them,
// the L2 detector call.
func (s *System) OnCameraFrame(img gocv.Mat, tCapture clock.Instant) {
	frame, err := s.gating.runGating(s.cfg, s.detector, img)
	if err != nil {
		s.log.Warn("gating pipeline failed", "err", err)
		return
	}
	frame.T = tCapture
	s.vision.Push(frame)
}

// OnAudioMic is the driver callback for raw microphone PCM. It appends to
// the VAD accumulator and, on end-of-utterance, hands the buffer to the
// ASR worker via the audio queue rather than running ASR inline (ASR may
// take hundreds of milliseconds, far too slow for a driver callback).
func (s *System) OnAudioMic(pcm []int16, sampleRate int) {
	utterance, flushed := s.vadState.feed(pcm)
	if !flushed {
		return
	}

	s.audioMu.Lock()
	s.audioQueue = append(s.audioQueue, utterance)
	s.audioCond.Signal()
	s.audioMu.Unlock()
}

// Start launches the ASR worker goroutine. It returns immediately; the
// worker exits once ctx is cancelled or Stop is called.
func (s *System) Start(ctx context.Context) {
	go s.RunASRWorker(ctx)
}

// Stop signals the ASR worker to exit.
func (s *System) Stop() {
	s.audioMu.Lock()
	s.stopped = true
	s.audioCond.Broadcast()
	s.audioMu.Unlock()
}

// RunASRWorker is the ASR worker loop. Unlike Start, it blocks until ctx
// is cancelled or Stop is called, so a caller that wants to join on
// worker shutdown (pkg/agent's errgroup-based lifecycle) can run it
// directly instead of going through Start's fire-and-forget goroutine.
func (s *System) RunASRWorker(ctx context.Context) {
	s.asrWorkerLoop(ctx)
}

func (s *System) asrWorkerLoop(ctx context.Context) {
	// Wake the condition wait when ctx is cancelled, so an idle worker
	// exits without needing Stop.
	stopWake := context.AfterFunc(ctx, func() {
		s.audioMu.Lock()
		s.audioCond.Broadcast()
		s.audioMu.Unlock()
	})
	defer stopWake()

	for {
		s.audioMu.Lock()
		for len(s.audioQueue) == 0 && !s.stopped && ctx.Err() == nil {
			s.audioCond.Wait()
		}
		if ctx.Err() != nil || (s.stopped && len(s.audioQueue) == 0) {
			s.audioMu.Unlock()
			return
		}
		utterance := s.audioQueue[0]
		s.audioQueue = s.audioQueue[1:]
		s.audioMu.Unlock()

		if ctx.Err() != nil {
			return
		}

		text, conf, err := s.asr.Transcribe(utterance, s.cfg.AudioSampleRate)
		if err != nil {
			s.log.Warn("asr transcription failed", "err", err)
			continue
		}
		if text == "" {
			continue
		}

		s.transcript.Push(AudioTranscript{
			TEnd:       clock.Now(),
			Text:       text,
			Confidence: conf,
			Processed:  false,
		})
	}
}

// SetStatus updates the live driver-state snapshot. Drivers call this as
// their own state machines transition; GetContext reads it live rather
// than through a RingTrack since it is a current-value query, not a
// time series.
func (s *System) SetStatus(status SystemStatus) {
	s.statusMu.Lock()
	s.status = status
	s.statusMu.Unlock()
}

func (s *System) Status() SystemStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// MarkTranscriptProcessed flags the given transcript as consumed so it is
// not re-delivered by a subsequent GetContext call. It is idempotent.
func (s *System) MarkTranscriptProcessed(t AudioTranscript) {
	// RingTrack doesn't support in-place mutation by design (records are
	// immutable once pushed); processed-state is tracked by a parallel
	// "last delivered" marker instead of mutating history.
	s.lastDeliveredMu.Lock()
	s.lastDelivered = t.TEnd
	s.lastDeliveredMu.Unlock()
}

func (s *System) isDelivered(t clock.Instant) bool {
	s.lastDeliveredMu.Lock()
	defer s.lastDeliveredMu.Unlock()
	return s.lastDelivered >= t
}
