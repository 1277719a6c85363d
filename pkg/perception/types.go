package perception

import "github.com/basalt-robotics/cortex/internal/clock"

// FrameQuality classifies why a visual frame is or isn't usable for
// downstream cognition.
type FrameQuality string

const (
	QualityValid  FrameQuality = "VALID"
	QualityBlurry FrameQuality = "BLURRY"
	QualityStatic FrameQuality = "STATIC"
	QualityDark   FrameQuality = "DARK"
)

// SystemState enumerates the lifecycle state of a driver subsystem.
type SystemState string

const (
	StateOffline      SystemState = "OFFLINE"
	StateInitializing SystemState = "INITIALIZING"
	StateReady        SystemState = "READY"
	StateActive       SystemState = "ACTIVE"
	StateStalled      SystemState = "STALLED"
	StateError        SystemState = "ERROR"
	StateOccluded     SystemState = "OCCLUDED"
)

// Quaternion is a unit quaternion (w, x, y, z) used for RobotState.EERot.
type Quaternion struct {
	W, X, Y, Z float64
}

// Box2D is an axis-aligned pixel-space bounding box.
type Box2D struct {
	X, Y, W, H float64
}

// Detection is a single raw detection from the (external) detection model.
type Detection struct {
	Label      string
	Confidence float64
	Box        Box2D
	Mask       []byte // optional; nil when the detector does not segment
	Embedding  []float64
	Position3D [3]float64
}

// RobotState is a single ~1kHz proprioceptive sample.
type RobotState struct {
	T         clock.Instant
	JointPos  []float64
	JointVel  []float64
	EEPos     [3]float64
	EERot     Quaternion
	IMUAcc    [3]float64
	HeadYaw   float64
	HeadPitch float64

	// GripperForce is the end-effector force/torque sensor reading, in
	// newtons. Tactile verification in pkg/executive reads this.
	GripperForce float64
}

func (r RobotState) Timestamp() clock.Instant { return r.T }

// VisualFrame is a single ~30Hz camera sample after the gating pipeline
// has run.
type VisualFrame struct {
	T          clock.Instant
	Width      int
	Height     int
	Quality    FrameQuality
	BlurScore  float64
	MotionPct  float64
	Detections []Detection
	VLMDesc    string
}

func (v VisualFrame) Timestamp() clock.Instant { return v.T }

// AudioTranscript is emitted by the ASR worker at end-of-utterance.
type AudioTranscript struct {
	TEnd      clock.Instant
	Text      string
	SpeakerID string
	Confidence float64
	Processed bool
}

func (a AudioTranscript) Timestamp() clock.Instant { return a.TEnd }

// SystemStatus snapshots the three driver subsystems plus vitals.
type SystemStatus struct {
	VisionState SystemState
	ArmState    SystemState
	AudioState  SystemState
	BatteryV    float64
	CPUTempC    float64
}

// FusedContext is the time-sliced view PerceptionSystem assembles for one
// tick.
type FusedContext struct {
	TQuery           clock.Instant
	Robot            RobotState
	HasRobot         bool
	Vision           VisualFrame
	HasVision        bool
	LatestTranscript AudioTranscript
	HasTranscript    bool
	Status           SystemStatus
	AttentionHint    string
}
