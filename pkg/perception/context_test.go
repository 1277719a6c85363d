package perception

import (
	"math"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/basalt-robotics/cortex/internal/clock"
)

func TestLerpRobotStateInterpolatesPositionsLinearly(t *testing.T) {
	a := RobotState{T: 0, EEPos: [3]float64{0, 0, 0}, JointPos: []float64{0}, JointVel: []float64{0}}
	b := RobotState{T: clock.Instant(1_000_000), EEPos: [3]float64{10, 0, 0}, JointPos: []float64{10}, JointVel: []float64{0}}

	mid := lerpRobotState(a, b, 0.5)
	if mid.EEPos[0] != 5 {
		t.Fatalf("expected midpoint ee_pos.x=5, got %v", mid.EEPos[0])
	}
	if mid.JointPos[0] != 5 {
		t.Fatalf("expected midpoint joint_pos=5, got %v", mid.JointPos[0])
	}
}

func TestSlerpIdenticalQuaternionsReturnsSame(t *testing.T) {
	q := Quaternion{W: 1, X: 0, Y: 0, Z: 0}
	got := slerp(q, q, 0.5)
	if math.Abs(got.W-1) > 1e-9 {
		t.Fatalf("expected identity quaternion preserved, got %+v", got)
	}
}

func TestSlerpNearParallelFallsBackToLerp(t *testing.T) {
	a := Quaternion{W: 1, X: 0, Y: 0, Z: 0}
	b := Quaternion{W: 0.99999, X: 0.001, Y: 0, Z: 0}
	got := slerp(a, b, 0.5)
	n := math.Sqrt(got.W*got.W + got.X*got.X + got.Y*got.Y + got.Z*got.Z)
	if math.Abs(n-1) > 1e-6 {
		t.Fatalf("expected result to remain a unit quaternion, got norm=%v", n)
	}
}

func TestSlerpFlipsSignForShortestPath(t *testing.T) {
	a := Quaternion{W: 1, X: 0, Y: 0, Z: 0}
	b := Quaternion{W: -1, X: 0, Y: 0, Z: 0} // same rotation, opposite hemisphere
	got := slerp(a, b, 0.0)
	if got.W < 0 {
		t.Fatalf("expected sign-flip to keep interpolation on a's hemisphere, got %+v", got)
	}
}

func TestInterpolateRobotExtrapolatesPastLastSample(t *testing.T) {
	s := New(DefaultConfig(), stubDetectorForTest{}, stubASRForTest{})
	s.body.Push(RobotState{T: 0, JointPos: []float64{0}, JointVel: []float64{100}})

	robot, ok := s.interpolateRobot(clock.Instant(int64(10 * time.Millisecond / time.Microsecond)))
	if !ok {
		t.Fatalf("expected extrapolation to succeed")
	}
	if robot.JointPos[0] <= 0 {
		t.Fatalf("expected joint position to advance under extrapolation, got %v", robot.JointPos[0])
	}
}

func TestGetContextOmitsStaleTranscript(t *testing.T) {
	s := New(DefaultConfig(), stubDetectorForTest{}, stubASRForTest{})
	tEnd := clock.Instant(1_000_000)
	s.transcript.Push(AudioTranscript{TEnd: tEnd, Text: "hello"})

	fc := s.GetContext(tEnd + clock.Instant(int64(10*time.Second/time.Microsecond)))
	if fc.HasTranscript {
		t.Fatalf("expected transcript older than the delivery window to be omitted")
	}
}

func TestGetContextDeliversFreshTranscriptOnce(t *testing.T) {
	s := New(DefaultConfig(), stubDetectorForTest{}, stubASRForTest{})
	tEnd := clock.Instant(1_000_000)
	tr := AudioTranscript{TEnd: tEnd, Text: "hello"}
	s.transcript.Push(tr)

	fc := s.GetContext(tEnd)
	if !fc.HasTranscript {
		t.Fatalf("expected fresh transcript to be delivered")
	}

	s.MarkTranscriptProcessed(fc.LatestTranscript)
	fc2 := s.GetContext(tEnd)
	if fc2.HasTranscript {
		t.Fatalf("expected transcript marked processed to not be redelivered")
	}
}

type stubDetectorForTest struct{}

func (stubDetectorForTest) Detect(_ gocv.Mat) ([]Detection, error) { return nil, nil }

type stubASRForTest struct{}

func (stubASRForTest) Transcribe(pcm []int16, sampleRate int) (string, float64, error) {
	return "", 0, nil
}
