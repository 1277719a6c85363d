package perception

import (
	"math"
	"time"

	"github.com/basalt-robotics/cortex/internal/clock"
)

// transcriptBeforeWindow and transcriptAfterWindow bound how stale (or
// how far in the future) a transcript may be and still be delivered by
// GetContext, per the design's [-0.5s, +2s] window.
const (
	transcriptBeforeWindow = -500 * time.Millisecond
	transcriptAfterWindow  = 2 * time.Second

	// maxExtrapolation bounds how far past the last known robot state
	// GetContext will extrapolate; a query further out is extrapolated by
	// exactly this much and no further.
	maxExtrapolation = 50 * time.Millisecond
)

// GetContext assembles a FusedContext for tQuery: the robot pose
// interpolated/extrapolated from the body track, the most recent vision
// frame at or before tQuery, and the latest unprocessed transcript if it
// falls in the delivery window.
func (s *System) GetContext(tQuery clock.Instant) FusedContext {
	ctx := FusedContext{
		TQuery: tQuery,
		Status: s.Status(),
	}

	if robot, ok := s.interpolateRobot(tQuery); ok {
		ctx.Robot = robot
		ctx.HasRobot = true
	}

	if before, hasBefore, _, _ := s.vision.GetBracket(tQuery); hasBefore && before.T <= tQuery {
		ctx.Vision = before
		ctx.HasVision = true
	} else if latest, ok := s.vision.GetLatest(); ok && latest.T <= tQuery {
		ctx.Vision = latest
		ctx.HasVision = true
	}

	if latest, ok := s.transcript.GetLatest(); ok && !latest.Processed && !s.isDelivered(latest.TEnd) {
		age := tQuery.Sub(latest.TEnd)
		if age >= transcriptBeforeWindow && age <= transcriptAfterWindow {
			ctx.LatestTranscript = latest
			ctx.HasTranscript = true
		}
	}

	return ctx
}

func (s *System) interpolateRobot(tQuery clock.Instant) (RobotState, bool) {
	before, hasBefore, after, hasAfter := s.body.GetBracket(tQuery)
	if !hasBefore {
		return RobotState{}, false
	}
	if !hasAfter {
		// Past the last sample: extrapolate forward by at most one step
		// using the last known velocity; beyond maxExtrapolation, hold.
		dt := tQuery.Sub(before.T)
		if dt <= 0 {
			return before, true
		}
		if dt > maxExtrapolation {
			dt = maxExtrapolation
		}
		return extrapolate(before, dt), true
	}
	if before.T == after.T {
		return before, true
	}

	total := after.T.Sub(before.T)
	if total <= 0 {
		return before, true
	}
	frac := float64(tQuery.Sub(before.T)) / float64(total)
	return lerpRobotState(before, after, frac), true
}

// extrapolate advances joint positions by their last known velocity.
// There is no Jacobian here (out of scope), so ee_pos/ee_rot are held
// rather than guessed at from joint velocities alone.
func extrapolate(s RobotState, dt time.Duration) RobotState {
	secs := dt.Seconds()
	out := s
	out.JointPos = make([]float64, len(s.JointPos))
	for i, p := range s.JointPos {
		v := 0.0
		if i < len(s.JointVel) {
			v = s.JointVel[i]
		}
		out.JointPos[i] = p + v*secs
	}
	out.GripperForce = s.GripperForce
	return out
}

func lerpRobotState(a, b RobotState, frac float64) RobotState {
	out := RobotState{
		T:         a.T + clock.Instant(float64(b.T-a.T)*frac),
		HeadYaw:   lerp(a.HeadYaw, b.HeadYaw, frac),
		HeadPitch: lerp(a.HeadPitch, b.HeadPitch, frac),
	}
	for i := 0; i < 3; i++ {
		out.EEPos[i] = lerp(a.EEPos[i], b.EEPos[i], frac)
		out.IMUAcc[i] = lerp(a.IMUAcc[i], b.IMUAcc[i], frac)
	}
	out.EERot = slerp(a.EERot, b.EERot, frac)
	out.GripperForce = lerp(a.GripperForce, b.GripperForce, frac)

	n := len(a.JointPos)
	if len(b.JointPos) < n {
		n = len(b.JointPos)
	}
	out.JointPos = make([]float64, n)
	for i := 0; i < n; i++ {
		out.JointPos[i] = lerp(a.JointPos[i], b.JointPos[i], frac)
	}
	n = len(a.JointVel)
	if len(b.JointVel) < n {
		n = len(b.JointVel)
	}
	out.JointVel = make([]float64, n)
	for i := 0; i < n; i++ {
		out.JointVel[i] = lerp(a.JointVel[i], b.JointVel[i], frac)
	}
	return out
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// slerp performs spherical linear interpolation between two unit
// quaternions, falling back to normalized linear interpolation when they
// are nearly parallel (avoids the division-by-near-zero singularity at
// the poles that a naive acos/sin implementation hits).
func slerp(a, b Quaternion, frac float64) Quaternion {
	dot := a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z

	if dot < 0 {
		b = Quaternion{-b.W, -b.X, -b.Y, -b.Z}
		dot = -dot
	}

	const dotThreshold = 0.9995
	if dot > dotThreshold {
		out := Quaternion{
			W: lerp(a.W, b.W, frac),
			X: lerp(a.X, b.X, frac),
			Y: lerp(a.Y, b.Y, frac),
			Z: lerp(a.Z, b.Z, frac),
		}
		return normalizeQuat(out)
	}

	theta0 := math.Acos(dot)
	theta := theta0 * frac
	sinTheta0 := math.Sin(theta0)
	sinTheta := math.Sin(theta)

	s0 := math.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quaternion{
		W: s0*a.W + s1*b.W,
		X: s0*a.X + s1*b.X,
		Y: s0*a.Y + s1*b.Y,
		Z: s0*a.Z + s1*b.Z,
	}
}

func normalizeQuat(q Quaternion) Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}
