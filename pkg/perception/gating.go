package perception

import (
	"image"

	"gocv.io/x/gocv"
)

// isBlurry reports whether a frame's Laplacian-variance score falls below
// threshold. Exactly-equal-to-threshold is not blurry: pulled out of
// runGating so the boundary is a plain, gocv-free comparison to test.
func isBlurry(blurScore, threshold float64) bool {
	return blurScore < threshold
}

// isDark reports whether a frame's mean intensity falls below threshold.
func isDark(meanIntensity, threshold float64) bool {
	return meanIntensity < threshold
}

// Detector is the abstract detection-model external collaborator. L2 of
// the gating pipeline invokes it only after L0/L1 have decided the frame
// is worth the cost.
type Detector interface {
	Detect(gray gocv.Mat) ([]Detection, error)
}

// gatingState is the mutable state the gating pipeline carries between
// frames: the last processed grayscale frame for motion diffing, and the
// consecutive-skip counter that forces a re-process once more than
// ForceProcessInterval frames in a row were skipped as STATIC.
type gatingState struct {
	lastProcessedGray gocv.Mat
	haveLast          bool
	skippedCount      int
}

func newGatingState() *gatingState {
	return &gatingState{lastProcessedGray: gocv.NewMat()}
}

func (g *gatingState) close() {
	if g.haveLast {
		g.lastProcessedGray.Close()
	}
}

// runGating executes L0 (blur + dark), L1 (motion), and, only if both
// pass, L2 (detection) against a single camera frame. img is consumed
// (converted to grayscale and downscaled internally) but not closed; the
// caller owns its lifetime.
func (s *gatingState) runGating(cfg *Config, detector Detector, img gocv.Mat) (VisualFrame, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	small := gocv.NewMat()
	defer small.Close()
	scale := float64(cfg.GatingDownscaleWidth) / float64(gray.Cols())
	if scale > 0 && scale < 1 {
		h := int(float64(gray.Rows()) * scale)
		gocv.Resize(gray, &small, image.Pt(cfg.GatingDownscaleWidth, h), 0, 0, gocv.InterpolationLinear)
	} else {
		gray.CopyTo(&small)
	}

	frame := VisualFrame{
		Width:  img.Cols(),
		Height: img.Rows(),
	}

	// L0a: blur via variance of Laplacian.
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(small, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	mean, stddev := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)
	sd := stddev.GetDoubleAt(0, 0)
	frame.BlurScore = sd * sd

	if isBlurry(frame.BlurScore, cfg.BlurThreshold) {
		frame.Quality = QualityBlurry
		return frame, nil
	}

	// L0b: darkness via mean intensity.
	m := small.Mean()
	if isDark(m.Val1, cfg.DarkThreshold) {
		frame.Quality = QualityDark
		return frame, nil
	}

	// L1: motion via frame differencing against the last processed frame.
	if s.haveLast {
		diff := gocv.NewMat()
		gocv.AbsDiff(small, s.lastProcessedGray, &diff)
		thresh := gocv.NewMat()
		gocv.Threshold(diff, &thresh, 30, 255, gocv.ThresholdBinary)
		nonZero := gocv.CountNonZero(thresh)
		diff.Close()
		thresh.Close()

		total := small.Rows() * small.Cols()
		pct := 0.0
		if total > 0 {
			pct = 100.0 * float64(nonZero) / float64(total)
		}
		frame.MotionPct = pct

		if pct < cfg.MotionThresholdPct && s.skippedCount <= cfg.ForceProcessInterval {
			frame.Quality = QualityStatic
			s.skippedCount++
			return frame, nil
		}
	}

	// L2: detection model, only reached once L0/L1 both pass.
	dets, err := detector.Detect(small)
	if err != nil {
		return frame, err
	}
	frame.Detections = dets
	frame.Quality = QualityValid

	if s.haveLast {
		s.lastProcessedGray.Close()
	}
	s.lastProcessedGray = small.Clone()
	s.haveLast = true
	s.skippedCount = 0

	return frame, nil
}
