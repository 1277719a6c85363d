package perception

import (
	"testing"

	"gocv.io/x/gocv"
)

// TestBlurThresholdBoundaryIsExclusive exercises the exact-equality case
// named for the L0 blur gate: a score equal to the threshold is NOT
// classified blurry, since runGating compares with strict "<".
func TestBlurThresholdBoundaryIsExclusive(t *testing.T) {
	cases := []struct {
		name      string
		score     float64
		threshold float64
		wantBlurry bool
	}{
		{"below threshold is blurry", 99.9, 100.0, true},
		{"exactly at threshold is not blurry", 100.0, 100.0, false},
		{"above threshold is not blurry", 100.1, 100.0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBlurry(tc.score, tc.threshold); got != tc.wantBlurry {
				t.Fatalf("isBlurry(%v, %v) = %v, want %v", tc.score, tc.threshold, got, tc.wantBlurry)
			}
		})
	}
}

func TestDarkThresholdBoundaryIsExclusive(t *testing.T) {
	cases := []struct {
		name      string
		mean      float64
		threshold float64
		wantDark  bool
	}{
		{"below threshold is dark", 19.9, 20.0, true},
		{"exactly at threshold is not dark", 20.0, 20.0, false},
		{"above threshold is not dark", 20.1, 20.0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDark(tc.mean, tc.threshold); got != tc.wantDark {
				t.Fatalf("isDark(%v, %v) = %v, want %v", tc.mean, tc.threshold, got, tc.wantDark)
			}
		})
	}
}

func solidFrame(t *testing.T, v float64) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(v, v, v, 0))
	return img
}

func noisyFrame(t *testing.T, mean, stddev float64) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC3)
	gocv.RandN(&img, gocv.NewScalar(mean, mean, mean, 0), gocv.NewScalar(stddev, stddev, stddev, 0))
	return img
}

func TestRunGatingFlagsSolidFrameAsBlurry(t *testing.T) {
	cfg := DefaultConfig()
	g := newGatingState()
	defer g.close()

	img := solidFrame(t, 120)
	defer img.Close()

	frame, err := g.runGating(cfg, stubDetectorForTest{}, img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Quality != QualityBlurry {
		t.Fatalf("expected BLURRY for a flat frame, got %s (blur_score=%v)", frame.Quality, frame.BlurScore)
	}
}

func TestRunGatingFlagsNoisyDarkFrameAsDark(t *testing.T) {
	cfg := DefaultConfig()
	g := newGatingState()
	defer g.close()

	img := noisyFrame(t, 10, 8)
	defer img.Close()

	frame, err := g.runGating(cfg, stubDetectorForTest{}, img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Quality != QualityDark {
		t.Fatalf("expected DARK for a low-mean noisy frame, got %s (blur_score=%v)", frame.Quality, frame.BlurScore)
	}
}

func TestRunGatingPassesBrightNoisyFrameToDetection(t *testing.T) {
	cfg := DefaultConfig()
	g := newGatingState()
	defer g.close()

	img := noisyFrame(t, 140, 50)
	defer img.Close()

	frame, err := g.runGating(cfg, stubDetectorForTest{}, img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Quality != QualityValid {
		t.Fatalf("expected VALID for a bright, textured first frame, got %s (blur_score=%v, mean unknown)", frame.Quality, frame.BlurScore)
	}
}

func TestRunGatingStaticSkipsUnchangedFrame(t *testing.T) {
	cfg := DefaultConfig()
	g := newGatingState()
	defer g.close()

	img := noisyFrame(t, 140, 50)
	defer img.Close()

	first, err := g.runGating(cfg, stubDetectorForTest{}, img)
	if err != nil {
		t.Fatalf("unexpected error on first frame: %v", err)
	}
	if first.Quality != QualityValid {
		t.Fatalf("expected first frame VALID, got %s", first.Quality)
	}

	second, err := g.runGating(cfg, stubDetectorForTest{}, img)
	if err != nil {
		t.Fatalf("unexpected error on second frame: %v", err)
	}
	if second.Quality != QualityStatic {
		t.Fatalf("expected unchanged frame to be STATIC, got %s (motion_pct=%v)", second.Quality, second.MotionPct)
	}
}
