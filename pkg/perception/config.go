package perception

import "log/slog"

// Config holds every tunable named in the perception pipeline. None of
// these are read from the environment; callers set them via Option at
// construction.
type Config struct {
	BodyCapacity       int
	VisionCapacity     int
	AudioCapacity      int
	TranscriptCapacity int

	BlurThreshold         float64
	DarkThreshold         float64
	MotionThresholdPct    float64
	ForceProcessInterval  int
	GatingDownscaleWidth  int

	EnergyThreshold       float64
	ZCRThreshold          int
	MaxSilenceChunks      int
	MaxUtteranceSamples   int
	AudioSampleRate       int

	Logger *slog.Logger
}

// Option mutates a Config at construction time.
type Option func(*Config)

// DefaultConfig returns the defaults named in the spec.
func DefaultConfig() *Config {
	return &Config{
		BodyCapacity:         2000,
		VisionCapacity:       100,
		AudioCapacity:        500,
		TranscriptCapacity:   50,
		BlurThreshold:        100.0,
		DarkThreshold:        20.0,
		MotionThresholdPct:   5.0,
		ForceProcessInterval: 30,
		GatingDownscaleWidth: 320,
		EnergyThreshold:      500.0,
		ZCRThreshold:         1500,
		MaxSilenceChunks:     10,
		MaxUtteranceSamples:  16000 * 15,
		AudioSampleRate:      16000,
		Logger:               slog.Default(),
	}
}

// Apply folds a list of options onto the receiver.
func (c *Config) Apply(opts ...Option) *Config {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithBlurThreshold(v float64) Option  { return func(c *Config) { c.BlurThreshold = v } }
func WithDarkThreshold(v float64) Option  { return func(c *Config) { c.DarkThreshold = v } }
func WithMotionThreshold(v float64) Option { return func(c *Config) { c.MotionThresholdPct = v } }
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
