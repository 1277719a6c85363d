package perception

import "math"

// vadState is the voice-activity-detection state machine described in the
// audio section: accumulate speech, flush to the ASR worker on a trailing
// silence gap or on exceeding the max utterance length.
type vadState int

const (
	vadSilence vadState = iota
	vadSpeechActive
)

// vad tracks the per-stream VAD state. It is not safe for concurrent use;
// callers serialize audio chunks through a single goroutine (the mic
// driver callback feeding PerceptionSystem.OnAudioMic).
type vad struct {
	cfg            *Config
	state          vadState
	buf            []int16
	silenceCounter int
}

func newVAD(cfg *Config) *vad {
	return &vad{cfg: cfg, state: vadSilence}
}

// rmsAndZCR computes RMS energy and the zero-crossing count of a PCM16
// chunk, the two features the VAD thresholds against.
func rmsAndZCR(pcm []int16) (rms float64, zcr int) {
	if len(pcm) == 0 {
		return 0, 0
	}
	var sumSq float64
	for i, s := range pcm {
		sumSq += float64(s) * float64(s)
		if i > 0 {
			prev, cur := pcm[i-1], pcm[i]
			if (prev >= 0 && cur < 0) || (prev < 0 && cur >= 0) {
				zcr++
			}
		}
	}
	rms = math.Sqrt(sumSq / float64(len(pcm)))
	return rms, zcr
}

// feed processes one PCM16 chunk. It returns a flushed utterance buffer
// (and true) when the VAD transitions out of speech, either via trailing
// silence or by hitting MaxUtteranceSamples.
func (v *vad) feed(pcm []int16) ([]int16, bool) {
	rms, zcr := rmsAndZCR(pcm)
	isSpeech := rms > v.cfg.EnergyThreshold && zcr < v.cfg.ZCRThreshold

	switch v.state {
	case vadSilence:
		if isSpeech {
			v.state = vadSpeechActive
			v.buf = append(v.buf[:0], pcm...)
			v.silenceCounter = 0
		}
		return nil, false

	case vadSpeechActive:
		v.buf = append(v.buf, pcm...)
		if isSpeech {
			v.silenceCounter = 0
		} else {
			v.silenceCounter++
		}

		if v.silenceCounter > v.cfg.MaxSilenceChunks || len(v.buf) >= v.cfg.MaxUtteranceSamples {
			out := v.buf
			v.buf = nil
			v.state = vadSilence
			v.silenceCounter = 0
			return out, true
		}
		return nil, false
	}
	return nil, false
}
