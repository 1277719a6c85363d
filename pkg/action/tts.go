package action

import (
	"context"
	"sync"
	"sync/atomic"
)

// TTSProvider is the abstract speech backend contract.
type TTSProvider interface {
	Speak(ctx context.Context, text string) error
}

// TTSEngine is a FIFO speech queue with a single worker goroutine. The
// agent suppresses ASR-triggered commands while IsSpeaking, except for a
// "Stop" barge-in which calls Stop directly.
type TTSEngine struct {
	provider TTSProvider
	speaking atomic.Bool

	mu     sync.Mutex
	queue  []string
	notify chan struct{}
	cancel context.CancelFunc
}

func NewTTSEngine(provider TTSProvider) *TTSEngine {
	return &TTSEngine{provider: provider, notify: make(chan struct{}, 1)}
}

// SpeakAsync enqueues text for the worker to speak.
func (e *TTSEngine) SpeakAsync(text string) {
	e.mu.Lock()
	e.queue = append(e.queue, text)
	e.mu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Run is the worker loop; callers launch it as a goroutine and stop it
// via ctx cancellation.
func (e *TTSEngine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.notify:
		}

		for {
			e.mu.Lock()
			if len(e.queue) == 0 {
				e.mu.Unlock()
				break
			}
			text := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()

			speakCtx, cancel := context.WithCancel(ctx)
			e.mu.Lock()
			e.cancel = cancel
			e.mu.Unlock()

			e.speaking.Store(true)
			_ = e.provider.Speak(speakCtx, text)
			e.speaking.Store(false)
			cancel()
		}
	}
}

// Stop drains the queue and aborts whatever utterance is currently
// playing, implementing barge-in.
func (e *TTSEngine) Stop() {
	e.mu.Lock()
	e.queue = nil
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (e *TTSEngine) IsSpeaking() bool {
	return e.speaking.Load()
}
