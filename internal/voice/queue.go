package voice

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// OutputQueue serializes speech playback so at most one utterance plays at
// a time. The policy is last-write-wins: a new Speak cancels the in-flight
// utterance immediately instead of queueing a backlog, because replaying a
// stale utterance after a newer one has started would be wrong.
type OutputQueue struct {
	mu     sync.Mutex
	synth  Synthesizer
	cancel context.CancelFunc
	gen    int
	logger *zap.Logger
}

// NewOutputQueue creates an idle output queue over synth.
func NewOutputQueue(synth Synthesizer, logger *zap.Logger) *OutputQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutputQueue{synth: synth, logger: logger}
}

// Speak starts playback of text, canceling any utterance already playing.
// onDone, if non-nil, observes this call's outcome; a canceled utterance
// observes nothing. Playback failure is reported, never fatal.
func (q *OutputQueue) Speak(text string, onDone func(err error)) {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.gen++
	gen := q.gen
	q.mu.Unlock()

	go func() {
		err := q.synth.Speak(ctx, text)

		q.mu.Lock()
		superseded := gen != q.gen
		if !superseded {
			q.cancel = nil
		}
		q.mu.Unlock()
		cancel()

		// A replaced or stopped utterance gets no completion signal.
		if superseded || errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			q.logger.Warn("speech playback failed", zap.Error(err))
		}
		if onDone != nil {
			onDone(err)
		}
	}()
}

// Stop cancels any in-flight utterance. Idempotent.
func (q *OutputQueue) Stop() {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.gen++
	q.mu.Unlock()
}

// Speaking reports whether an utterance is currently playing.
func (q *OutputQueue) Speaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel != nil
}
