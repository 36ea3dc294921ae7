package voice

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dariusai/darius/internal/bus"
	"go.uber.org/zap"
)

// State represents a transcription channel state.
type State string

const (
	Idle      State = "IDLE"
	Listening State = "LISTENING"
	Final     State = "FINAL"
	Errored   State = "ERROR"
)

// validTransitions defines allowed channel state transitions. Final and
// Errored are transient: the channel returns to Idle as soon as the result
// or fault has been surfaced.
var validTransitions = map[State][]State{
	Idle:      {Listening},
	Listening: {Final, Errored, Idle},
	Final:     {Idle},
	Errored:   {Idle},
}

// Channel wraps a Recognizer as a single cancellable operation. Interim
// results overwrite each other and never leave the channel; only the final
// result propagates, at most once per listening session. Faults surface
// exactly once and are not retried.
type Channel struct {
	mu      sync.Mutex
	state   State
	interim string
	gen     int

	rec     Recognizer
	bus     *bus.Bus
	logger  *zap.Logger
	onFinal func(text string)
	onError func(code string)
}

// NewChannel creates an idle transcription channel over rec.
func NewChannel(rec Recognizer, b *bus.Bus, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		state:  Idle,
		rec:    rec,
		bus:    b,
		logger: logger,
	}
}

// State returns the current channel state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Interim returns the latest non-final transcript, empty when none.
func (c *Channel) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

// Start begins a listening session. onFinal receives the final transcript;
// onError receives a single fault code. Starting while already listening is
// a no-op.
func (c *Channel) Start(onFinal func(text string), onError func(code string)) error {
	c.mu.Lock()
	if c.state == Listening {
		c.mu.Unlock()
		return nil
	}
	if err := c.transitionLocked(Listening); err != nil {
		c.mu.Unlock()
		return err
	}
	c.interim = ""
	c.gen++
	gen := c.gen
	c.onFinal = onFinal
	c.onError = onError
	c.mu.Unlock()

	c.emit(bus.KindVoiceListening, nil)

	err := c.rec.Start(Events{
		OnStart:  func() {},
		OnResult: func(text string, final bool) { c.handleResult(gen, text, final) },
		OnError:  func(code string) { c.handleError(gen, code) },
		OnEnd:    func() { c.handleEnd(gen) },
	})
	if err != nil {
		c.mu.Lock()
		_ = c.transitionLocked(Errored)
		_ = c.transitionLocked(Idle)
		c.mu.Unlock()
		return fmt.Errorf("start recognition: %w", err)
	}
	return nil
}

// Stop cancels the current listening session, discarding any interim state.
// No result is produced. Idempotent.
func (c *Channel) Stop() {
	c.mu.Lock()
	if c.state != Listening {
		c.mu.Unlock()
		return
	}
	c.gen++ // invalidate in-flight recognizer callbacks
	c.interim = ""
	c.onFinal = nil
	c.onError = nil
	_ = c.transitionLocked(Idle)
	c.mu.Unlock()

	c.rec.Stop()
	c.emit(bus.KindVoiceStopped, nil)
}

func (c *Channel) handleResult(gen int, text string, final bool) {
	c.mu.Lock()
	if gen != c.gen || c.state != Listening {
		c.mu.Unlock()
		return
	}
	if !final {
		c.interim = text
		c.mu.Unlock()
		c.emit(bus.KindVoiceInterim, text)
		return
	}
	cb := c.onFinal
	c.onFinal = nil
	c.onError = nil
	c.interim = ""
	_ = c.transitionLocked(Final)
	_ = c.transitionLocked(Idle)
	c.mu.Unlock()

	c.emit(bus.KindVoiceFinal, text)
	if cb != nil {
		cb(text)
	}
}

func (c *Channel) handleError(gen int, code string) {
	c.mu.Lock()
	if gen != c.gen || c.state != Listening {
		c.mu.Unlock()
		return
	}
	cb := c.onError
	c.onFinal = nil
	c.onError = nil
	c.interim = ""
	_ = c.transitionLocked(Errored)
	_ = c.transitionLocked(Idle)
	c.mu.Unlock()

	c.logger.Warn("recognition failed", zap.String("code", code))
	c.emit(bus.KindVoiceError, code)
	if cb != nil {
		cb(code)
	}
}

// handleEnd covers the recognizer ending without a final result or error
// (e.g. silence timeout). The session simply returns to idle.
func (c *Channel) handleEnd(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.state != Listening {
		c.mu.Unlock()
		return
	}
	c.onFinal = nil
	c.onError = nil
	c.interim = ""
	_ = c.transitionLocked(Idle)
	c.mu.Unlock()

	c.emit(bus.KindVoiceStopped, nil)
}

func (c *Channel) transitionLocked(to State) error {
	allowed := validTransitions[c.state]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", c.state, to)
	}
	c.state = to
	return nil
}

func (c *Channel) emit(kind string, payload any) {
	if c.bus != nil {
		c.bus.Emit(kind, payload)
	}
}
