package voice

import "context"

// Recognizer is a live speech-to-text capture source. Implementations emit
// callbacks in this order: OnStart, zero or more OnResult(text, false)
// interim results, then at most one of OnResult(text, true) or
// OnError(code), then OnEnd. Start while capturing is a no-op.
type Recognizer interface {
	Start(events Events) error
	Stop()
}

// Events receives recognizer callbacks. Nil callbacks are skipped.
type Events struct {
	OnStart  func()
	OnResult func(text string, final bool)
	OnError  func(code string)
	OnEnd    func()
}

// Recognizer error codes.
const (
	ErrNoSpeech     = "no-speech"
	ErrNotAllowed   = "not-allowed"
	ErrAudioCapture = "audio-capture"
	ErrNetwork      = "network"
	ErrAborted      = "aborted"
)

// AudioSource records a single utterance from an input device. Record blocks
// until the utterance ends or ctx is canceled.
type AudioSource interface {
	Record(ctx context.Context) ([]byte, error)
}
