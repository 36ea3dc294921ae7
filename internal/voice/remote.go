package voice

import (
	"context"
	"strings"
	"sync"

	"github.com/dariusai/darius/internal/api"
	"go.uber.org/zap"
)

// transcribeAPI is the slice of the backend client the recognizer needs.
type transcribeAPI interface {
	SpeechToText(ctx context.Context, audio []byte) (*api.Transcript, error)
}

// RemoteRecognizer is a single-shot Recognizer: it records one utterance
// from an AudioSource and transcribes it through the backend voice endpoint.
// It emits no interim results.
type RemoteRecognizer struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    int

	api    transcribeAPI
	source AudioSource
	logger *zap.Logger
}

// NewRemoteRecognizer creates a recognizer over source backed by the
// assistant API.
func NewRemoteRecognizer(a transcribeAPI, source AudioSource, logger *zap.Logger) *RemoteRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteRecognizer{api: a, source: source, logger: logger}
}

// Start records and transcribes one utterance, reporting through events.
// Starting while a capture is running is a no-op.
func (r *RemoteRecognizer) Start(events Events) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	go r.run(ctx, gen, events)
	return nil
}

// Stop aborts the capture in progress. Idempotent.
func (r *RemoteRecognizer) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
}

func (r *RemoteRecognizer) run(ctx context.Context, gen int, events Events) {
	defer func() {
		r.mu.Lock()
		// A Stop followed by a new Start supersedes this run; only the
		// current generation may clear its cancel func.
		if r.gen == gen {
			r.cancel = nil
		}
		r.mu.Unlock()
		fire(events.OnEnd)
	}()

	fire(events.OnStart)

	audio, err := r.source.Record(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.logger.Warn("audio capture failed", zap.Error(err))
		fireCode(events.OnError, ErrAudioCapture)
		return
	}

	transcript, err := r.api.SpeechToText(ctx, audio)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.logger.Warn("transcription failed", zap.Error(err))
		fireCode(events.OnError, ErrNetwork)
		return
	}
	if !transcript.Success || strings.TrimSpace(transcript.Text) == "" {
		fireCode(events.OnError, ErrNoSpeech)
		return
	}

	if events.OnResult != nil {
		events.OnResult(transcript.Text, true)
	}
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}

func fireCode(fn func(string), code string) {
	if fn != nil {
		fn(code)
	}
}
