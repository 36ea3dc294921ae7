package voice

import (
	"context"
	"fmt"

	"github.com/dariusai/darius/internal/api"
	"go.uber.org/zap"
)

// Synthesizer turns text into audible speech. Speak blocks until playback
// finishes or ctx is canceled; cancellation is not an error the caller
// needs to surface.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// AudioSink plays a raw audio payload on an output device.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
}

// speechAPI is the slice of the backend client the synthesizer needs.
type speechAPI interface {
	TextToSpeech(ctx context.Context, req api.SpeechRequest) ([]byte, error)
}

// Prefs carries synthesis preferences applied to every utterance.
type Prefs struct {
	Voice        string
	Speed        int
	OutputFormat string
}

// RemoteSynthesizer synthesizes speech through the backend voice endpoint
// and plays it on an injected sink.
type RemoteSynthesizer struct {
	api    speechAPI
	sink   AudioSink
	prefs  Prefs
	logger *zap.Logger
}

// NewRemoteSynthesizer creates a synthesizer backed by the assistant API.
func NewRemoteSynthesizer(a speechAPI, sink AudioSink, prefs Prefs, logger *zap.Logger) *RemoteSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteSynthesizer{api: a, sink: sink, prefs: prefs, logger: logger}
}

// Speak synthesizes text and plays the resulting audio.
func (s *RemoteSynthesizer) Speak(ctx context.Context, text string) error {
	audio, err := s.api.TextToSpeech(ctx, api.SpeechRequest{
		Text:         text,
		Voice:        s.prefs.Voice,
		Speed:        s.prefs.Speed,
		OutputFormat: s.prefs.OutputFormat,
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sink.Play(ctx, audio); err != nil {
		return fmt.Errorf("play audio: %w", err)
	}
	return nil
}
