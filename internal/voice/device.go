package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// maxRecordSeconds bounds a single capture so an abandoned session cannot
// record indefinitely.
const maxRecordSeconds = 15

// MicSource captures microphone audio by shelling out to arecord. The
// returned bytes are a WAV container suitable for the transcription
// endpoint.
type MicSource struct {
	binary string
}

// NewMicSource locates a capture binary on PATH. It returns an error when
// the host has no supported recorder.
func NewMicSource() (*MicSource, error) {
	path, err := exec.LookPath("arecord")
	if err != nil {
		return nil, fmt.Errorf("no audio capture binary on PATH: %w", err)
	}
	return &MicSource{binary: path}, nil
}

// Record captures one utterance. Canceling ctx stops the capture and
// returns the context error.
func (m *MicSource) Record(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, m.binary,
		"-q",
		"-f", "S16_LE",
		"-r", "16000",
		"-c", "1",
		"-d", fmt.Sprint(maxRecordSeconds),
		"-t", "wav",
		"-",
	)
	var out bytes.Buffer
	cmd.Stdout = &out

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("audio capture: %w", err)
	}
	return out.Bytes(), nil
}

// SpeakerSink plays synthesized audio by piping it into a player binary.
type SpeakerSink struct {
	binary string
	args   []string
}

// NewSpeakerSink locates a playback binary on PATH, preferring mpg123 for
// the default mp3 output format.
func NewSpeakerSink() (*SpeakerSink, error) {
	candidates := []struct {
		name string
		args []string
	}{
		{"mpg123", []string{"-q", "-"}},
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-"}},
		{"aplay", []string{"-q", "-"}},
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c.name); err == nil {
			return &SpeakerSink{binary: path, args: c.args}, nil
		}
	}
	return nil, fmt.Errorf("no audio playback binary on PATH")
}

// Play blocks until playback finishes or ctx is canceled.
func (s *SpeakerSink) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, s.binary, s.args...)
	cmd.Stdin = bytes.NewReader(audio)

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("audio playback: %w", err)
	}
	return nil
}
