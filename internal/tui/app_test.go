package tui

import (
	"testing"

	"github.com/dariusai/darius/internal/upload"
)

func TestProgressLine(t *testing.T) {
	got := progressLine(upload.Progress{
		File:    "notes.pdf",
		Stage:   upload.Transferring,
		Percent: 40,
	})
	want := "notes.pdf: TRANSFERRING 40%"
	if got != want {
		t.Errorf("progressLine() = %q, want %q", got, want)
	}
}
