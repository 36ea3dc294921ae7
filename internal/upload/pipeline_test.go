package upload

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/dariusai/darius/internal/api"
	"github.com/dariusai/darius/internal/bus"
)

// fakeUploader counts transfers and fails for configured filenames.
type fakeUploader struct {
	transfers []string
	failFor   map[string]error
}

func (f *fakeUploader) UploadFile(_ context.Context, filename string, r io.Reader, onProgress func(int)) (*api.UploadResult, error) {
	f.transfers = append(f.transfers, filename)
	if err, ok := f.failFor[filename]; ok {
		return nil, err
	}
	data, _ := io.ReadAll(r)
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return &api.UploadResult{
		Filename:  filename,
		FileSize:  int64(len(data)),
		Processed: true,
		Summary:   "summary of " + filename,
	}, nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"report.pdf", 1024, false},
		{"notes.txt", 10, false},
		{"readme.MD", 10, false},
		{"paper.docx", MaxFileSize, false},
		{"image.png", 10, true},
		{"binary.exe", 10, true},
		{"big.pdf", MaxFileSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.name, tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q, %d) error = %v, wantErr %v", tt.name, tt.size, err, tt.wantErr)
			}
			if err != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("error type = %T, want ValidationError", err)
				}
			}
		})
	}
}

func TestValidationFailureSkipsTransfer(t *testing.T) {
	uploader := &fakeUploader{}
	p := NewPipeline(uploader, nil, nil)

	var outcomes []Outcome
	p.Run(context.Background(), []File{
		{Name: "virus.exe", Size: 10, Reader: strings.NewReader("x")},
	}, func(o Outcome) { outcomes = append(outcomes, o) })

	if len(uploader.transfers) != 0 {
		t.Errorf("transfers = %v, validation failure must not reach the network", uploader.transfers)
	}
	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatalf("outcomes = %+v, want one failure", outcomes)
	}
	var vErr *ValidationError
	if !errors.As(outcomes[0].Err, &vErr) {
		t.Errorf("outcome error = %T, want ValidationError", outcomes[0].Err)
	}
}

func TestOversizedFileRejected(t *testing.T) {
	uploader := &fakeUploader{}
	p := NewPipeline(uploader, nil, nil)

	var got Outcome
	p.Run(context.Background(), []File{
		{Name: "huge.pdf", Size: MaxFileSize + 1, Reader: strings.NewReader("x")},
	}, func(o Outcome) { got = o })

	if got.Err == nil {
		t.Fatal("oversized file should fail validation")
	}
	if len(uploader.transfers) != 0 {
		t.Error("oversized file reached transfer")
	}
}

func TestBatchIsSequentialAndIsolatesFailures(t *testing.T) {
	uploader := &fakeUploader{
		failFor: map[string]error{"two.txt": errors.New("backend rejected")},
	}
	p := NewPipeline(uploader, nil, nil)

	files := []File{
		{Name: "one.txt", Size: 3, Reader: strings.NewReader("one")},
		{Name: "two.txt", Size: 3, Reader: strings.NewReader("two")},
		{Name: "three.txt", Size: 5, Reader: strings.NewReader("three")},
	}

	var outcomes []Outcome
	p.Run(context.Background(), files, func(o Outcome) { outcomes = append(outcomes, o) })

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	wantOrder := []string{"one.txt", "two.txt", "three.txt"}
	for i, o := range outcomes {
		if o.File != wantOrder[i] {
			t.Errorf("outcome[%d].File = %q, want %q (completion order must match submission)", i, o.File, wantOrder[i])
		}
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("files 1 and 3 should succeed: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("file 2 should fail")
	}
	if outcomes[0].Result == nil || outcomes[0].Result.Summary == "" {
		t.Error("successful outcome missing result")
	}
}

func TestProgressEventsMonotonic(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("upload.progress", 64)
	defer unsub()

	p := NewPipeline(&fakeUploader{}, b, nil)
	p.Run(context.Background(), []File{
		{Name: "doc.md", Size: 4, Reader: strings.NewReader("text")},
	}, nil)

	var stages []Stage
	lastPct := -1
	for {
		select {
		case evt := <-ch:
			prog := evt.Payload.(Progress)
			stages = append(stages, prog.Stage)
			if prog.Stage == Transferring {
				if prog.Percent < lastPct {
					t.Errorf("transfer progress went backwards: %d after %d", prog.Percent, lastPct)
				}
				lastPct = prog.Percent
			}
			if prog.Stage == Done {
				if stages[0] != Validating {
					t.Errorf("first stage = %s, want VALIDATING", stages[0])
				}
				return
			}
		default:
			t.Fatalf("ran out of events before DONE, saw %v", stages)
		}
	}
}

func TestStageTransitions(t *testing.T) {
	legal := []struct{ from, to Stage }{
		{Validating, Transferring},
		{Transferring, Processing},
		{Processing, Done},
		{Validating, Failed},
		{Transferring, Failed},
		{Processing, Failed},
	}
	for _, tt := range legal {
		if !slices.Contains(validTransitions[tt.from], tt.to) {
			t.Errorf("transition %s -> %s should be allowed", tt.from, tt.to)
		}
	}

	illegal := []struct{ from, to Stage }{
		{Validating, Done},
		{Transferring, Done},
		{Done, Transferring},
		{Failed, Done},
	}
	for _, tt := range illegal {
		if slices.Contains(validTransitions[tt.from], tt.to) {
			t.Errorf("transition %s -> %s should be rejected", tt.from, tt.to)
		}
	}
}
