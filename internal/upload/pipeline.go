package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dariusai/darius/internal/api"
	"github.com/dariusai/darius/internal/bus"
	"go.uber.org/zap"
)

// MaxFileSize is the largest accepted upload, 50 MiB.
const MaxFileSize = 50 << 20

// allowedExtensions are the document types the backend can analyze.
var allowedExtensions = []string{".pdf", ".txt", ".md", ".docx"}

// Stage represents a per-file pipeline stage.
type Stage string

const (
	Validating   Stage = "VALIDATING"
	Transferring Stage = "TRANSFERRING"
	Processing   Stage = "PROCESSING"
	Done         Stage = "DONE"
	Failed       Stage = "FAILED"
)

// validTransitions defines allowed stage transitions. Any stage may fail.
var validTransitions = map[Stage][]Stage{
	Validating:   {Transferring, Failed},
	Transferring: {Processing, Failed},
	Processing:   {Done, Failed},
}

// ValidationError rejects a file before any transfer is attempted.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// File is one upload candidate.
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Outcome is the terminal result for one file in a batch.
type Outcome struct {
	File   string
	Result *api.UploadResult
	Err    error
}

// Progress is the payload of upload.progress bus events.
type Progress struct {
	File    string
	Stage   Stage
	Percent int
}

// uploadAPI is the slice of the backend client the pipeline needs.
type uploadAPI interface {
	UploadFile(ctx context.Context, filename string, r io.Reader, onProgress func(pct int)) (*api.UploadResult, error)
}

// Pipeline drives files through validation, transfer with progress, and
// server-side analysis. Files in a batch are processed strictly
// sequentially; one failure never aborts the rest.
type Pipeline struct {
	api    uploadAPI
	bus    *bus.Bus
	logger *zap.Logger
}

// NewPipeline creates an upload pipeline over the backend client.
func NewPipeline(a uploadAPI, b *bus.Bus, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{api: a, bus: b, logger: logger}
}

// Run processes the batch in order, invoking onOutcome once per file as it
// completes. It returns when the whole batch has finished.
func (p *Pipeline) Run(ctx context.Context, files []File, onOutcome func(Outcome)) {
	for _, f := range files {
		result, err := p.runOne(ctx, f)
		out := Outcome{File: f.Name, Result: result, Err: err}
		if err != nil {
			p.logger.Warn("upload failed", zap.String("file", f.Name), zap.Error(err))
			p.emit(bus.KindUploadFailed, out)
		} else {
			p.logger.Info("upload processed", zap.String("file", f.Name), zap.Int64("bytes", f.Size))
			p.emit(bus.KindUploadDone, out)
		}
		if onOutcome != nil {
			onOutcome(out)
		}
	}
}

func (p *Pipeline) runOne(ctx context.Context, f File) (*api.UploadResult, error) {
	stage := Validating
	p.emitProgress(f.Name, stage, 0)

	if err := Validate(f.Name, f.Size); err != nil {
		p.fail(&stage, f.Name)
		return nil, err
	}

	if err := p.advance(&stage, Transferring, f.Name); err != nil {
		return nil, err
	}

	last := 0
	result, err := p.api.UploadFile(ctx, filepath.Base(f.Name), f.Reader, func(pct int) {
		if pct < last {
			return
		}
		last = pct
		p.emitProgress(f.Name, Transferring, pct)
	})
	if err != nil {
		p.fail(&stage, f.Name)
		return nil, fmt.Errorf("transfer %s: %w", f.Name, err)
	}

	if err := p.advance(&stage, Processing, f.Name); err != nil {
		return nil, err
	}
	if !result.Processed {
		p.fail(&stage, f.Name)
		return nil, fmt.Errorf("process %s: backend did not analyze the file", f.Name)
	}

	if err := p.advance(&stage, Done, f.Name); err != nil {
		return nil, err
	}
	return result, nil
}

// Validate checks name and size against the accepted document types and the
// size cap. It performs no I/O.
func Validate(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(allowedExtensions, ext) {
		return &ValidationError{
			File:   name,
			Reason: fmt.Sprintf("unsupported type %q, allowed: %s", ext, strings.Join(allowedExtensions, ", ")),
		}
	}
	if size > MaxFileSize {
		return &ValidationError{
			File:   name,
			Reason: fmt.Sprintf("file is %d bytes, limit is %d", size, MaxFileSize),
		}
	}
	return nil
}

func (p *Pipeline) advance(stage *Stage, to Stage, file string) error {
	if !slices.Contains(validTransitions[*stage], to) {
		return fmt.Errorf("invalid transition from %s to %s", *stage, to)
	}
	*stage = to
	pct := 0
	if to == Done {
		pct = 100
	}
	p.emitProgress(file, to, pct)
	return nil
}

func (p *Pipeline) fail(stage *Stage, file string) {
	*stage = Failed
	p.emitProgress(file, Failed, 0)
}

func (p *Pipeline) emitProgress(file string, stage Stage, pct int) {
	p.emit(bus.KindUploadProgress, Progress{File: file, Stage: stage, Percent: pct})
}

func (p *Pipeline) emit(kind string, payload any) {
	if p.bus != nil {
		p.bus.Emit(kind, payload)
	}
}
