package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dariusai/darius/internal/api"
	"github.com/dariusai/darius/internal/bus"
	"github.com/dariusai/darius/internal/chat"
	"github.com/dariusai/darius/internal/search"
	"github.com/dariusai/darius/internal/upload"
	"go.uber.org/zap"
)

// ErrBusy is returned when a send is attempted while another is in flight.
var ErrBusy = errors.New("a message is already in flight")

// fallbackReply is appended when the backend fails, so the user's message
// never sits unanswered in the log.
const fallbackReply = "Sorry, I encountered an error. Please try again."

// Backend is the slice of the API client the orchestrator talks to
// directly; the pipelines hold their own slices.
type Backend interface {
	SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	Calculate(ctx context.Context, expression string) (*api.CalcResult, error)
	Health(ctx context.Context) (*api.HealthStatus, error)
	Voices(ctx context.Context) ([]api.Voice, error)
	Stats(ctx context.Context) (*api.Stats, error)
}

// SpeechQueue plays assistant replies aloud, one utterance at a time.
type SpeechQueue interface {
	Speak(text string, onDone func(err error))
	Stop()
}

// Transcriber is a cancellable voice capture operation.
type Transcriber interface {
	Start(onFinal func(text string), onError func(code string)) error
	Stop()
}

// Uploader drives a file batch to completion.
type Uploader interface {
	Run(ctx context.Context, files []upload.File, onOutcome func(upload.Outcome))
}

// Searcher runs one web search to completion.
type Searcher interface {
	Run(ctx context.Context, query string, numResults int) (*search.ResultSet, error)
}

// Orchestrator is the single entry point for user intents. It owns the busy
// flag that gates new text/voice sends; uploads and searches run outside
// that gate, and every completion appends to the store in completion order.
type Orchestrator struct {
	store    *chat.Store
	backend  Backend
	speech   SpeechQueue
	voice    Transcriber
	uploads  Uploader
	searches Searcher
	bus      *bus.Bus
	logger   *zap.Logger
	busy     atomic.Bool
}

// New wires the orchestrator to its collaborators. speech and voice may be
// nil when the host has no audio devices; the features degrade to no-ops.
func New(store *chat.Store, backend Backend, speech SpeechQueue, v Transcriber, up Uploader, se Searcher, b *bus.Bus, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		backend:  backend,
		speech:   speech,
		voice:    v,
		uploads:  up,
		searches: se,
		bus:      b,
		logger:   logger,
	}
}

// Busy reports whether a send is outstanding.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Send submits one user message and waits for the assistant reply. The user
// message is appended optimistically and never rolled back; a backend
// failure yields exactly one fallback assistant message and one transient
// error notification. At most one send is in flight at a time.
func (o *Orchestrator) Send(ctx context.Context, text string, typ chat.MessageType) error {
	return o.send(ctx, text, typ, nil)
}

func (o *Orchestrator) send(ctx context.Context, text string, typ chat.MessageType, extra map[string]any) error {
	if typ == chat.TypeText && strings.TrimSpace(text) == "" {
		return nil
	}
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	o.emit(bus.KindSessionBusy, true)
	defer func() {
		o.busy.Store(false)
		o.emit(bus.KindSessionBusy, false)
	}()

	o.store.AddMessage(chat.NewMessage(chat.RoleUser, typ, text))

	reqContext := map[string]any{"timestamp": time.Now().Format(time.RFC3339)}
	for k, v := range extra {
		reqContext[k] = v
	}

	resp, err := o.backend.SendMessage(ctx, api.ChatRequest{
		Message:     text,
		MessageType: string(typ),
		SessionID:   o.store.SessionID(),
		Context:     reqContext,
	})
	if err != nil {
		o.logger.Warn("send failed", zap.Error(err))
		o.store.AddMessage(chat.NewMessage(chat.RoleAssistant, chat.TypeText, fallbackReply))
		o.flashError("Failed to send message. Please try again.")
		return fmt.Errorf("send message: %w", err)
	}

	replyType := chat.MessageType(resp.ResponseType)
	if replyType == "" {
		replyType = chat.TypeText
	}
	reply := chat.NewMessage(chat.RoleAssistant, replyType, resp.Response)
	reply.Metadata = resp.Metadata
	reply.Suggestions = resp.Suggestions
	o.store.AddMessage(reply)

	// Voice in, voice out.
	if typ == chat.TypeVoice && o.speech != nil {
		o.speech.Speak(resp.Response, nil)
	}
	return nil
}

// StartVoice begins a listening session. The final transcript, if any, is
// submitted as a voice send; recognition faults surface as one notification
// and are not retried.
func (o *Orchestrator) StartVoice() error {
	if o.voice == nil {
		return errors.New("voice capture not available")
	}
	return o.voice.Start(
		func(text string) {
			if err := o.Send(context.Background(), text, chat.TypeVoice); err != nil && !errors.Is(err, ErrBusy) {
				o.logger.Warn("voice send failed", zap.Error(err))
			}
		},
		func(code string) {
			o.flashError("Voice recognition failed (" + code + ")")
		},
	)
}

// StopVoice cancels the listening session, discarding interim transcripts.
func (o *Orchestrator) StopVoice() {
	if o.voice != nil {
		o.voice.Stop()
	}
}

// StopSpeaking cancels any utterance currently playing.
func (o *Orchestrator) StopSpeaking() {
	if o.speech != nil {
		o.speech.Stop()
	}
}

// UploadFiles drives a batch through the upload pipeline, sequentially.
// Each processed file is announced to the assistant as a follow-up message;
// each failure flashes independently.
func (o *Orchestrator) UploadFiles(ctx context.Context, files []upload.File) {
	o.uploads.Run(ctx, files, func(out upload.Outcome) {
		if out.Err != nil {
			o.flashError("Upload failed: " + out.Err.Error())
			return
		}
		o.flashInfo("File uploaded: " + out.Result.Filename)
		followUp := fmt.Sprintf("I've uploaded and processed %q. What would you like to know about it?", out.Result.Filename)
		if err := o.sendWhenIdle(ctx, followUp, nil); err != nil {
			o.logger.Warn("upload follow-up failed", zap.Error(err))
		}
	})
}

// Search runs one web search and hands the enriched result set to the
// assistant as context for a normal send.
func (o *Orchestrator) Search(ctx context.Context, query string, numResults int) (*search.ResultSet, error) {
	set, err := o.searches.Run(ctx, query, numResults)
	if err != nil {
		o.flashError("Search failed: " + err.Error())
		return nil, err
	}
	o.flashInfo(fmt.Sprintf("Found %d results", set.TotalFound))

	summary := fmt.Sprintf("I searched for %q and found %d relevant results. Here's what I found...", set.Query, len(set.Results))
	if err := o.sendWhenIdle(ctx, summary, map[string]any{"search_results": set.Results}); err != nil {
		o.logger.Warn("search follow-up failed", zap.Error(err))
	}
	return set, nil
}

// followUpWait bounds how long a follow-up send waits for an in-flight
// send to clear the busy gate.
const followUpWait = 10 * time.Second

// sendWhenIdle submits a follow-up message, retrying while another send
// holds the busy gate. A follow-up that cannot get through within the
// wait window is surfaced as a notification rather than dropped silently.
func (o *Orchestrator) sendWhenIdle(ctx context.Context, text string, extra map[string]any) error {
	deadline := time.Now().Add(followUpWait)
	for {
		err := o.send(ctx, text, chat.TypeText, extra)
		if !errors.Is(err, ErrBusy) {
			return err
		}
		if time.Now().After(deadline) {
			o.flashError("Assistant busy, follow-up message skipped")
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Calculate evaluates an expression on the backend and appends the result
// as an assistant message.
func (o *Orchestrator) Calculate(ctx context.Context, expression string) error {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil
	}
	result, err := o.backend.Calculate(ctx, expression)
	if err != nil {
		o.flashError("Calculation failed: " + err.Error())
		return fmt.Errorf("calculate: %w", err)
	}
	if !result.Success {
		o.flashError("Calculation failed: " + result.Error)
		return fmt.Errorf("calculate %q: %s", expression, result.Error)
	}
	o.store.AddMessage(chat.NewMessage(chat.RoleAssistant, chat.TypeText,
		fmt.Sprintf("%s = %v", result.Expression, result.Result)))
	return nil
}

// CheckHealth probes the backend and records reachability on the store.
func (o *Orchestrator) CheckHealth(ctx context.Context) {
	status, err := o.backend.Health(ctx)
	o.store.SetConnected(err == nil && status.Status == "healthy")
}

// ShowStats fetches backend usage counters and surfaces them as a
// notification.
func (o *Orchestrator) ShowStats(ctx context.Context) error {
	s, err := o.backend.Stats(ctx)
	if err != nil {
		o.flashError("Stats unavailable: " + err.Error())
		return fmt.Errorf("stats: %w", err)
	}
	o.flashInfo(fmt.Sprintf("%d conversations, %d files, %d pages scraped, %d voice, up %s",
		s.TotalConversations, s.FilesProcessed, s.WebPagesScraped, s.VoiceInteractions, s.Uptime))
	return nil
}

// ListVoices fetches the synthesis voices the backend offers.
func (o *Orchestrator) ListVoices(ctx context.Context) ([]api.Voice, error) {
	voices, err := o.backend.Voices(ctx)
	if err != nil {
		o.flashError("Voices unavailable: " + err.Error())
		return nil, fmt.Errorf("voices: %w", err)
	}
	return voices, nil
}

// ClearConversation wipes the message log, keeping the session id.
func (o *Orchestrator) ClearConversation() {
	o.store.ClearMessages()
}

func (o *Orchestrator) flashInfo(msg string) {
	o.emit(bus.KindFlashInfo, msg)
}

func (o *Orchestrator) flashError(msg string) {
	o.emit(bus.KindFlashError, msg)
}

func (o *Orchestrator) emit(kind string, payload any) {
	if o.bus != nil {
		o.bus.Emit(kind, payload)
	}
}
