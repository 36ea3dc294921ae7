package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dariusai/darius/internal/api"
	"github.com/dariusai/darius/internal/bus"
	"github.com/dariusai/darius/internal/chat"
	"github.com/dariusai/darius/internal/search"
	"github.com/dariusai/darius/internal/upload"
)

// fakeBackend scripts the API surface the orchestrator touches.
type fakeBackend struct {
	mu       sync.Mutex
	requests []api.ChatRequest
	reply    *api.ChatResponse
	sendErr  error
	block    chan struct{} // non-nil: SendMessage waits here

	calcResult *api.CalcResult
	calcErr    error
	health     *api.HealthStatus
	healthErr  error
	voices     []api.Voice
	voicesErr  error
	stats      *api.Stats
	statsErr   error
}

func (f *fakeBackend) SendMessage(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.reply, nil
}

func (f *fakeBackend) Calculate(_ context.Context, _ string) (*api.CalcResult, error) {
	return f.calcResult, f.calcErr
}

func (f *fakeBackend) Health(_ context.Context) (*api.HealthStatus, error) {
	return f.health, f.healthErr
}

func (f *fakeBackend) Voices(_ context.Context) ([]api.Voice, error) {
	return f.voices, f.voicesErr
}

func (f *fakeBackend) Stats(_ context.Context) (*api.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeBackend) sent() []api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ChatRequest(nil), f.requests...)
}

type fakeSpeech struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (f *fakeSpeech) Speak(text string, onDone func(error)) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	if onDone != nil {
		onDone(nil)
	}
}

func (f *fakeSpeech) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

type fakeTranscriber struct {
	onFinal func(string)
	onError func(string)
	stops   int
}

func (f *fakeTranscriber) Start(onFinal func(string), onError func(string)) error {
	f.onFinal = onFinal
	f.onError = onError
	return nil
}

func (f *fakeTranscriber) Stop() { f.stops++ }

func newTestOrchestrator(backend *fakeBackend) (*Orchestrator, *chat.Store, *fakeSpeech, *bus.Bus) {
	b := bus.New()
	store := chat.NewStore(b)
	speech := &fakeSpeech{}
	up := upload.NewPipeline(nil, b, nil)
	se := search.NewPipeline(nil, b, nil)
	o := New(store, backend, speech, &fakeTranscriber{}, up, se, b, nil)
	return o, store, speech, b
}

func TestSendAppendsUserThenAssistant(t *testing.T) {
	backend := &fakeBackend{reply: &api.ChatResponse{
		Response:     "the answer is 4",
		ResponseType: "text",
		Suggestions:  []string{"ask another"},
	}}
	o, store, _, _ := newTestOrchestrator(backend)

	if err := o.Send(context.Background(), "what is 2+2?", chat.TypeText); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[0].Content != "what is 2+2?" {
		t.Errorf("first message = %+v, want the user turn", msgs[0])
	}
	if msgs[1].Role != chat.RoleAssistant || msgs[1].Content != "the answer is 4" {
		t.Errorf("second message = %+v, want the assistant turn", msgs[1])
	}
	if len(msgs[1].Suggestions) != 1 {
		t.Errorf("assistant suggestions = %v", msgs[1].Suggestions)
	}
	if o.Busy() {
		t.Error("Busy() = true after completed send")
	}
}

func TestSendEmptyTextIsNoop(t *testing.T) {
	backend := &fakeBackend{reply: &api.ChatResponse{Response: "?"}}
	o, store, _, _ := newTestOrchestrator(backend)

	if err := o.Send(context.Background(), "   \t ", chat.TypeText); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store mutated by empty send: %d messages", store.Len())
	}
	if len(backend.sent()) != 0 {
		t.Error("empty send reached the backend")
	}
}

func TestSendFailureAppendsFallbackAndClearsBusy(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("connection refused")}
	o, store, _, b := newTestOrchestrator(backend)

	flashes, unsub := b.Subscribe("flash.", 10)
	defer unsub()

	err := o.Send(context.Background(), "hello?", chat.TypeText)
	if err == nil {
		t.Fatal("Send() expected error")
	}

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want user + fallback", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser {
		t.Error("user message was rolled back")
	}
	if msgs[1].Role != chat.RoleAssistant || msgs[1].Content != fallbackReply {
		t.Errorf("fallback = %+v", msgs[1])
	}
	if o.Busy() {
		t.Error("Busy() = true after failed send")
	}

	select {
	case evt := <-flashes:
		if evt.Kind != bus.KindFlashError {
			t.Errorf("flash kind = %q, want %q", evt.Kind, bus.KindFlashError)
		}
	case <-time.After(time.Second):
		t.Fatal("no error notification published")
	}
}

func TestSendWhileBusyRejected(t *testing.T) {
	backend := &fakeBackend{
		reply: &api.ChatResponse{Response: "ok"},
		block: make(chan struct{}),
	}
	o, _, _, _ := newTestOrchestrator(backend)

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.Send(context.Background(), "first", chat.TypeText) }()

	// Wait until the first send is holding the busy flag.
	deadline := time.Now().Add(2 * time.Second)
	for !o.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !o.Busy() {
		t.Fatal("first send never became busy")
	}

	if err := o.Send(context.Background(), "second", chat.TypeText); !errors.Is(err, ErrBusy) {
		t.Errorf("second Send() error = %v, want ErrBusy", err)
	}

	close(backend.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if o.Busy() {
		t.Error("Busy() stuck true")
	}
}

func TestVoiceSendSpeaksReply(t *testing.T) {
	backend := &fakeBackend{reply: &api.ChatResponse{Response: "lights are on"}}
	o, _, speech, _ := newTestOrchestrator(backend)

	if err := o.Send(context.Background(), "turn on the lights", chat.TypeVoice); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(speech.spoken) != 1 || speech.spoken[0] != "lights are on" {
		t.Errorf("spoken = %v, want the assistant reply", speech.spoken)
	}
}

func TestTextSendDoesNotSpeak(t *testing.T) {
	backend := &fakeBackend{reply: &api.ChatResponse{Response: "quiet answer"}}
	o, _, speech, _ := newTestOrchestrator(backend)

	if err := o.Send(context.Background(), "hi", chat.TypeText); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(speech.spoken) != 0 {
		t.Errorf("spoken = %v, text sends must stay silent", speech.spoken)
	}
}

func TestVoiceFinalTriggersSend(t *testing.T) {
	backend := &fakeBackend{reply: &api.ChatResponse{Response: "done"}}
	b := bus.New()
	store := chat.NewStore(b)
	trans := &fakeTranscriber{}
	o := New(store, backend, &fakeSpeech{}, trans, nil, nil, b, nil)

	if err := o.StartVoice(); err != nil {
		t.Fatalf("StartVoice() error = %v", err)
	}
	trans.onFinal("open the garage")

	reqs := backend.sent()
	if len(reqs) != 1 {
		t.Fatalf("backend requests = %d, want 1", len(reqs))
	}
	if reqs[0].Message != "open the garage" || reqs[0].MessageType != "voice" {
		t.Errorf("request = %+v", reqs[0])
	}
	if store.Len() != 2 {
		t.Errorf("messages = %d, want user + assistant", store.Len())
	}
}

func TestVoiceErrorFlashesOnce(t *testing.T) {
	b := bus.New()
	store := chat.NewStore(b)
	trans := &fakeTranscriber{}
	o := New(store, &fakeBackend{}, nil, trans, nil, nil, b, nil)

	flashes, unsub := b.Subscribe("flash.error", 10)
	defer unsub()

	_ = o.StartVoice()
	trans.onError("not-allowed")

	select {
	case <-flashes:
	case <-time.After(time.Second):
		t.Fatal("no notification for voice error")
	}
	if store.Len() != 0 {
		t.Errorf("voice error appended %d messages", store.Len())
	}
}

func TestCalculateAppendsResult(t *testing.T) {
	backend := &fakeBackend{calcResult: &api.CalcResult{
		Expression: "2+2", Result: 4.0, Success: true,
	}}
	o, store, _, _ := newTestOrchestrator(backend)

	if err := o.Calculate(context.Background(), "2+2"); err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	msg, ok := store.LastMessage()
	if !ok || msg.Role != chat.RoleAssistant || msg.Content != "2+2 = 4" {
		t.Errorf("last message = %+v", msg)
	}
}

func TestCalculateFailureFlashes(t *testing.T) {
	backend := &fakeBackend{calcResult: &api.CalcResult{
		Expression: "1/0", Error: "division by zero", Success: false,
	}}
	o, store, _, b := newTestOrchestrator(backend)

	flashes, unsub := b.Subscribe("flash.error", 10)
	defer unsub()

	if err := o.Calculate(context.Background(), "1/0"); err == nil {
		t.Fatal("Calculate() expected error")
	}
	select {
	case <-flashes:
	case <-time.After(time.Second):
		t.Fatal("no notification for calculation failure")
	}
	if store.Len() != 0 {
		t.Errorf("failed calculation appended %d messages", store.Len())
	}
}

// fakeUploader feeds scripted outcomes to the completion callback.
type fakeUploader struct {
	outcomes []upload.Outcome
}

func (f *fakeUploader) Run(_ context.Context, _ []upload.File, onOutcome func(upload.Outcome)) {
	for _, out := range f.outcomes {
		onOutcome(out)
	}
}

func TestUploadFollowUpWaitsForBusySend(t *testing.T) {
	backend := &fakeBackend{
		reply: &api.ChatResponse{Response: "ok"},
		block: make(chan struct{}),
	}
	b := bus.New()
	store := chat.NewStore(b)
	uploader := &fakeUploader{outcomes: []upload.Outcome{{
		File:   "notes.pdf",
		Result: &api.UploadResult{Filename: "notes.pdf", Processed: true},
	}}}
	o := New(store, backend, nil, nil, uploader, nil, b, nil)

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.Send(context.Background(), "first", chat.TypeText) }()

	deadline := time.Now().Add(2 * time.Second)
	for !o.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !o.Busy() {
		t.Fatal("first send never became busy")
	}

	uploadDone := make(chan struct{})
	go func() {
		o.UploadFiles(context.Background(), nil)
		close(uploadDone)
	}()

	// The follow-up must be waiting on the busy gate, not dropped.
	time.Sleep(50 * time.Millisecond)
	close(backend.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}

	select {
	case <-uploadDone:
	case <-time.After(5 * time.Second):
		t.Fatal("follow-up send never completed")
	}

	reqs := backend.sent()
	if len(reqs) != 2 {
		t.Fatalf("backend requests = %d, want first send + follow-up", len(reqs))
	}
	want := `I've uploaded and processed "notes.pdf". What would you like to know about it?`
	if reqs[1].Message != want {
		t.Errorf("follow-up = %q, want %q", reqs[1].Message, want)
	}
}

func TestShowStatsFlashesSummary(t *testing.T) {
	backend := &fakeBackend{stats: &api.Stats{
		TotalConversations: 7,
		FilesProcessed:     2,
		Uptime:             "3h",
	}}
	o, _, _, b := newTestOrchestrator(backend)

	flashes, unsub := b.Subscribe("flash.info", 10)
	defer unsub()

	if err := o.ShowStats(context.Background()); err != nil {
		t.Fatalf("ShowStats() error = %v", err)
	}
	select {
	case evt := <-flashes:
		msg, _ := evt.Payload.(string)
		if !strings.Contains(msg, "7 conversations") {
			t.Errorf("stats flash = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no stats notification published")
	}
}

func TestListVoicesFailureFlashes(t *testing.T) {
	backend := &fakeBackend{voicesErr: errors.New("service down")}
	o, _, _, b := newTestOrchestrator(backend)

	flashes, unsub := b.Subscribe("flash.error", 10)
	defer unsub()

	if _, err := o.ListVoices(context.Background()); err == nil {
		t.Fatal("ListVoices() expected error")
	}
	select {
	case <-flashes:
	case <-time.After(time.Second):
		t.Fatal("no notification for voices failure")
	}
}

func TestCheckHealthTracksConnectivity(t *testing.T) {
	backend := &fakeBackend{health: &api.HealthStatus{Status: "healthy"}}
	o, store, _, _ := newTestOrchestrator(backend)

	o.CheckHealth(context.Background())
	if !store.Connected() {
		t.Error("Connected() = false after healthy probe")
	}

	backend.healthErr = errors.New("unreachable")
	o.CheckHealth(context.Background())
	if store.Connected() {
		t.Error("Connected() = true after failed probe")
	}
}
