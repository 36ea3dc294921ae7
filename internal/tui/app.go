package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/dariusai/darius/internal/bus"
	"github.com/dariusai/darius/internal/chat"
	"github.com/dariusai/darius/internal/orchestrator"
	"github.com/dariusai/darius/internal/search"
	"github.com/dariusai/darius/internal/tui/keys"
	"github.com/dariusai/darius/internal/tui/model"
	"github.com/dariusai/darius/internal/tui/views"
	"github.com/dariusai/darius/internal/upload"
)

// App is the terminal shell. It renders the conversation and translates key
// presses into orchestrator calls; all state lives behind the orchestrator
// and flows back in through the event bus.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	orch     *orchestrator.Orchestrator
	store    *chat.Store
	bus      *bus.Bus
	registry *keys.Registry
	flash    *model.Flash
	logger   *zap.Logger

	transcript *views.Transcript
	composer   *views.Composer
	statusBar  *views.StatusBar
	searchV    *views.SearchView
	uploadP    *views.UploadPrompt

	searchResults int
	listening     atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI shell. searchResults is the result count requested
// for searches started from the search page.
func NewApp(o *orchestrator.Orchestrator, store *chat.Store, b *bus.Bus, profile string, searchResults int, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		app:           tview.NewApplication(),
		pages:         tview.NewPages(),
		orch:          o,
		store:         store,
		bus:           b,
		registry:      keys.NewRegistry(),
		flash:         &model.Flash{},
		logger:        logger,
		transcript:    views.NewTranscript(),
		composer:      views.NewComposer(),
		statusBar:     views.NewStatusBar(),
		searchV:       views.NewSearchView(),
		uploadP:       views.NewUploadPrompt(),
		searchResults: searchResults,
		ctx:           ctx,
		cancel:        cancel,
	}

	a.statusBar.SetProfile(profile)
	a.statusBar.SetSession(store.SessionID())
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.statusBar.SetHints(strings.Join(a.registry.Hints("chat"), " "))

	return a
}

func (a *App) setupBindings() {
	a.registry.Bind(&keys.Binding{
		Rune: 'q', Key: tcell.KeyRune, Help: "q:quit",
		Handler: func() { a.app.Stop() },
	})
	a.registry.Bind(&keys.Binding{
		Rune: 's', Key: tcell.KeyRune, Help: "s:search",
		Handler: func() { a.showPage("search", a.searchV.Input()) },
	})
	a.registry.Bind(&keys.Binding{
		Rune: 'u', Key: tcell.KeyRune, Help: "u:upload",
		Handler: func() { a.showPage("upload", a.uploadP) },
	})
	a.registry.Bind(&keys.Binding{
		Rune: 't', Key: tcell.KeyRune, Help: "t:stats",
		Handler: func() {
			go func() { _ = a.orch.ShowStats(a.ctx) }()
		},
	})
	a.registry.BindPage("chat", &keys.Binding{
		Rune: 'o', Key: tcell.KeyRune, Help: "o:voices",
		Handler: func() { go a.showVoices() },
	})
	a.registry.BindPage("chat", &keys.Binding{
		Rune: 'v', Key: tcell.KeyRune, Help: "v:voice",
		Handler: func() { a.toggleVoice() },
	})
	a.registry.BindPage("chat", &keys.Binding{
		Rune: 'm', Key: tcell.KeyRune, Help: "m:mute",
		Handler: func() { a.orch.StopSpeaking() },
	})
	a.registry.BindPage("chat", &keys.Binding{
		Rune: 'c', Key: tcell.KeyRune, Help: "c:clear",
		Handler: func() { a.orch.ClearConversation() },
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(func(text string) {
		go func() {
			var err error
			// "=expr" asks the calculator instead of the assistant.
			if rest, ok := strings.CutPrefix(text, "="); ok {
				err = a.orch.Calculate(a.ctx, rest)
			} else {
				err = a.orch.Send(a.ctx, text, chat.TypeText)
			}
			if err != nil {
				a.logger.Warn("composer send failed", zap.Error(err))
			}
		}()
	})

	a.searchV.SetOnQuery(func(query string) {
		go func() {
			set, err := a.orch.Search(a.ctx, query, a.searchResults)
			if err != nil {
				a.logger.Warn("search failed", zap.Error(err))
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.searchV.Update(set)
				a.app.SetFocus(a.searchV.Results())
			})
		}()
	})

	a.uploadP.SetOnSubmit(func(line string) {
		paths := strings.Fields(line)
		a.showPage("chat", a.composer.InputField)
		go a.runUpload(paths)
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.transcript, 0, 1, false).
		AddItem(a.composer, 1, 0, true)

	a.pages.AddPage("chat", chatFlex, true, true)
	a.pages.AddPage("search", a.searchV, true, false)
	a.pages.AddPage("upload", a.uploadP, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "search", "upload":
				a.showPage("chat", a.composer.InputField)
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer (only when not already in an input field).
		if currentPage == "chat" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composer.InputField)
			return nil
		}

		if a.registry.Handle(currentPage, event) {
			return nil
		}

		return event
	})
}

func (a *App) showPage(name string, focus tview.Primitive) {
	a.pages.SwitchToPage(name)
	a.app.SetFocus(focus)
	a.statusBar.SetHints(strings.Join(a.registry.Hints(name), " "))
}

// showVoices lists the backend synthesis voices on the flash line.
func (a *App) showVoices() {
	voices, err := a.orch.ListVoices(a.ctx)
	if err != nil {
		return // already surfaced as a flash.error event
	}
	names := make([]string, 0, len(voices))
	for _, v := range voices {
		names = append(names, v.Name)
	}
	a.flash.Set("Voices: "+strings.Join(names, ", "), false, 5*time.Second)
}

func (a *App) toggleVoice() {
	if a.listening.Load() {
		a.orch.StopVoice()
		return
	}
	if err := a.orch.StartVoice(); err != nil {
		a.flash.Set("Voice unavailable: "+err.Error(), true, 5*time.Second)
	}
}

// runUpload opens the named files and hands them to the upload pipeline.
// Files that cannot be opened fail individually without blocking the rest.
func (a *App) runUpload(paths []string) {
	var files []upload.File
	var handles []*os.File
	defer func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			a.flash.Set("Cannot open "+path, true, 5*time.Second)
			continue
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			a.flash.Set("Cannot stat "+path, true, 5*time.Second)
			continue
		}
		handles = append(handles, f)
		files = append(files, upload.File{
			Name:   info.Name(),
			Size:   info.Size(),
			Reader: f,
		})
	}
	if len(files) == 0 {
		return
	}
	a.orch.UploadFiles(a.ctx, files)
}

// Run starts the shell and blocks until quit.
func (a *App) Run() error {
	a.transcript.Update(a.store.Messages())

	go a.eventLoop()
	go a.refreshLoop()
	go a.orch.CheckHealth(a.ctx)

	return a.app.Run()
}

// eventLoop applies bus events to the views. It is the only writer of view
// state after startup; every mutation goes through QueueUpdateDraw.
func (a *App) eventLoop() {
	events, unsub := a.bus.Subscribe("", 64)
	defer unsub()

	for {
		select {
		case evt := <-events:
			a.apply(evt)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) apply(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageAdded, bus.KindMessageUpdated, bus.KindMessageCleared:
		msgs := a.store.Messages()
		a.app.QueueUpdateDraw(func() {
			a.transcript.Update(msgs)
			a.statusBar.SetSession(a.store.SessionID())
		})

	case bus.KindSessionBusy:
		busy, _ := evt.Payload.(bool)
		a.app.QueueUpdateDraw(func() { a.statusBar.SetBusy(busy) })

	case bus.KindSessionConnectivity:
		connected, _ := evt.Payload.(bool)
		a.app.QueueUpdateDraw(func() { a.statusBar.SetConnected(connected) })

	case bus.KindVoiceListening:
		a.listening.Store(true)
		a.app.QueueUpdateDraw(func() { a.statusBar.SetListening(true, "") })

	case bus.KindVoiceInterim:
		interim, _ := evt.Payload.(string)
		a.app.QueueUpdateDraw(func() { a.statusBar.SetListening(true, interim) })

	case bus.KindVoiceFinal, bus.KindVoiceStopped, bus.KindVoiceError:
		a.listening.Store(false)
		a.app.QueueUpdateDraw(func() { a.statusBar.SetListening(false, "") })

	case bus.KindUploadProgress:
		if p, ok := evt.Payload.(upload.Progress); ok {
			a.flash.Set(progressLine(p), false, 2*time.Second)
		}

	case bus.KindSearchDone:
		if set, ok := evt.Payload.(*search.ResultSet); ok {
			a.app.QueueUpdateDraw(func() { a.searchV.Update(set) })
		}

	case bus.KindFlashInfo, bus.KindFlashError:
		msg, _ := evt.Payload.(string)
		a.flash.Set(msg, evt.Kind == bus.KindFlashError, 5*time.Second)
	}
}

// progressLine renders one upload progress event for the flash line.
func progressLine(p upload.Progress) string {
	return fmt.Sprintf("%s: %s %d%%", p.File, p.Stage, p.Percent)
}

// refreshLoop expires the flash line and polls backend health so the
// connectivity indicator stays current.
func (a *App) refreshLoop() {
	flashTick := time.NewTicker(time.Second)
	healthTick := time.NewTicker(15 * time.Second)
	defer flashTick.Stop()
	defer healthTick.Stop()

	for {
		select {
		case <-flashTick.C:
			msg, isError := a.flash.Get()
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(msg, isError)
			})
		case <-healthTick.C:
			a.orch.CheckHealth(a.ctx)
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the shell.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
