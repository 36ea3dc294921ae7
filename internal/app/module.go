package app

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dariusai/darius/internal/api"
	"github.com/dariusai/darius/internal/bus"
	"github.com/dariusai/darius/internal/chat"
	"github.com/dariusai/darius/internal/config"
	"github.com/dariusai/darius/internal/lock"
	"github.com/dariusai/darius/internal/logging"
	"github.com/dariusai/darius/internal/orchestrator"
	"github.com/dariusai/darius/internal/profile"
	"github.com/dariusai/darius/internal/search"
	"github.com/dariusai/darius/internal/tui"
	"github.com/dariusai/darius/internal/upload"
	"github.com/dariusai/darius/internal/voice"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	ServerURL   string // optional override for the configured backend URL
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("darius",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideClient,
			provideSpeechQueue,
			provideVoiceChannel,
			provideUploadPipeline,
			provideSearchPipeline,
			provideOrchestrator,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := profile.ConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// First run: persist the defaults so the file exists to edit.
		if err := config.Save(path, cfg); err != nil {
			return nil, err
		}
	}
	if p.ServerURL != "" {
		cfg.ServerURL = p.ServerURL
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(b *bus.Bus) *chat.Store {
	return chat.NewStore(b)
}

func provideClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.New(cfg.ServerURL, cfg.Timeout(), logger)
}

// provideSpeechQueue returns nil when the host has no playback binary;
// speech output degrades to a no-op.
func provideSpeechQueue(c *api.Client, cfg *config.Config, logger *zap.Logger) *voice.OutputQueue {
	sink, err := voice.NewSpeakerSink()
	if err != nil {
		logger.Info("speech output disabled", zap.Error(err))
		return nil
	}
	synth := voice.NewRemoteSynthesizer(c, sink, voice.Prefs{
		Voice:        cfg.Speech.Voice,
		Speed:        cfg.Speech.Speed,
		OutputFormat: cfg.Speech.OutputFormat,
	}, logger)
	return voice.NewOutputQueue(synth, logger)
}

// provideVoiceChannel returns nil when the host has no capture binary;
// voice input degrades to a no-op.
func provideVoiceChannel(c *api.Client, b *bus.Bus, logger *zap.Logger) *voice.Channel {
	mic, err := voice.NewMicSource()
	if err != nil {
		logger.Info("voice input disabled", zap.Error(err))
		return nil
	}
	rec := voice.NewRemoteRecognizer(c, mic, logger)
	return voice.NewChannel(rec, b, logger)
}

func provideUploadPipeline(c *api.Client, b *bus.Bus, logger *zap.Logger) *upload.Pipeline {
	return upload.NewPipeline(c, b, logger)
}

func provideSearchPipeline(c *api.Client, b *bus.Bus, logger *zap.Logger) *search.Pipeline {
	return search.NewPipeline(c, b, logger)
}

func provideOrchestrator(store *chat.Store, c *api.Client, q *voice.OutputQueue, ch *voice.Channel, up *upload.Pipeline, se *search.Pipeline, b *bus.Bus, logger *zap.Logger) *orchestrator.Orchestrator {
	// Typed nils stay nil behind the interfaces so the orchestrator can
	// detect missing audio support.
	var speech orchestrator.SpeechQueue
	if q != nil {
		speech = q
	}
	var transcriber orchestrator.Transcriber
	if ch != nil {
		transcriber = ch
	}
	return orchestrator.New(store, c, speech, transcriber, up, se, b, logger)
}

func provideApp(o *orchestrator.Orchestrator, store *chat.Store, b *bus.Bus, p Params, cfg *config.Config, logger *zap.Logger) *tui.App {
	return tui.NewApp(o, store, b, p.ProfileName, cfg.Search.DefaultResults, logger)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, a *tui.App, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := a.Run(); err != nil {
					logger.Error("terminal shell error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			a.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
