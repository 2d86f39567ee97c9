package main

import (
	"context"

	"github.com/hammamikhairi/kidzstage/internal/backend"
	"github.com/hammamikhairi/kidzstage/internal/capture"
	"github.com/hammamikhairi/kidzstage/internal/config"
	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/explainer"
	"github.com/hammamikhairi/kidzstage/internal/logger"
	"github.com/hammamikhairi/kidzstage/internal/playback"
	"github.com/hammamikhairi/kidzstage/internal/preset"
	"github.com/hammamikhairi/kidzstage/internal/session"
	"github.com/hammamikhairi/kidzstage/internal/speech"
	"github.com/hammamikhairi/kidzstage/internal/storage"
)

// stack is every component of one stage, wired together.
type stack struct {
	cfg      *config.Config
	log      *logger.Logger
	chat     *storage.MemoryChatLog
	speech   *speech.Engine
	notifier domain.Notifier
	client   *backend.Client
	player   *playback.Sequencer
	topics   *explainer.Poller
	catalog  *preset.MemoryCatalog
	overlay  *preset.Overlay
	recorder *capture.Recorder // nil when voice input is unavailable
	ctl      *session.Controller
}

// wireOptions are the hooks a front end plugs into the stack.
type wireOptions struct {
	text       domain.Notifier            // prints status lines
	onPlayback func(domain.PlaybackState) // sequencer observer, may be nil
	voice      bool                       // open the microphone pipeline
}

// buildSpeech picks the Azure backend when credentials and an audio
// device are present, and the silent pacing backend otherwise.
func buildSpeech(cfg *config.Config, log *logger.Logger) *speech.Engine {
	speechLog := log.With("speech")
	opts := []speech.EngineOption{
		speech.WithProsody(cfg.Speech.Prosody()),
		speech.WithRateCaps(cfg.Speech.RateCaps),
		speech.WithTick(cfg.Speech.Tick),
	}

	if !cfg.Speech.Azure() || rootFlags.noSpeech {
		if !rootFlags.noSpeech && cfg.Speech.Enabled {
			log.Info("TTS disabled: set %s and %s to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		}
		return speech.NewEngine(speech.NewSilent(speechLog), speechLog, opts...)
	}

	player, err := speech.NewPlayer(speechLog)
	if err != nil {
		log.Error("audio player init failed, speech disabled: %v", err)
		return speech.NewEngine(speech.NewSilent(speechLog), speechLog, opts...)
	}
	tts := speech.NewAzureClient(cfg.Speech.AzureKey, cfg.Speech.AzureRegion, speechLog)
	cache := speech.NewAudioCache(cfg.Speech.CacheDir, cfg.Speech.DiskCache, cfg.Speech.CacheEntries, speechLog)
	log.Info("TTS enabled (region=%s)", cfg.Speech.AzureRegion)
	return speech.NewEngine(speech.NewAzureSpeaker(tts, player, speechLog, speech.WithCache(cache)), speechLog, opts...)
}

// buildStack wires the conversation pipeline shared by every command.
func buildStack(ctx context.Context, cfg *config.Config, log *logger.Logger, wo wireOptions) *stack {
	s := &stack{cfg: cfg, log: log}

	s.chat = storage.NewMemoryChatLog(cfg.Session.ChatLimit, log.With("chat"))
	s.speech = buildSpeech(cfg, log)
	s.notifier = speech.NewSpeakingNotifier(wo.text, s.speech, cfg.Session.Language, log.With("notify"))

	s.client = backend.NewClient(cfg.Backend.URL, log.With("backend"),
		backend.WithHTTPTimeout(cfg.Backend.Timeout),
		backend.WithPollTimeout(cfg.Backend.QuickTimeout),
		backend.WithClassLevel(cfg.Session.ClassLevel),
	)

	var sources []explainer.ImageSource
	if cfg.Backend.ImageProxy != "" {
		sources = append(sources, explainer.NewProxySource(cfg.Backend.ImageProxy, cfg.Explainer.WikiTimeout))
	}
	sources = append(sources, explainer.NewWikipediaSource(cfg.Explainer.WikiTimeout))
	elog := log.With("explainer")
	s.topics = explainer.NewPoller(s.client, elog,
		explainer.WithInterval(cfg.Explainer.Interval),
		explainer.WithAttempts(cfg.Explainer.Attempts),
		explainer.WithTimeout(cfg.Explainer.Timeout),
		explainer.WithImages(explainer.NewResolver(elog, sources...)),
	)

	s.catalog = preset.NewMemoryCatalog(cfg.Session.PresetDir, log.With("preset"))
	s.overlay = preset.NewOverlay(log.With("preset"))

	// The halt check reads the controller, which needs the sequencer
	// first; it is assigned before any playback starts.
	var ctl *session.Controller
	popts := []playback.Option{
		playback.WithScenePause(cfg.Playback.ScenePause),
		playback.WithReadingRate(cfg.Speech.Rate),
		playback.WithHaltCheck(func() bool { return ctl != nil && ctl.Stopped() }),
	}
	if wo.onPlayback != nil {
		popts = append(popts, playback.WithObserver(wo.onPlayback))
	}
	s.player = playback.New(s.speech, s.chat, log.With("playback"), popts...)

	sopts := []session.Option{
		session.WithOverlay(s.overlay),
		session.WithPresets(s.catalog),
		session.WithTopics(s.topics),
		session.WithLanguage(cfg.Session.Language),
		session.WithCharacter(domain.ParseCharacter(cfg.Session.Character)),
		session.WithClassLevel(cfg.Session.ClassLevel),
	}
	if wo.voice && cfg.Capture.Enabled {
		rec := capture.NewRecorder(cfg.Capture.WhisperBin, cfg.Capture.Model, log.With("capture"),
			capture.WithTempDir(cfg.Capture.TempDir),
			capture.WithMaxDuration(cfg.Capture.MaxDuration),
			capture.WithResultTimeout(cfg.Capture.ResultTimeout),
		)
		if err := rec.Check(); err != nil {
			log.Warn("voice input disabled: %v", err)
		} else {
			s.recorder = rec
			sopts = append(sopts, session.WithRecorder(rec))
		}
	}

	ctl = session.New(s.client, s.player, s.speech, s.chat, s.notifier, log.With("session"), sopts...)
	s.ctl = ctl

	// Warm the cache for the lines spoken while waiting.
	lang := cfg.Session.Language
	prefer := domain.ParseCharacter(cfg.Session.Character).VoicePreference()
	go s.speech.Prefetch(ctx, lang, prefer, session.Fillers()...)

	return s
}

// applyReload pushes the live-tunable settings of a reloaded config.
func (s *stack) applyReload(cfg *config.Config) {
	s.speech.SetProsody(cfg.Speech.Prosody(), cfg.Speech.RateCaps)
	if !rootFlags.verbose && !rootFlags.quiet {
		s.log.SetLevel(logger.ParseLevel(cfg.Log.Level))
	}
	s.log.Info("config: speech prosody now rate=%.2f pitch=%.2f", cfg.Speech.Rate, cfg.Speech.Pitch)
}
