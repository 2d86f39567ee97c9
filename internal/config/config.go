// Package config loads KidzStage settings from a YAML file, KIDZ_*
// environment variables and a .env file, and watches the file for
// changes.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/kidzstage/internal/capture"
	"github.com/hammamikhairi/kidzstage/internal/explainer"
	"github.com/hammamikhairi/kidzstage/internal/gesture"
	"github.com/hammamikhairi/kidzstage/internal/logger"
	"github.com/hammamikhairi/kidzstage/internal/playback"
	"github.com/hammamikhairi/kidzstage/internal/preset"
	"github.com/hammamikhairi/kidzstage/internal/speech"
	"github.com/hammamikhairi/kidzstage/internal/storage"
)

// EnvPrefix prefixes every environment override: backend.url is read
// from KIDZ_BACKEND_URL.
const EnvPrefix = "KIDZ"

// Gesture sources.
const (
	SourcePoll   = "poll"
	SourceStream = "stream"
	SourceOff    = "off"
)

// Config holds all application configuration.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Gesture   GestureConfig   `mapstructure:"gesture"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Explainer ExplainerConfig `mapstructure:"explainer"`
	Session   SessionConfig   `mapstructure:"session"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Log       LogConfig       `mapstructure:"log"`
}

// BackendConfig points at the answer/explainer/classifier service.
type BackendConfig struct {
	URL          string        `mapstructure:"url"`
	ImageProxy   string        `mapstructure:"image_proxy"` // "" skips the proxy image source
	Timeout      time.Duration `mapstructure:"timeout"`
	QuickTimeout time.Duration `mapstructure:"quick_timeout"` // explainer polls and gesture frames
}

// GestureConfig configures the camera pipeline.
type GestureConfig struct {
	Source         string        `mapstructure:"source"` // poll, stream or off
	FramePath      string        `mapstructure:"frame_path"`
	FrameMaxAge    time.Duration `mapstructure:"frame_max_age"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Throttle       time.Duration `mapstructure:"throttle"`
	StreamURL      string        `mapstructure:"stream_url"`
	DeviceFailures int           `mapstructure:"device_failures"`
}

// SpeechConfig configures text-to-speech.
type SpeechConfig struct {
	Enabled      bool               `mapstructure:"enabled"`
	AzureKey     string             `mapstructure:"azure_key"`
	AzureRegion  string             `mapstructure:"azure_region"`
	Rate         float64            `mapstructure:"rate"`
	Pitch        float64            `mapstructure:"pitch"`
	Volume       float64            `mapstructure:"volume"`
	RateCaps     map[string]float64 `mapstructure:"rate_caps"`
	Tick         time.Duration      `mapstructure:"tick"`
	CacheDir     string             `mapstructure:"cache_dir"`
	DiskCache    bool               `mapstructure:"disk_cache"`
	CacheEntries int                `mapstructure:"cache_entries"`
}

// Prosody returns the configured delivery.
func (s SpeechConfig) Prosody() speech.Prosody {
	return speech.Prosody{Rate: s.Rate, Pitch: s.Pitch, Volume: s.Volume}
}

// Azure reports whether Azure credentials are present.
func (s SpeechConfig) Azure() bool {
	return s.Enabled && s.AzureKey != "" && s.AzureRegion != ""
}

// PlaybackConfig configures the scene sequencer.
type PlaybackConfig struct {
	ScenePause time.Duration `mapstructure:"scene_pause"`
}

// ExplainerConfig configures the explainer poller.
type ExplainerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Attempts    int           `mapstructure:"attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
	WikiTimeout time.Duration `mapstructure:"wiki_timeout"`
}

// SessionConfig holds the conversation defaults.
type SessionConfig struct {
	Language   string `mapstructure:"language"`
	Character  string `mapstructure:"character"`
	ClassLevel string `mapstructure:"class_level"`
	PresetDir  string `mapstructure:"preset_dir"`
	ChatLimit  int    `mapstructure:"chat_limit"`
}

// CaptureConfig configures microphone capture.
type CaptureConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	WhisperBin    string        `mapstructure:"whisper_bin"`
	Model         string        `mapstructure:"model"`
	TempDir       string        `mapstructure:"temp_dir"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
	ResultTimeout time.Duration `mapstructure:"result_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"` // off, normal or verbose
	File  string `mapstructure:"file"`  // "stderr" logs to the console
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:          "http://localhost:8000",
			Timeout:      90 * time.Second,
			QuickTimeout: 5 * time.Second,
		},
		Gesture: GestureConfig{
			Source:         SourcePoll,
			FramePath:      ".kidz-camera/frame.jpg",
			FrameMaxAge:    2 * time.Second,
			PollInterval:   gesture.DefaultPollInterval,
			Throttle:       gesture.DefaultThrottle,
			DeviceFailures: 10,
		},
		Speech: SpeechConfig{
			Enabled:      true,
			Rate:         speech.DefaultProsody.Rate,
			Pitch:        speech.DefaultProsody.Pitch,
			Volume:       speech.DefaultProsody.Volume,
			RateCaps:     maps.Clone(speech.DefaultRateCaps),
			Tick:         speech.DefaultTick,
			CacheDir:     ".kidz-cache",
			DiskCache:    true,
			CacheEntries: 256,
		},
		Playback: PlaybackConfig{
			ScenePause: playback.DefaultScenePause,
		},
		Explainer: ExplainerConfig{
			Interval:    explainer.DefaultInterval,
			Attempts:    explainer.DefaultAttempts,
			Timeout:     explainer.DefaultTimeout,
			WikiTimeout: 4 * time.Second,
		},
		Session: SessionConfig{
			Language:   "en",
			Character:  "girl",
			ClassLevel: "3",
			PresetDir:  preset.DefaultClipDir,
			ChatLimit:  storage.DefaultChatLimit,
		},
		Capture: CaptureConfig{
			Enabled:       true,
			WhisperBin:    "whisper-cli",
			Model:         "bin/ggml-small.bin",
			TempDir:       capture.DefaultTempDir,
			MaxDuration:   capture.DefaultMaxDuration,
			ResultTimeout: capture.DefaultResultTimeout,
		},
		Log: LogConfig{
			Level: "normal",
			File:  ".kidz-logs/kidz.log",
		},
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url %q is not an absolute URL", c.Backend.URL)
	}
	switch c.Gesture.Source {
	case SourcePoll, SourceStream, SourceOff:
	default:
		return fmt.Errorf("gesture.source %q must be poll, stream or off", c.Gesture.Source)
	}
	if c.Gesture.Source == SourceStream && c.Gesture.StreamURL == "" {
		return errors.New("gesture.stream_url is required when gesture.source is stream")
	}
	if c.Gesture.Throttle < 0 || c.Gesture.Throttle > time.Second {
		return fmt.Errorf("gesture.throttle %s must be between 0 and 1s", c.Gesture.Throttle)
	}
	if c.Explainer.Attempts < 1 {
		return fmt.Errorf("explainer.attempts must be at least 1, got %d", c.Explainer.Attempts)
	}
	if c.Speech.Rate <= 0 || c.Speech.Pitch <= 0 || c.Speech.Volume < 0 {
		return errors.New("speech rate and pitch must be positive and volume non-negative")
	}
	if c.Session.Language == "" {
		return errors.New("session.language is required")
	}
	return nil
}

// ── Loader ───────────────────────────────────────────────────────

// Loader owns the viper instance behind a Config and reloads it when
// the file changes.
type Loader struct {
	v   *viper.Viper
	log *logger.Logger

	mu  sync.RWMutex
	cfg *Config
}

// Load reads .env, the config file and the environment. An empty path
// searches ./kidzstage.yaml and $HOME/.config/kidzstage/; a missing file
// is not an error.
func Load(path string, log *logger.Logger) (*Loader, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Azure credentials keep their conventional names.
	_ = v.BindEnv("speech.azure_key", "KIDZ_SPEECH_AZURE_KEY", speech.EnvAzureSpeechKey)
	_ = v.BindEnv("speech.azure_region", "KIDZ_SPEECH_AZURE_REGION", speech.EnvAzureSpeechRegion)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kidzstage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/kidzstage")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.Debug("config: no config file, using defaults and environment")
	}

	l := &Loader{v: v, log: log}
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.cfg = cfg
	return l, nil
}

// Config returns the current configuration. Callers must not mutate it.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// File returns the config file in use, "" when running on defaults.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

// SetLogger replaces the logger used for reload messages. Call it
// before Watch.
func (l *Loader) SetLogger(log *logger.Logger) { l.log = log }

// Watch calls fn with the new configuration every time the config file
// changes. Invalid edits are logged and ignored. Without a config file
// Watch does nothing.
func (l *Loader) Watch(fn func(*Config)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.log.Info("config: %s changed (%s)", e.Name, e.Op)
		cfg, err := l.reload()
		if err != nil {
			l.log.Warn("config: ignoring change: %v", err)
			return
		}
		if fn != nil {
			fn(cfg)
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) reload() (*Config, error) {
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so environment overrides reach
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.image_proxy", d.Backend.ImageProxy)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.quick_timeout", d.Backend.QuickTimeout)

	v.SetDefault("gesture.source", d.Gesture.Source)
	v.SetDefault("gesture.frame_path", d.Gesture.FramePath)
	v.SetDefault("gesture.frame_max_age", d.Gesture.FrameMaxAge)
	v.SetDefault("gesture.poll_interval", d.Gesture.PollInterval)
	v.SetDefault("gesture.throttle", d.Gesture.Throttle)
	v.SetDefault("gesture.stream_url", d.Gesture.StreamURL)
	v.SetDefault("gesture.device_failures", d.Gesture.DeviceFailures)

	v.SetDefault("speech.enabled", d.Speech.Enabled)
	v.SetDefault("speech.azure_key", d.Speech.AzureKey)
	v.SetDefault("speech.azure_region", d.Speech.AzureRegion)
	v.SetDefault("speech.rate", d.Speech.Rate)
	v.SetDefault("speech.pitch", d.Speech.Pitch)
	v.SetDefault("speech.volume", d.Speech.Volume)
	v.SetDefault("speech.rate_caps", d.Speech.RateCaps)
	v.SetDefault("speech.tick", d.Speech.Tick)
	v.SetDefault("speech.cache_dir", d.Speech.CacheDir)
	v.SetDefault("speech.disk_cache", d.Speech.DiskCache)
	v.SetDefault("speech.cache_entries", d.Speech.CacheEntries)

	v.SetDefault("playback.scene_pause", d.Playback.ScenePause)

	v.SetDefault("explainer.interval", d.Explainer.Interval)
	v.SetDefault("explainer.attempts", d.Explainer.Attempts)
	v.SetDefault("explainer.timeout", d.Explainer.Timeout)
	v.SetDefault("explainer.wiki_timeout", d.Explainer.WikiTimeout)

	v.SetDefault("session.language", d.Session.Language)
	v.SetDefault("session.character", d.Session.Character)
	v.SetDefault("session.class_level", d.Session.ClassLevel)
	v.SetDefault("session.preset_dir", d.Session.PresetDir)
	v.SetDefault("session.chat_limit", d.Session.ChatLimit)

	v.SetDefault("capture.enabled", d.Capture.Enabled)
	v.SetDefault("capture.whisper_bin", d.Capture.WhisperBin)
	v.SetDefault("capture.model", d.Capture.Model)
	v.SetDefault("capture.temp_dir", d.Capture.TempDir)
	v.SetDefault("capture.max_duration", d.Capture.MaxDuration)
	v.SetDefault("capture.result_timeout", d.Capture.ResultTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}
