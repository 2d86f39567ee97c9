package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelOff, io.Discard)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kidzstage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	l, err := Load("", testLogger())
	require.NoError(t, err)

	cfg := l.Config()
	def := DefaultConfig()
	assert.Equal(t, def.Backend.URL, cfg.Backend.URL)
	assert.Equal(t, def.Gesture.Throttle, cfg.Gesture.Throttle)
	assert.Equal(t, def.Playback.ScenePause, cfg.Playback.ScenePause)
	assert.Equal(t, def.Explainer.Attempts, cfg.Explainer.Attempts)
	assert.Equal(t, def.Explainer.Timeout, cfg.Explainer.Timeout)
	assert.Equal(t, "en", cfg.Session.Language)
	assert.Equal(t, "", l.File())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: http://stage.local:8000
  image_proxy: http://stage.local:8001
gesture:
  source: stream
  stream_url: ws://stage.local:8000/gestures
  throttle: 150ms
speech:
  rate: 0.9
  rate_caps:
    hi: 0.8
explainer:
  attempts: 10
  timeout: 5s
session:
  language: hi
  character: boy
`)
	l, err := Load(path, testLogger())
	require.NoError(t, err)

	cfg := l.Config()
	assert.Equal(t, path, l.File())
	assert.Equal(t, "http://stage.local:8000", cfg.Backend.URL)
	assert.Equal(t, "http://stage.local:8001", cfg.Backend.ImageProxy)
	assert.Equal(t, SourceStream, cfg.Gesture.Source)
	assert.Equal(t, 150*time.Millisecond, cfg.Gesture.Throttle)
	assert.InDelta(t, 0.9, cfg.Speech.Rate, 1e-9)
	assert.InDelta(t, 0.8, cfg.Speech.RateCaps["hi"], 1e-9)
	assert.Equal(t, 10, cfg.Explainer.Attempts)
	assert.Equal(t, 5*time.Second, cfg.Explainer.Timeout)
	assert.Equal(t, "hi", cfg.Session.Language)
	assert.Equal(t, "boy", cfg.Session.Character)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig().Playback.ScenePause, cfg.Playback.ScenePause)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend:\n  url: http://from-file:8000\n")
	t.Setenv("KIDZ_BACKEND_URL", "http://from-env:9000")
	t.Setenv("KIDZ_PLAYBACK_SCENE_PAUSE", "250ms")

	l, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:9000", l.Config().Backend.URL)
	assert.Equal(t, 250*time.Millisecond, l.Config().Playback.ScenePause)
}

func TestAzureCredentialsFromConventionalEnv(t *testing.T) {
	t.Setenv("AZURE_SPEECH_KEY", "secret")
	t.Setenv("AZURE_SPEECH_REGION", "westeurope")

	l, err := Load(writeConfig(t, "{}\n"), testLogger())
	require.NoError(t, err)
	sp := l.Config().Speech
	assert.Equal(t, "secret", sp.AzureKey)
	assert.Equal(t, "westeurope", sp.AzureRegion)
	assert.True(t, sp.Azure())

	sp.Enabled = false
	assert.False(t, sp.Azure())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "gesture:\n  source: laser\n"), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gesture.source")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "backend: [unclosed\n"), testLogger())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"relative backend url", func(c *Config) { c.Backend.URL = "/api" }, false},
		{"stream without url", func(c *Config) { c.Gesture.Source = SourceStream }, false},
		{"gestures off", func(c *Config) { c.Gesture.Source = SourceOff }, true},
		{"negative throttle", func(c *Config) { c.Gesture.Throttle = -time.Millisecond }, false},
		{"throttle too long", func(c *Config) { c.Gesture.Throttle = 2 * time.Second }, false},
		{"zero attempts", func(c *Config) { c.Explainer.Attempts = 0 }, false},
		{"zero rate", func(c *Config) { c.Speech.Rate = 0 }, false},
		{"no language", func(c *Config) { c.Session.Language = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestProsodyFromConfig(t *testing.T) {
	sp := DefaultConfig().Speech
	p := sp.Prosody()
	assert.Equal(t, sp.Rate, p.Rate)
	assert.Equal(t, sp.Pitch, p.Pitch)
	assert.Equal(t, sp.Volume, p.Volume)
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "speech:\n  rate: 0.9\n")
	l, err := Load(path, testLogger())
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	l.Watch(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("speech:\n  rate: 0.7\n"), 0o644))

	// A write may surface as a truncate then a write; wait for the final
	// content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Speech.Rate == 0.7 {
				assert.InDelta(t, 0.7, l.Config().Speech.Rate, 1e-9)
				return
			}
		case <-deadline:
			t.Fatal("no reload after the file changed")
		}
	}
}

func TestWatchWithoutFileIsNoop(t *testing.T) {
	l, err := Load("", testLogger())
	require.NoError(t, err)
	l.Watch(func(*Config) { t.Error("unexpected reload") })
}
