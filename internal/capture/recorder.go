// Package capture records one spoken question from the microphone and
// transcribes it with a local Whisper model.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Defaults for a tap-to-talk question.
const (
	DefaultMaxDuration   = 20 * time.Second
	DefaultResultTimeout = 30 * time.Second
	DefaultTempDir       = ".kidz-stt"
)

// ErrNotRecording is returned by Stop when no capture is running.
var ErrNotRecording = errors.New("capture: not recording")

// Option configures the Recorder.
type Option func(*Recorder)

// WithMaxDuration caps one recording. The microphone closes on its own
// when the cap is reached; Stop still returns the transcript.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Recorder) { r.maxDuration = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) Option {
	return func(r *Recorder) { r.tempDir = dir }
}

// WithResultTimeout bounds the wait for the transcript after Stop.
func WithResultTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.resultTimeout = d }
}

// session is one live microphone capture.
type session struct {
	start func() error
	stop  func()
}

// opener starts the transcriber plumbing. The callback receives the
// transcript once the session is stopped.
type opener func(onText func(string)) (session, error)

// Recorder is a tap-to-talk microphone: Start opens the mic, Stop closes
// it and returns the cleaned transcript.
type Recorder struct {
	whisperBin    string
	modelPath     string
	tempDir       string
	maxDuration   time.Duration
	resultTimeout time.Duration
	log           *logger.Logger
	open          opener

	mu  sync.Mutex
	cur *recording
}

type recording struct {
	stopOnce sync.Once
	stop     func()
	text     chan string
	cap      *time.Timer
}

func (r *recording) close() { r.stopOnce.Do(r.stop) }

// NewRecorder creates a recorder for the whisper-cli binary and GGML
// model.
func NewRecorder(whisperBin, modelPath string, log *logger.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		whisperBin:    whisperBin,
		modelPath:     modelPath,
		tempDir:       DefaultTempDir,
		maxDuration:   DefaultMaxDuration,
		resultTimeout: DefaultResultTimeout,
		log:           log,
	}
	for _, o := range opts {
		o(r)
	}
	r.open = r.openWhisper
	return r
}

// Check reports whether the binary and model are present.
func (r *Recorder) Check() error {
	if _, err := exec.LookPath(r.whisperBin); err != nil {
		return fmt.Errorf("capture: whisper binary %q: %w", r.whisperBin, err)
	}
	if _, err := os.Stat(r.modelPath); err != nil {
		return fmt.Errorf("capture: whisper model: %w", err)
	}
	return nil
}

func (r *Recorder) openWhisper(onText func(string)) (session, error) {
	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return session{}, fmt.Errorf("capture: temp dir: %w", err)
	}
	verbose := r.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(r.whisperBin, r.modelPath, r.tempDir, "wav", onText, verbose)
	if err != nil {
		return session{}, err
	}
	return session{
		start: t.Start,
		stop:  func() { t.Stop() },
	}, nil
}

// Start opens the microphone. Failures wrap domain.ErrDeviceUnavailable.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		r.log.Debug("capture: restarting, dropping previous recording")
		r.cur.cap.Stop()
		r.cur.close()
		r.cur = nil
	}

	rec := &recording{text: make(chan string, 1)}
	s, err := r.open(func(text string) {
		select {
		case rec.text <- text:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("capture: open: %w", errors.Join(domain.ErrDeviceUnavailable, err))
	}
	if err := s.start(); err != nil {
		return fmt.Errorf("capture: start: %w", errors.Join(domain.ErrDeviceUnavailable, err))
	}
	rec.stop = s.stop
	rec.cap = time.AfterFunc(r.maxDuration, func() {
		r.log.Debug("capture: reached %s, closing microphone", r.maxDuration)
		rec.close()
	})
	r.cur = rec

	r.log.Info("capture: recording (max %s)", r.maxDuration)
	return nil
}

// Stop closes the microphone and waits for the transcript.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	rec := r.cur
	r.cur = nil
	r.mu.Unlock()

	if rec == nil {
		return "", ErrNotRecording
	}
	rec.cap.Stop()
	rec.close()

	wait := time.NewTimer(r.resultTimeout)
	defer wait.Stop()

	select {
	case raw := <-rec.text:
		text := cleanTranscription(raw)
		r.log.Info("capture: heard %q", text)
		return text, nil
	case <-wait.C:
		return "", fmt.Errorf("capture: no transcript after %s", r.resultTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cancel closes the microphone and drops the recording without waiting
// for a transcript. It does nothing when not recording.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	rec := r.cur
	r.cur = nil
	r.mu.Unlock()

	if rec == nil {
		return
	}
	rec.cap.Stop()
	rec.close()
	r.log.Info("capture: recording discarded")
}

// Recording reports whether the microphone is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur != nil
}
