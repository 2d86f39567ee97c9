// Package playback walks a scripted performance scene by scene.
//
// The [Sequencer] owns the "now playing" state: which scene is current,
// the subtitle, and whether the character is speaking. It drives the
// speech engine one line at a time, pausing between lines, and stops at
// the next suspension point once halted.
package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
	"github.com/hammamikhairi/kidzstage/internal/speech"
)

// DefaultScenePause is the gap between two lines.
const DefaultScenePause = 500 * time.Millisecond

// Speaker says one utterance and reports how it ended.
type Speaker interface {
	Speak(ctx context.Context, u domain.Utterance) domain.SpeechOutcome
}

// Option configures the Sequencer.
type Option func(*Sequencer)

// WithScenePause sets the gap between lines.
func WithScenePause(d time.Duration) Option {
	return func(s *Sequencer) { s.pause = d }
}

// WithObserver registers a callback for every state change. It is called
// outside the sequencer's lock.
func WithObserver(fn func(domain.PlaybackState)) Option {
	return func(s *Sequencer) { s.observer = fn }
}

// WithHaltCheck adds an extra halt condition checked at every suspension
// point, next to the run's context.
func WithHaltCheck(fn func() bool) Option {
	return func(s *Sequencer) { s.halted = fn }
}

// WithReadingRate sets the rate used to pace subtitles when speech is
// suppressed.
func WithReadingRate(rate float64) Option {
	return func(s *Sequencer) { s.readingRate = rate }
}

// RunOptions tune one run.
type RunOptions struct {
	Language string
	// Suppressed advances subtitles without calling the speaker, e.g.
	// while a preset video carries the audio.
	Suppressed bool
	// EmitChat appends the performance to the chat log before playing.
	EmitChat bool
}

// Report summarizes a run.
type Report struct {
	RunID   string
	Shown   int // lines put on screen
	Spoken  int // lines the speaker completed
	Skipped int // empty or duplicate lines
	Halted  bool
}

// Sequencer plays scenes in order. Only one run owns the state at a
// time: starting a run or halting invalidates the previous run, which
// then never writes state again.
type Sequencer struct {
	speaker     Speaker
	chat        domain.ChatLog
	log         *logger.Logger
	pause       time.Duration
	observer    func(domain.PlaybackState)
	halted      func() bool
	readingRate float64
	sleep       func(ctx context.Context, d time.Duration) bool

	mu    sync.Mutex
	run   uint64
	state domain.PlaybackState
}

// New creates a sequencer. chat may be nil when no history is kept.
func New(speaker Speaker, chat domain.ChatLog, log *logger.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		speaker:     speaker,
		chat:        chat,
		log:         log,
		pause:       DefaultScenePause,
		halted:      func() bool { return false },
		readingRate: speech.DefaultProsody.Rate,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play runs the scenes. It returns domain.ErrNoScenes for an empty list;
// halting is reported in the Report, not as an error.
func (s *Sequencer) Play(ctx context.Context, scenes []domain.Scene, opts RunOptions) (Report, error) {
	if len(scenes) == 0 {
		return Report{}, domain.ErrNoScenes
	}
	report := Report{RunID: uuid.NewString()}

	// A turn cancelled before it got here never owns the state.
	if ctx.Err() != nil || s.halted() {
		s.log.Debug("playback %s: cancelled before start", short(report.RunID))
		report.Halted = true
		return report, nil
	}

	kept := make([]domain.Scene, len(scenes))
	copy(kept, scenes)

	s.mu.Lock()
	s.run++
	run := s.run
	s.state = domain.PlaybackState{Active: true, LastScenes: kept}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.log.Info("playback %s: %d scenes (lang=%s suppressed=%v)", short(report.RunID), len(scenes), opts.Language, opts.Suppressed)

	if opts.EmitChat && s.chat != nil && !s.stopped(ctx, run) {
		if text := ChatText(scenes); text != "" {
			entry := domain.ChatEntry{ID: report.RunID, Speaker: domain.SpeakerAI, Text: text, At: time.Now()}
			if err := s.chat.Append(ctx, entry); err != nil {
				s.log.Warn("playback: chat append failed: %v", err)
			}
		}
	}

	seen := seenSet{}
	for i, sc := range scenes {
		if s.stopped(ctx, run) {
			report.Halted = true
			break
		}

		text := strings.TrimSpace(sc.Dialogue)
		if !seen.add(text) {
			report.Skipped++
			continue
		}

		if !s.update(run, func(st *domain.PlaybackState) {
			st.CurrentIndex = i
			st.Subtitle = text
			st.Speaking = true
		}) {
			report.Halted = true
			break
		}
		report.Shown++

		if opts.Suppressed {
			s.sleep(ctx, speech.ReadingTime(text, s.readingRate))
		} else {
			out := s.speaker.Speak(ctx, domain.Utterance{
				Text:     text,
				Language: opts.Language,
				Prefer:   sc.Character.VoicePreference(),
			})
			if out == domain.SpeechCompleted {
				report.Spoken++
			}
			s.log.Debug("playback %s: scene %d %s", short(report.RunID), sc.ID, out)
		}

		s.update(run, func(st *domain.PlaybackState) { st.Speaking = false })

		if s.stopped(ctx, run) {
			report.Halted = true
			break
		}
		if !s.sleep(ctx, s.pause) {
			report.Halted = true
			break
		}
	}

	s.update(run, func(st *domain.PlaybackState) {
		st.Active = false
		st.Speaking = false
	})
	s.log.Info("playback %s: done (shown=%d spoken=%d skipped=%d halted=%v)",
		short(report.RunID), report.Shown, report.Spoken, report.Skipped, report.Halted)
	return report, nil
}

// Halt ends the current run immediately: the flags clear now and the
// run stops at its next suspension point. LastScenes and CurrentIndex
// are kept for replay.
func (s *Sequencer) Halt() {
	s.mu.Lock()
	s.run++
	changed := s.state.Active || s.state.Speaking
	s.state.Active = false
	s.state.Speaking = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

// State returns a copy of the current playback state.
func (s *Sequencer) State() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastScenes returns the scenes of the most recent run.
func (s *Sequencer) LastScenes() []domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Scene, len(s.state.LastScenes))
	copy(out, s.state.LastScenes)
	return out
}

// update applies fn to the state if run still owns it.
func (s *Sequencer) update(run uint64, fn func(*domain.PlaybackState)) bool {
	s.mu.Lock()
	if s.run != run {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return true
}

func (s *Sequencer) stopped(ctx context.Context, run uint64) bool {
	if ctx.Err() != nil || s.halted() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != run
}

func (s *Sequencer) snapshotLocked() domain.PlaybackState {
	st := s.state
	st.LastScenes = make([]domain.Scene, len(s.state.LastScenes))
	copy(st.LastScenes, s.state.LastScenes)
	return st
}

func (s *Sequencer) notify(st domain.PlaybackState) {
	if s.observer != nil {
		s.observer(st)
	}
}

// sleepCtx waits for d and reports whether the wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
