package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Backend synthesizes and plays utterances.
type Backend interface {
	// Voices lists the voices the backend can speak with.
	Voices(ctx context.Context) ([]domain.Voice, error)
	// Speak blocks until the utterance finished or ctx is cancelled.
	Speak(ctx context.Context, u domain.Utterance, p Prosody) error
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithScoreTable replaces the voice scoring weights.
func WithScoreTable(t *ScoreTable) EngineOption {
	return func(e *Engine) { e.table = t }
}

// WithProsody sets the base prosody.
func WithProsody(p Prosody) EngineOption {
	return func(e *Engine) { e.prosody = p }
}

// WithRateCaps sets per-language rate caps keyed by primary subtag.
func WithRateCaps(caps map[string]float64) EngineOption {
	return func(e *Engine) { e.rateCaps = caps }
}

// WithTick sets the pause between cancelling and speaking.
func WithTick(d time.Duration) EngineOption {
	return func(e *Engine) { e.tick = d }
}

// Engine speaks one utterance at a time.
//
// Starting an utterance cancels the live one, waits one tick and then
// speaks. A newer Speak or a Cancel that arrives while a request is
// still waiting supersedes it. Speak never returns an error: failures
// are logged and reported as domain.SpeechFailed.
type Engine struct {
	backend Backend
	log     *logger.Logger
	table   *ScoreTable
	tick    time.Duration

	mu       sync.Mutex
	prosody  Prosody
	rateCaps map[string]float64
	voices   []domain.Voice
	loaded   bool
	gen      uint64
	live     *liveUtterance
}

type liveUtterance struct {
	gen    uint64
	text   string
	cancel context.CancelFunc
}

// NewEngine creates a speech engine over the given backend.
func NewEngine(backend Backend, log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		backend:  backend,
		log:      log,
		table:    DefaultScoreTable(),
		tick:     DefaultTick,
		prosody:  DefaultProsody,
		rateCaps: DefaultRateCaps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Speak says u.Text in u.Language with the best voice for u.Prefer.
func (e *Engine) Speak(ctx context.Context, u domain.Utterance) domain.SpeechOutcome {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return domain.SpeechSkipped
	}

	e.mu.Lock()
	e.gen++
	gen := e.gen
	prev := e.live
	e.live = nil
	e.mu.Unlock()

	if prev != nil {
		prev.cancel()
		e.log.Debug("speech: cancelled %q for a newer utterance", truncate(prev.text, 40))
	}

	if e.tick > 0 {
		t := time.NewTimer(e.tick)
		select {
		case <-ctx.Done():
			t.Stop()
			return domain.SpeechCancelled
		case <-t.C:
		}
	}

	voice, ok := e.voiceFor(ctx, u.Language, u.Prefer)
	if !ok {
		e.log.Warn("speech: no voice available for %q", u.Language)
		return domain.SpeechFailed
	}

	liveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return domain.SpeechCancelled
	}
	e.live = &liveUtterance{gen: gen, text: text, cancel: cancel}
	prosody := e.prosodyLocked(u.Language)
	e.mu.Unlock()

	u.Text = text
	u.Voice = &voice
	e.log.Debug("speech: speaking %q (voice=%s rate=%.2f)", truncate(text, 60), voice.Name, prosody.Rate)
	err := e.backend.Speak(liveCtx, u, prosody)

	cancelled := liveCtx.Err() != nil
	e.mu.Lock()
	if e.live != nil && e.live.gen == gen {
		e.live = nil
	}
	e.mu.Unlock()

	switch {
	case cancelled:
		return domain.SpeechCancelled
	case err != nil:
		e.log.Warn("speech: %v", err)
		return domain.SpeechFailed
	default:
		return domain.SpeechCompleted
	}
}

// Cancel stops the live utterance and any request still waiting to
// start. Idempotent.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.gen++
	prev := e.live
	e.live = nil
	e.mu.Unlock()

	if prev != nil {
		prev.cancel()
		e.log.Debug("speech: cancelled")
	}
}

// IsActive reports whether an utterance is being spoken.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live != nil
}

// SetProsody replaces the base prosody, e.g. after a config reload.
func (e *Engine) SetProsody(p Prosody, caps map[string]float64) {
	e.mu.Lock()
	e.prosody = p
	if caps != nil {
		e.rateCaps = caps
	}
	e.mu.Unlock()
}

// Prosody returns the prosody used for a language.
func (e *Engine) Prosody(lang string) Prosody {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prosodyLocked(lang)
}

func (e *Engine) prosodyLocked(lang string) Prosody {
	p := e.prosody
	if limit, ok := e.rateCaps[primaryTag(lang)]; ok && p.Rate > limit {
		p.Rate = limit
	}
	return p
}

// Voices returns the backend's voices, fetched once and cached. A failed
// fetch is retried on the next call.
func (e *Engine) Voices(ctx context.Context) ([]domain.Voice, error) {
	e.mu.Lock()
	if e.loaded {
		v := e.voices
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	voices, err := e.backend.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing voices: %w", err)
	}

	e.mu.Lock()
	e.voices = voices
	e.loaded = true
	e.mu.Unlock()
	e.log.Debug("speech: %d voices available", len(voices))
	return voices, nil
}

// Prefetcher is implemented by backends that can warm a cache.
type Prefetcher interface {
	Prefetch(ctx context.Context, u domain.Utterance, p Prosody)
}

// Prefetch warms the backend cache for lines that will be spoken soon,
// using the voice and prosody Speak would pick. Backends without a cache
// ignore it.
func (e *Engine) Prefetch(ctx context.Context, lang string, prefer domain.Gender, lines ...string) {
	pf, ok := e.backend.(Prefetcher)
	if !ok {
		return
	}
	voice, ok := e.voiceFor(ctx, lang, prefer)
	if !ok {
		return
	}
	p := e.Prosody(lang)
	for _, line := range lines {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		pf.Prefetch(ctx, domain.Utterance{Text: line, Language: lang, Prefer: prefer, Voice: &voice}, p)
	}
}

// Rank returns every voice scored for the language and preference.
func (e *Engine) Rank(ctx context.Context, lang string, prefer domain.Gender) ([]RankedVoice, error) {
	voices, err := e.Voices(ctx)
	if err != nil {
		return nil, err
	}
	return e.table.Rank(voices, lang, prefer), nil
}

func (e *Engine) voiceFor(ctx context.Context, lang string, prefer domain.Gender) (domain.Voice, bool) {
	voices, err := e.Voices(ctx)
	if err != nil {
		e.log.Warn("speech: %v", err)
		return domain.Voice{}, false
	}
	return e.table.Select(voices, lang, prefer)
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
