package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// blockingBackend speaks until cancelled or released and records how
// many utterances were ever live at once.
type blockingBackend struct {
	mu       sync.Mutex
	spoken   []domain.Utterance
	prosody  []Prosody
	live     atomic.Int32
	maxLive  atomic.Int32
	release  chan struct{}
	fail     error
	voices   []domain.Voice
	voiceErr error
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{
		release: make(chan struct{}),
		voices: []domain.Voice{
			{Name: "Aria Neural", ID: "en-aria", Language: "en-US", Gender: domain.GenderFemale},
			{Name: "Madhur Neural", ID: "hi-madhur", Language: "hi-IN", Gender: domain.GenderMale},
		},
	}
}

func (b *blockingBackend) Voices(ctx context.Context) ([]domain.Voice, error) {
	return b.voices, b.voiceErr
}

func (b *blockingBackend) Speak(ctx context.Context, u domain.Utterance, p Prosody) error {
	n := b.live.Add(1)
	defer b.live.Add(-1)
	for {
		m := b.maxLive.Load()
		if n <= m || b.maxLive.CompareAndSwap(m, n) {
			break
		}
	}

	b.mu.Lock()
	b.spoken = append(b.spoken, u)
	b.prosody = append(b.prosody, p)
	b.mu.Unlock()

	if b.fail != nil {
		return b.fail
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.release:
		return nil
	}
}

func (b *blockingBackend) spokenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.spoken)
}

func newTestEngine(b Backend) *Engine {
	return NewEngine(b, logger.New(logger.LevelOff, nil), WithTick(5*time.Millisecond))
}

func TestEngineSingleUtterance(t *testing.T) {
	b := newBlockingBackend()
	e := newTestEngine(b)
	ctx := context.Background()

	first := make(chan domain.SpeechOutcome, 1)
	go func() { first <- e.Speak(ctx, domain.Utterance{Text: "one", Language: "en-US"}) }()
	require.Eventually(t, func() bool { return b.spokenCount() == 1 }, time.Second, time.Millisecond)
	assert.True(t, e.IsActive())

	second := make(chan domain.SpeechOutcome, 1)
	go func() { second <- e.Speak(ctx, domain.Utterance{Text: "two", Language: "en-US"}) }()

	assert.Equal(t, domain.SpeechCancelled, <-first)
	require.Eventually(t, func() bool { return b.spokenCount() == 2 }, time.Second, time.Millisecond)

	close(b.release)
	assert.Equal(t, domain.SpeechCompleted, <-second)
	assert.Equal(t, int32(1), b.maxLive.Load())
	assert.False(t, e.IsActive())
}

func TestEngineCancelSupersedesWaitingRequest(t *testing.T) {
	b := newBlockingBackend()
	e := NewEngine(b, logger.New(logger.LevelOff, nil), WithTick(50*time.Millisecond))

	done := make(chan domain.SpeechOutcome, 1)
	go func() { done <- e.Speak(context.Background(), domain.Utterance{Text: "hello"}) }()
	time.Sleep(10 * time.Millisecond)
	e.Cancel()

	assert.Equal(t, domain.SpeechCancelled, <-done)
	assert.Equal(t, 0, b.spokenCount())
}

func TestEngineCancelIsIdempotent(t *testing.T) {
	e := newTestEngine(newBlockingBackend())
	e.Cancel()
	e.Cancel()
	assert.False(t, e.IsActive())
}

func TestEngineFailuresResolve(t *testing.T) {
	b := newBlockingBackend()
	b.fail = errors.New("synthesis exploded")
	e := newTestEngine(b)

	assert.Equal(t, domain.SpeechFailed, e.Speak(context.Background(), domain.Utterance{Text: "hi"}))
	assert.False(t, e.IsActive())
}

func TestEngineNoVoiceResolves(t *testing.T) {
	b := newBlockingBackend()
	b.voices = nil
	e := newTestEngine(b)

	assert.Equal(t, domain.SpeechFailed, e.Speak(context.Background(), domain.Utterance{Text: "hi"}))
	assert.Equal(t, 0, b.spokenCount())
}

func TestEngineVoiceListErrorIsRetried(t *testing.T) {
	b := newBlockingBackend()
	b.voiceErr = errors.New("401")
	e := newTestEngine(b)

	assert.Equal(t, domain.SpeechFailed, e.Speak(context.Background(), domain.Utterance{Text: "hi"}))

	b.voiceErr = nil
	close(b.release)
	assert.Equal(t, domain.SpeechCompleted, e.Speak(context.Background(), domain.Utterance{Text: "hi"}))
}

func TestEngineSkipsBlankText(t *testing.T) {
	b := newBlockingBackend()
	e := newTestEngine(b)
	assert.Equal(t, domain.SpeechSkipped, e.Speak(context.Background(), domain.Utterance{Text: "   "}))
	assert.Equal(t, 0, b.spokenCount())
}

func TestEnginePicksVoiceAndCapsRate(t *testing.T) {
	b := newBlockingBackend()
	close(b.release)
	e := newTestEngine(b)

	out := e.Speak(context.Background(), domain.Utterance{Text: " नमस्ते ", Language: "hi-IN", Prefer: domain.GenderMale})
	require.Equal(t, domain.SpeechCompleted, out)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotNil(t, b.spoken[0].Voice)
	assert.Equal(t, "hi-madhur", b.spoken[0].Voice.ID)
	assert.Equal(t, "नमस्ते", b.spoken[0].Text)
	assert.Equal(t, 0.90, b.prosody[0].Rate)
}

func TestEngineProsodyUncappedLanguage(t *testing.T) {
	e := newTestEngine(newBlockingBackend())
	assert.Equal(t, DefaultProsody.Rate, e.Prosody("en-IN").Rate)

	e.SetProsody(Prosody{Rate: 1.2, Pitch: 1, Volume: 1}, map[string]float64{"en": 1.0})
	assert.Equal(t, 1.0, e.Prosody("en-IN").Rate)
}

func TestEngineParentCancelIsNotFailure(t *testing.T) {
	b := newBlockingBackend()
	e := newTestEngine(b)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan domain.SpeechOutcome, 1)
	go func() { done <- e.Speak(ctx, domain.Utterance{Text: "bye"}) }()
	require.Eventually(t, func() bool { return b.spokenCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	assert.Equal(t, domain.SpeechCancelled, <-done)
}

type prefetchBackend struct {
	*blockingBackend
	mu      sync.Mutex
	fetched []domain.Utterance
	prosody []Prosody
}

func (b *prefetchBackend) Prefetch(ctx context.Context, u domain.Utterance, p Prosody) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetched = append(b.fetched, u)
	b.prosody = append(b.prosody, p)
}

func TestEnginePrefetchUsesSpeakVoice(t *testing.T) {
	b := &prefetchBackend{blockingBackend: newBlockingBackend()}
	e := newTestEngine(b)

	e.Prefetch(context.Background(), "hi-IN", domain.GenderMale, "Hmm, let me think", "  ", "One moment")

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.fetched, 2)
	assert.Equal(t, "Hmm, let me think", b.fetched[0].Text)
	require.NotNil(t, b.fetched[0].Voice)
	assert.Equal(t, "hi-madhur", b.fetched[0].Voice.ID)
	assert.Equal(t, e.Prosody("hi-IN"), b.prosody[0])
}

func TestEnginePrefetchWithoutCacheIsNoop(t *testing.T) {
	b := newBlockingBackend()
	e := newTestEngine(b)
	e.Prefetch(context.Background(), "en-US", domain.GenderFemale, "Hello")
	assert.Equal(t, 0, b.spokenCount())
}
