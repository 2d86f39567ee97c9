package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

type recordingSpeaker struct {
	mu      sync.Mutex
	said    []domain.Utterance
	onSpeak func(n int)
}

func (r *recordingSpeaker) Speak(ctx context.Context, u domain.Utterance) domain.SpeechOutcome {
	r.mu.Lock()
	r.said = append(r.said, u)
	n := len(r.said)
	hook := r.onSpeak
	r.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if ctx.Err() != nil {
		return domain.SpeechCancelled
	}
	return domain.SpeechCompleted
}

func (r *recordingSpeaker) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.said))
	for i, u := range r.said {
		out[i] = u.Text
	}
	return out
}

type chatStub struct {
	mu      sync.Mutex
	entries []domain.ChatEntry
}

func (c *chatStub) Append(_ context.Context, e domain.ChatEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *chatStub) List(context.Context) ([]domain.ChatEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatEntry(nil), c.entries...), nil
}

func (c *chatStub) LastFrom(context.Context, domain.Speaker) (domain.ChatEntry, error) {
	return domain.ChatEntry{}, domain.ErrNotFound
}

func (c *chatStub) Clear(context.Context) error { return nil }

func scenes(lines ...string) []domain.Scene {
	out := make([]domain.Scene, len(lines))
	for i, l := range lines {
		out[i] = domain.Scene{ID: i + 1, Character: domain.CharacterGirl, Action: "talk", Dialogue: l}
	}
	return out
}

func newTestSequencer(sp Speaker, chat domain.ChatLog, opts ...Option) *Sequencer {
	opts = append([]Option{WithScenePause(0)}, opts...)
	return New(sp, chat, logger.New(logger.LevelOff, nil), opts...)
}

func TestUniqueLinesFoldsCaseAndSpace(t *testing.T) {
	got := UniqueLines(scenes("Hello", "hello ", "  HELLO", "World", "", "   ", "world  "))
	assert.Equal(t, []string{"Hello", "World"}, got)
}

func TestUniqueLinesConcurrent(t *testing.T) {
	sc := scenes("Straße", "STRASSE", "Ünïcode", "ünïcode  ", "Rain falls")
	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = UniqueLines(sc)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, []string{"Straße", "Ünïcode", "Rain falls"}, got)
	}
}

func TestChatTextJoinsWithBlankLine(t *testing.T) {
	assert.Equal(t, "Hi there\n\nThe sun is hot", ChatText(scenes("Hi there", "hi  THERE", "The sun is hot")))
	assert.Empty(t, ChatText(scenes("", " ")))
}

func TestPlaySpeaksEachUniqueLineOnce(t *testing.T) {
	sp := &recordingSpeaker{}
	chat := &chatStub{}
	seq := newTestSequencer(sp, chat)

	report, err := seq.Play(context.Background(), scenes("Hello", "hello ", "World"), RunOptions{Language: "en", EmitChat: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", "World"}, sp.texts())
	assert.Equal(t, 2, report.Spoken)
	assert.Equal(t, 2, report.Shown)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.Halted)

	entries, _ := chat.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SpeakerAI, entries[0].Speaker)
	assert.Equal(t, "Hello\n\nWorld", entries[0].Text)

	st := seq.State()
	assert.False(t, st.Active)
	assert.False(t, st.Speaking)
	assert.Len(t, st.LastScenes, 3)
}

func TestPlayUsesCharacterVoicePreference(t *testing.T) {
	sp := &recordingSpeaker{}
	seq := newTestSequencer(sp, nil)

	sc := scenes("I am a boy")
	sc[0].Character = domain.CharacterBoy
	_, err := seq.Play(context.Background(), sc, RunOptions{Language: "hi"})
	require.NoError(t, err)

	require.Len(t, sp.said, 1)
	assert.Equal(t, domain.GenderMale, sp.said[0].Prefer)
	assert.Equal(t, "hi", sp.said[0].Language)
}

func TestPlayEmptyReturnsErrNoScenes(t *testing.T) {
	seq := newTestSequencer(&recordingSpeaker{}, nil)
	_, err := seq.Play(context.Background(), nil, RunOptions{})
	assert.ErrorIs(t, err, domain.ErrNoScenes)
}

func TestHaltStopsBeforeNextScene(t *testing.T) {
	sp := &recordingSpeaker{}
	seq := newTestSequencer(sp, nil)
	sp.onSpeak = func(n int) {
		if n == 1 {
			seq.Halt()
		}
	}

	report, err := seq.Play(context.Background(), scenes("one", "two", "three"), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"one"}, sp.texts())
	assert.True(t, report.Halted)

	st := seq.State()
	assert.False(t, st.Active)
	assert.False(t, st.Speaking)
	assert.Equal(t, "one", st.Subtitle)
	assert.Len(t, seq.LastScenes(), 3)
}

func TestHaltCheckStopsRun(t *testing.T) {
	sp := &recordingSpeaker{}
	var stop bool
	seq := newTestSequencer(sp, nil, WithHaltCheck(func() bool { return stop }))
	sp.onSpeak = func(int) { stop = true }

	report, err := seq.Play(context.Background(), scenes("one", "two"), RunOptions{})
	require.NoError(t, err)
	assert.True(t, report.Halted)
	assert.Equal(t, []string{"one"}, sp.texts())
}

func TestCancelledContextHaltsDuringPause(t *testing.T) {
	sp := &recordingSpeaker{}
	seq := New(sp, nil, logger.New(logger.LevelOff, nil), WithScenePause(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	sp.onSpeak = func(int) { cancel() }

	done := make(chan Report, 1)
	go func() {
		r, _ := seq.Play(ctx, scenes("one", "two"), RunOptions{})
		done <- r
	}()

	select {
	case r := <-done:
		assert.True(t, r.Halted)
		assert.Equal(t, 1, r.Shown)
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return after cancel")
	}
}

func TestCancelledBeforeStartLeavesStateAlone(t *testing.T) {
	sp := &recordingSpeaker{}
	chat := &chatStub{}
	var notified int
	seq := newTestSequencer(sp, chat, WithObserver(func(domain.PlaybackState) { notified++ }))

	_, err := seq.Play(context.Background(), scenes("first answer"), RunOptions{EmitChat: true})
	require.NoError(t, err)
	before := notified

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := seq.Play(ctx, scenes("answer to the abandoned question"), RunOptions{EmitChat: true})
	require.NoError(t, err)
	assert.True(t, report.Halted)
	assert.Zero(t, report.Shown)

	entries, _ := chat.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "first answer", entries[0].Text)
	assert.Equal(t, before, notified)
	assert.Equal(t, []string{"first answer"}, sp.texts())

	last := seq.LastScenes()
	require.Len(t, last, 1)
	assert.Equal(t, "first answer", last[0].Dialogue)
	assert.False(t, seq.State().Active)
}

func TestHaltCheckSetBeforeStartSkipsRun(t *testing.T) {
	chat := &chatStub{}
	seq := newTestSequencer(&recordingSpeaker{}, chat, WithHaltCheck(func() bool { return true }))

	report, err := seq.Play(context.Background(), scenes("stale"), RunOptions{EmitChat: true})
	require.NoError(t, err)
	assert.True(t, report.Halted)

	entries, _ := chat.List(context.Background())
	assert.Empty(t, entries)
	assert.Empty(t, seq.LastScenes())
}

func TestSuppressedAdvancesSubtitlesWithoutSpeaking(t *testing.T) {
	sp := &recordingSpeaker{}
	var mu sync.Mutex
	var subtitles []string
	seq := newTestSequencer(sp, nil, WithObserver(func(st domain.PlaybackState) {
		mu.Lock()
		defer mu.Unlock()
		if st.Speaking {
			subtitles = append(subtitles, st.Subtitle)
		}
	}))
	seq.sleep = func(ctx context.Context, d time.Duration) bool { return ctx.Err() == nil }

	report, err := seq.Play(context.Background(), scenes("Lava is hot", "Rocks melt"), RunOptions{Suppressed: true})
	require.NoError(t, err)

	assert.Empty(t, sp.texts())
	assert.Equal(t, 0, report.Spoken)
	assert.Equal(t, 2, report.Shown)
	assert.Equal(t, []string{"Lava is hot", "Rocks melt"}, subtitles)
}

func TestNewRunInvalidatesOldRun(t *testing.T) {
	release := make(chan struct{})
	first := &recordingSpeaker{}
	seq := newTestSequencer(first, nil)
	first.onSpeak = func(n int) {
		if n == 1 {
			<-release
		}
	}

	oldDone := make(chan Report, 1)
	go func() {
		r, _ := seq.Play(context.Background(), scenes("old one", "old two"), RunOptions{})
		oldDone <- r
	}()

	require.Eventually(t, func() bool { return len(first.texts()) == 1 }, time.Second, time.Millisecond)

	// Halt then a fresh run; the old run must not touch the new state.
	seq.Halt()
	close(release)
	old := <-oldDone
	assert.True(t, old.Halted)

	second := &recordingSpeaker{}
	seq.speaker = second
	_, err := seq.Play(context.Background(), scenes("new"), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"new"}, second.texts())
	assert.Equal(t, "new", seq.State().Subtitle)
	assert.Equal(t, "new", seq.LastScenes()[0].Dialogue)
}
