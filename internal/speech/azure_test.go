package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

func TestAzureVoicesAndSynthesize(t *testing.T) {
	var gotSSML string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		switch r.URL.Path {
		case "/cognitiveservices/voices/list":
			io.WriteString(w, `[{"DisplayName":"Swara","ShortName":"hi-IN-SwaraNeural","Gender":"Female","Locale":"hi-IN","VoiceType":"Neural"}]`)
		case "/cognitiveservices/v1":
			assert.Equal(t, "application/ssml+xml", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			gotSSML = string(body)
			w.Write([]byte("RIFF-audio"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAzureClient("secret", "centralindia", logger.New(logger.LevelOff, nil), WithBaseURL(srv.URL))

	voices, err := c.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, domain.Voice{Name: "Swara (Neural)", ID: "hi-IN-SwaraNeural", Language: "hi-IN", Gender: domain.GenderFemale}, voices[0])

	audio, err := c.Synthesize(context.Background(), SynthesisRequest{
		Text:     "Sun & Moon <3",
		VoiceID:  "hi-IN-SwaraNeural",
		Language: "hi-IN",
		Prosody:  Prosody{Rate: 0.9, Pitch: 1.05, Volume: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "RIFF-audio", string(audio))
	assert.Contains(t, gotSSML, "name='hi-IN-SwaraNeural'")
	assert.Contains(t, gotSSML, "rate='0.90'")
	assert.Contains(t, gotSSML, "pitch='+5%'")
	assert.Contains(t, gotSSML, "Sun &amp; Moon &lt;3")
}

func TestAzureErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewAzureClient("k", "r", logger.New(logger.LevelOff, nil), WithBaseURL(srv.URL))
	_, err := c.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

type fakeSynth struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSynth) Voices(ctx context.Context) ([]domain.Voice, error) { return nil, nil }

func (f *fakeSynth) Synthesize(ctx context.Context, r SynthesisRequest) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return []byte("wav:" + r.Text), nil
}

type recordingSink struct {
	mu     sync.Mutex
	played []string
}

func (s *recordingSink) Play(ctx context.Context, wav []byte) error {
	s.mu.Lock()
	s.played = append(s.played, string(wav))
	s.mu.Unlock()
	return nil
}

func TestAzureSpeakerPlaysChunksInOrderAndCaches(t *testing.T) {
	synth := &fakeSynth{}
	sink := &recordingSink{}
	sp := NewAzureSpeaker(synth, sink, logger.New(logger.LevelOff, nil), WithChunkSize(20))

	u := domain.Utterance{
		Text:  "The sun is a star. It is very hot! Plants love it.",
		Voice: &domain.Voice{ID: "en-aria"},
	}
	require.NoError(t, sp.Speak(context.Background(), u, DefaultProsody))
	require.NoError(t, sp.Speak(context.Background(), u, DefaultProsody))

	assert.Equal(t, []string{
		"wav:The sun is a star.",
		"wav:It is very hot!",
		"wav:Plants love it.",
		"wav:The sun is a star.",
		"wav:It is very hot!",
		"wav:Plants love it.",
	}, sink.played)
	assert.Equal(t, 3, synth.calls, "second run is served from cache")
}

func TestSplitSentencesHandlesDanda(t *testing.T) {
	got := splitSentences("सूरज एक तारा है। वह गरम है।")
	require.Len(t, got, 2)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got[0]), "।"))
}

func TestAudioCacheEvictsAndReadsDisk(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(logger.LevelOff, nil)
	c := NewAudioCache(dir, true, 2, log)

	k := func(s string) CacheKey { return CacheKey{VoiceID: "v", Prosody: DefaultProsody, Text: s} }
	c.Put(k("a"), []byte("A"))
	c.Put(k("b"), []byte("B"))
	c.Put(k("c"), []byte("C"))
	assert.Equal(t, 2, c.Len())

	// "a" was evicted from memory but is still on disk.
	data, ok := c.Get(k("a"))
	require.True(t, ok)
	assert.Equal(t, "A", string(data))

	other := CacheKey{VoiceID: "v", Prosody: Prosody{Rate: 0.8, Pitch: 1, Volume: 1}, Text: "a"}
	_, ok = c.Get(other)
	assert.False(t, ok, "prosody is part of the key")

	fresh := NewAudioCache(dir, false, 0, log)
	assert.True(t, fresh.Has(k("b")))
}

func TestReadingTimeFloorAndRate(t *testing.T) {
	assert.Equal(t, 1200*time.Millisecond, ReadingTime("hi", 1))
	slow := ReadingTime("one two three four five six seven eight", 0.5)
	fast := ReadingTime("one two three four five six seven eight", 1)
	assert.Greater(t, slow, fast)
}
