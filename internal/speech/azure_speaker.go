package speech

import (
	"context"
	"strings"
	"unicode"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Voices(ctx context.Context) ([]domain.Voice, error)
	Synthesize(ctx context.Context, r SynthesisRequest) ([]byte, error)
}

// AudioSink plays WAV audio, blocking until done or ctx is cancelled.
type AudioSink interface {
	Play(ctx context.Context, wav []byte) error
}

var (
	_ Synthesizer = (*AzureClient)(nil)
	_ AudioSink   = (*Player)(nil)
	_ Backend     = (*AzureSpeaker)(nil)
)

// SpeakerOption configures the AzureSpeaker.
type SpeakerOption func(*AzureSpeaker)

// WithChunkSize sets the approximate character count per synthesis
// chunk. Long lines are split on sentence boundaries and synthesized in
// parallel. Zero disables chunking.
func WithChunkSize(n int) SpeakerOption {
	return func(s *AzureSpeaker) { s.chunkSize = n }
}

// WithCache sets the audio cache.
func WithCache(c *AudioCache) SpeakerOption {
	return func(s *AzureSpeaker) { s.cache = c }
}

// AzureSpeaker is the Backend that synthesizes through Azure and plays on
// the local audio device.
type AzureSpeaker struct {
	tts       Synthesizer
	sink      AudioSink
	cache     *AudioCache
	log       *logger.Logger
	chunkSize int
}

// NewAzureSpeaker creates a speaking backend.
func NewAzureSpeaker(tts Synthesizer, sink AudioSink, log *logger.Logger, opts ...SpeakerOption) *AzureSpeaker {
	s := &AzureSpeaker{
		tts:       tts,
		sink:      sink,
		log:       log,
		chunkSize: 160,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewAudioCache("", false, 256, log)
	}
	return s
}

// Voices lists the synthesizer's voices.
func (s *AzureSpeaker) Voices(ctx context.Context) ([]domain.Voice, error) {
	return s.tts.Voices(ctx)
}

// Speak synthesizes the utterance (in parallel chunks for long text) and
// plays the chunks in order. A failed chunk is skipped; the error of the
// first failure is returned after the rest played.
func (s *AzureSpeaker) Speak(ctx context.Context, u domain.Utterance, p Prosody) error {
	chunks := splitChunks(u.Text, s.chunkSize)

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))
	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := s.synthesize(ctx, s.key(u, p, text), u.Language)
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	slots := make([][]byte, len(chunks))
	var firstErr error
	for range chunks {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			s.log.Debug("speaker: chunk %d synthesis failed: %v", r.idx, r.err)
			continue
		}
		slots[r.idx] = r.audio
	}

	for i, audio := range slots {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if audio == nil {
			continue
		}
		if err := s.sink.Play(ctx, audio); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Debug("speaker: chunk %d playback failed: %v", i, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Prefetch warms the cache for lines that will be spoken soon.
// Non-blocking.
func (s *AzureSpeaker) Prefetch(ctx context.Context, u domain.Utterance, p Prosody) {
	for _, chunk := range splitChunks(u.Text, s.chunkSize) {
		k := s.key(u, p, chunk)
		if s.cache.Has(k) {
			continue
		}
		go func(k CacheKey) {
			if _, err := s.synthesize(ctx, k, u.Language); err != nil {
				s.log.Debug("prefetch: synthesis failed: %v", err)
			}
		}(k)
	}
}

func (s *AzureSpeaker) key(u domain.Utterance, p Prosody, text string) CacheKey {
	voice := ""
	if u.Voice != nil {
		voice = u.Voice.ID
	}
	return CacheKey{VoiceID: voice, Prosody: p, Text: text}
}

func (s *AzureSpeaker) synthesize(ctx context.Context, k CacheKey, lang string) ([]byte, error) {
	if audio, ok := s.cache.Get(k); ok {
		return audio, nil
	}
	audio, err := s.tts.Synthesize(ctx, SynthesisRequest{
		Text:     k.Text,
		VoiceID:  k.VoiceID,
		Language: lang,
		Prosody:  k.Prosody,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Put(k, audio)
	return audio, nil
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// size characters. Short text, or size <= 0, yields a single chunk.
func splitChunks(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, s := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(s) > size {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits text after sentence-ending punctuation, keeping
// the punctuation with its sentence. The Devanagari danda counts as an
// ending too.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '।'
}
