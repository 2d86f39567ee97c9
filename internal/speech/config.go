// Package speech speaks dialogue lines through a pluggable backend.
//
// The [Engine] keeps at most one utterance alive, picks a voice with a
// [ScoreTable], and applies per-language prosody. Backends are the Azure
// neural TTS service played through oto ([AzureSpeaker]) and a [Silent]
// backend that only paces utterances.
package speech

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Fallback voice when the voice list cannot be fetched.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "en-US-AvaNeural"

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// DefaultTick is the pause between cancelling the live utterance and
// starting the next one, so the backend settles the cancel first.
const DefaultTick = 30 * time.Millisecond

// Prosody is the delivery of an utterance. 1.0 is neutral for every
// field.
type Prosody struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// DefaultProsody is slightly slow and bright, which suits children.
var DefaultProsody = Prosody{Rate: 0.95, Pitch: 1.05, Volume: 1.0}

// DefaultRateCaps caps the speaking rate for languages whose voices
// sound rushed at the default rate. Keys are primary language subtags.
var DefaultRateCaps = map[string]float64{
	"hi": 0.90,
	"bn": 0.88,
	"ta": 0.88,
	"te": 0.88,
}

// primaryTag returns the lower-cased primary subtag of a BCP-47 tag:
// "hi-IN" -> "hi".
func primaryTag(lang string) string {
	lang = normalizeTag(lang)
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		return lang[:i]
	}
	return lang
}

// normalizeTag lower-cases a language tag and uses '-' as separator.
func normalizeTag(lang string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
}

// ReadingTime estimates how long a line takes to say at the given rate.
// Used to pace subtitles when nothing is actually spoken.
func ReadingTime(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	// Scripts without spaces still need time proportional to length.
	if chars := utf8.RuneCountInString(text) / 6; chars > words {
		words = chars
	}
	d := time.Duration(float64(words) * float64(380*time.Millisecond) / rate)
	if d < 1200*time.Millisecond {
		d = 1200 * time.Millisecond
	}
	return d
}
