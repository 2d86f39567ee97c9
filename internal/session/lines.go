package session

import (
	"errors"
	"math/rand"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// Every string the stage says or prints to the child lives here. Keep
// lines short and friendly; the speech engine handles inflection.

// ── Greeting / Global ────────────────────────────────────────────

func LineWelcome() string {
	return "Hi! Ask me anything, and we'll act it out together."
}

func LineBye() string {
	return "Bye bye! Come back with more questions."
}

func LineStopped() string {
	return "Okay, stopping."
}

func LineNothingToReplay() string {
	return "There's nothing to replay yet. Ask me something first!"
}

func LineReplayBusy() string {
	return "Hold on, I'm still busy."
}

func LineUnknown(input string) string {
	return "I didn't understand \"" + input + "\". Type help to see what I can do."
}

// ── Capture ──────────────────────────────────────────────────────

var listeningLines = []string{
	"I'm listening!",
	"Go ahead, I'm all ears.",
	"Yes? Ask away.",
	"Listening...",
}

// LineListening returns a random acknowledgment for when capture starts.
func LineListening() string {
	return listeningLines[rand.Intn(len(listeningLines))]
}

func LineMicUnavailable() string {
	return "I can't hear you. Is the microphone plugged in? You can type your question instead."
}

func LineDidNotHear() string {
	return "I didn't hear anything. Try again?"
}

// ── Thinking ─────────────────────────────────────────────────────

var thinkingLines = []string{
	"Ooh, good question! Let me think.",
	"Hmm, let me get the stage ready.",
	"Thinking caps on!",
	"One moment, the actors are getting ready.",
	"Great question. Give me a second.",
}

// LineThinking returns a random filler for while the answer is on its way.
func LineThinking() string {
	return thinkingLines[rand.Intn(len(thinkingLines))]
}

// Fillers returns every randomized line so they can be prefetched into
// the speech cache at startup.
func Fillers() []string {
	out := make([]string, 0, len(listeningLines)+len(thinkingLines))
	out = append(out, listeningLines...)
	out = append(out, thinkingLines...)
	return out
}

// ── Answer ───────────────────────────────────────────────────────

// LineAnswerError maps a failed request to something a child can act on.
func LineAnswerError(err error) string {
	if errors.Is(err, domain.ErrBackendUnreachable) {
		return "I can't reach my brain right now. Please check the internet and try again."
	}
	return "Oops, something went wrong. Can you ask again?"
}

func LineNoPerformance() string {
	return "I don't have a show for that one. Try asking another way!"
}

func LinePreset(title string) string {
	return "Let's watch: " + title + "."
}

// ── Stage ────────────────────────────────────────────────────────

func LineCameraUnavailable() string {
	return "I can't see the camera, so hand waves won't work right now. Keys still do!"
}

func LineLanguage(tag string) string {
	return "Okay! Ask your next question in " + tag + "."
}

func LineCharacter(ch domain.Character) string {
	return "The " + string(ch) + " will answer next."
}
