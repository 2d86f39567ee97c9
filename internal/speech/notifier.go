package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*SpeakingNotifier)(nil)

// SpeakingNotifier wraps a text notifier and also reads urgent messages
// aloud, since the child may not be looking at the text. Normal
// notifications are printed only, so they never cut into a performance.
type SpeakingNotifier struct {
	text     domain.Notifier
	engine   *Engine
	language string
	log      *logger.Logger
}

// NewSpeakingNotifier creates a notifier that prints and speaks.
func NewSpeakingNotifier(text domain.Notifier, engine *Engine, language string, log *logger.Logger) *SpeakingNotifier {
	return &SpeakingNotifier{
		text:     text,
		engine:   engine,
		language: language,
		log:      log,
	}
}

// Notify prints the message.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	return n.text.Notify(ctx, message)
}

// NotifyUrgent prints the message and speaks it in the background.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	line := cleanForSpeech(message)
	go func() {
		outcome := n.engine.Speak(context.WithoutCancel(ctx), domain.Utterance{
			Text:     line,
			Language: n.language,
			Prefer:   domain.GenderFemale,
		})
		n.log.Debug("notifier: spoke urgent message (%s)", outcome)
	}()
	return nil
}

var (
	bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
	ansiCodes     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// cleanForSpeech strips formatting artifacts that shouldn't be spoken.
func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
