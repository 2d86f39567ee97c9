package speech

import (
	"context"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

var _ Backend = (*Silent)(nil)

// silentVoices stand in for a real voice list so scoring still runs.
var silentVoices = []domain.Voice{
	{Name: "Silent English (Natural)", ID: "silent-en-female", Language: "en-IN", Gender: domain.GenderFemale},
	{Name: "Silent English (Natural)", ID: "silent-en-male", Language: "en-IN", Gender: domain.GenderMale},
	{Name: "Silent Hindi (Natural)", ID: "silent-hi-female", Language: "hi-IN", Gender: domain.GenderFemale},
	{Name: "Silent Hindi (Natural)", ID: "silent-hi-male", Language: "hi-IN", Gender: domain.GenderMale},
}

// Silent is a backend that plays nothing but takes as long as the line
// would take to say. Used when no TTS credentials or audio device are
// available, so subtitles still advance at a readable pace.
type Silent struct {
	log *logger.Logger
}

// NewSilent creates a silent backend.
func NewSilent(log *logger.Logger) *Silent {
	return &Silent{log: log}
}

// Voices returns the placeholder voice list.
func (s *Silent) Voices(ctx context.Context) ([]domain.Voice, error) {
	out := make([]domain.Voice, len(silentVoices))
	copy(out, silentVoices)
	return out, nil
}

// Speak waits for the estimated reading time of the line.
func (s *Silent) Speak(ctx context.Context, u domain.Utterance, p Prosody) error {
	d := ReadingTime(u.Text, p.Rate)
	s.log.Debug("speech silent: %q for %s", truncate(u.Text, 40), d)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
