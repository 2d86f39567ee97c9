package domain

// Gender is a voice gender preference.
type Gender int

const (
	GenderAny Gender = iota
	GenderFemale
	GenderMale
)

// String returns a human-readable gender.
func (g Gender) String() string {
	switch g {
	case GenderFemale:
		return "female"
	case GenderMale:
		return "male"
	default:
		return "any"
	}
}

// ParseGender maps a config string to a Gender.
func ParseGender(s string) Gender {
	switch s {
	case "female", "f", "girl":
		return GenderFemale
	case "male", "m", "boy":
		return GenderMale
	default:
		return GenderAny
	}
}

// Voice is a synthesizer voice as reported by the speech backend.
type Voice struct {
	Name     string // display or short name, e.g. "Microsoft Swara Online (Natural)"
	ID       string // backend identifier used for synthesis
	Language string // BCP-47 tag, e.g. "hi-IN"
	Gender   Gender // as reported, GenderAny when unknown
}

// Utterance is one request to speak. Voice is filled in by the speech
// engine after scoring.
type Utterance struct {
	Text     string
	Language string
	Prefer   Gender
	Voice    *Voice
}

// SpeechOutcome reports how an utterance ended. Speaking never fails
// loudly: errors are logged and reported as SpeechFailed.
type SpeechOutcome int

const (
	SpeechCompleted SpeechOutcome = iota
	SpeechCancelled
	SpeechFailed
	SpeechSkipped
)

// String returns a human-readable outcome.
func (o SpeechOutcome) String() string {
	switch o {
	case SpeechCompleted:
		return "completed"
	case SpeechCancelled:
		return "cancelled"
	case SpeechFailed:
		return "failed"
	default:
		return "skipped"
	}
}
