package domain

import "time"

// Character is the animated speaker of a scene.
type Character string

const (
	CharacterBoy  Character = "boy"
	CharacterGirl Character = "girl"
)

// ParseCharacter maps a backend label to a Character, defaulting to girl.
func ParseCharacter(s string) Character {
	if Character(s) == CharacterBoy {
		return CharacterBoy
	}
	return CharacterGirl
}

// VoicePreference returns the voice gender that suits the character.
func (c Character) VoicePreference() Gender {
	if c == CharacterBoy {
		return GenderMale
	}
	return GenderFemale
}

// Scene is one unit of the scripted performance. Scenes are immutable
// once decoded from the answer payload.
type Scene struct {
	ID        int
	Character Character
	Action    string // animation name, "neutral" when absent
	Loop      bool
	Dialogue  string
}

// PlaybackState is the "now playing" view owned by the sequencer.
type PlaybackState struct {
	CurrentIndex int
	Active       bool
	Speaking     bool
	Subtitle     string
	LastScenes   []Scene
}

// Speaker identifies who wrote a chat entry.
type Speaker int

const (
	SpeakerChild Speaker = iota
	SpeakerAI
)

// String returns a human-readable speaker.
func (s Speaker) String() string {
	if s == SpeakerAI {
		return "ai"
	}
	return "child"
}

// ChatEntry is one message in the conversation history.
type ChatEntry struct {
	ID      string
	Speaker Speaker
	Text    string
	At      time.Time
}
