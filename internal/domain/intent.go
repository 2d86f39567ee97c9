package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentAsk                // free-form question sent to the answer service
	IntentListen             // start voice capture
	IntentDone               // stop voice capture and send it
	IntentStop               // stop everything
	IntentReplay             // replay the last answer
	IntentFullscreen         // manual fullscreen toggle
	IntentNormal             // leave fullscreen
	IntentHistory            // print the chat history
	IntentPresets            // list preset videos
	IntentLanguage           // switch the question language
	IntentCharacter          // switch the character
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentAsk:
		return "ask"
	case IntentListen:
		return "listen"
	case IntentDone:
		return "done"
	case IntentStop:
		return "stop"
	case IntentReplay:
		return "replay"
	case IntentFullscreen:
		return "fullscreen"
	case IntentNormal:
		return "normal"
	case IntentHistory:
		return "history"
	case IntentPresets:
		return "presets"
	case IntentLanguage:
		return "language"
	case IntentCharacter:
		return "character"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // question text, language tag or character name
}
