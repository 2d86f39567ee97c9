package conversation

import (
	"context"
	"testing"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

func TestKeywordParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewKeywordParser(log)
	ctx := context.Background()

	tests := []struct {
		input       string
		wantType    domain.IntentType
		wantPayload string
	}{
		// Capture
		{"listen", domain.IntentListen, ""},
		{"/mic", domain.IntentListen, ""},
		{"done", domain.IntentDone, ""},

		// Stop / Replay
		{"stop", domain.IntentStop, ""},
		{"shhh", domain.IntentStop, ""},
		{"replay", domain.IntentReplay, ""},
		{"Again", domain.IntentReplay, ""},
		{"/r", domain.IntentReplay, ""},

		// Stage
		{"fullscreen", domain.IntentFullscreen, ""},
		{"big", domain.IntentFullscreen, ""},
		{"esc", domain.IntentNormal, ""},
		{"exit fullscreen", domain.IntentNormal, ""},

		// Info
		{"history", domain.IntentHistory, ""},
		{"videos", domain.IntentPresets, ""},
		{"help", domain.IntentHelp, ""},
		{"?", domain.IntentHelp, ""},

		// Settings
		{"language hindi", domain.IntentLanguage, "hi"},
		{"lang te", domain.IntentLanguage, "te"},
		{"/lang en-GB", domain.IntentLanguage, "en-gb"},
		{"lang", domain.IntentLanguage, ""},
		{"character Boy", domain.IntentCharacter, "boy"},
		{"as girl", domain.IntentCharacter, "girl"},

		// Quit
		{"quit", domain.IntentQuit, ""},
		{"bye", domain.IntentQuit, ""},

		// Questions
		{"why is the sky blue?", domain.IntentAsk, "why is the sky blue?"},
		{"tell me about volcanoes", domain.IntentAsk, "tell me about volcanoes"},
		{"stop the rain", domain.IntentAsk, "stop the rain"},
		{"सूरज गरम क्यों है", domain.IntentAsk, "सूरज गरम क्यों है"},

		// Unknown
		{"", domain.IntentUnknown, ""},
		{"/frobnicate", domain.IntentUnknown, "/frobnicate"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			intent, err := parser.Parse(ctx, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if intent.Type != tt.wantType {
				t.Errorf("Parse(%q) type = %s, want %s", tt.input, intent.Type, tt.wantType)
			}
			if intent.Payload != tt.wantPayload {
				t.Errorf("Parse(%q) payload = %q, want %q", tt.input, intent.Payload, tt.wantPayload)
			}
		})
	}
}

func TestLanguageTag(t *testing.T) {
	for in, want := range map[string]string{
		"English": "en",
		"bangla":  "bn",
		"தமிழ்":   "ta",
		"fr":      "fr",
	} {
		if got := LanguageTag(in); got != want {
			t.Errorf("LanguageTag(%q) = %q, want %q", in, got, want)
		}
	}
}
