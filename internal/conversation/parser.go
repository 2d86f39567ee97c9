// Package conversation provides intent parsing and user notification implementations.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser maps typed input to intents. Short commands (optionally
// prefixed with "/") control the stage; anything else is a question.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(listen|mic|talk|speak|l)$`), domain.IntentListen},
		{regexp.MustCompile(`(?i)^(done|send|over|d)$`), domain.IntentDone},
		{regexp.MustCompile(`(?i)^(stop|shh+|quiet|hush|x)$`), domain.IntentStop},
		{regexp.MustCompile(`(?i)^(replay|again|repeat|once more|r)$`), domain.IntentReplay},
		{regexp.MustCompile(`(?i)^(fullscreen|full|big|zoom|f)$`), domain.IntentFullscreen},
		{regexp.MustCompile(`(?i)^(normal|small|unzoom|exit fullscreen|esc)$`), domain.IntentNormal},
		{regexp.MustCompile(`(?i)^(history|chat|log)$`), domain.IntentHistory},
		{regexp.MustCompile(`(?i)^(presets|videos|clips)$`), domain.IntentPresets},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|bye|q)$`), domain.IntentQuit},
		{regexp.MustCompile(`(?i)^(lang|language)(\s+\S.*)?$`), domain.IntentLanguage},
		{regexp.MustCompile(`(?i)^(character|char|as)(\s+\S.*)?$`), domain.IntentCharacter},
	}
	return p
}

// Parse converts user input into an intent.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	command := strings.TrimPrefix(trimmed, "/")
	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(command)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		switch rule.intent {
		case domain.IntentLanguage:
			return &domain.Intent{Type: rule.intent, Payload: LanguageTag(strings.TrimSpace(m[2]))}, nil
		case domain.IntentCharacter:
			return &domain.Intent{Type: rule.intent, Payload: strings.ToLower(strings.TrimSpace(m[2]))}, nil
		}
		return &domain.Intent{Type: rule.intent}, nil
	}

	// An unrecognised slash command is a typo, not a question.
	if strings.HasPrefix(trimmed, "/") {
		p.log.Debug("no match for command %q", trimmed)
		return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
	}
	return &domain.Intent{Type: domain.IntentAsk, Payload: trimmed}, nil
}

// languageNames maps spoken language names to BCP-47 primary tags.
var languageNames = map[string]string{
	"english": "en", "hindi": "hi", "bengali": "bn", "bangla": "bn",
	"tamil": "ta", "telugu": "te",
	"हिंदी": "hi", "हिन्दी": "hi", "বাংলা": "bn", "தமிழ்": "ta", "తెలుగు": "te",
}

// LanguageTag normalizes a language name or tag. Unknown names are
// returned lower-cased so a full tag like "en-GB" passes through.
func LanguageTag(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if tag, ok := languageNames[lower]; ok {
		return tag
	}
	return lower
}
