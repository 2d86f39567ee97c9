package speech

import (
	"sort"
	"strings"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// Keyword is a weighted substring of a voice name.
type Keyword struct {
	Substr string
	Weight float64
}

// LanguageBonus rewards voices known to sound good for one language,
// but only when the name also carries a quality keyword.
type LanguageBonus struct {
	Names  []string
	Weight float64
}

// ScoreTable holds every weight used to rank voices. Scoring is a pure
// function of (table, voice, language, preference), so the same inputs
// always pick the same voice.
type ScoreTable struct {
	ExactLanguage    float64
	PrimaryLanguage  float64
	LanguageMismatch float64 // added when the primary subtags differ

	Gender      float64 // added on match, subtracted for the opposite gender
	FemaleNames []string
	MaleNames   []string

	Quality       []Keyword
	LanguageBonus map[string]LanguageBonus // keyed by primary subtag
	LowQuality    []Keyword                // negative weights
}

// DefaultScoreTable returns the tuned production weights.
func DefaultScoreTable() *ScoreTable {
	return &ScoreTable{
		ExactLanguage:    100,
		PrimaryLanguage:  50,
		LanguageMismatch: -50,
		Gender:           30,
		FemaleNames: []string{
			"female", "woman", "girl", "zira", "samantha", "aria", "jenny",
			"sonia", "libby", "neerja", "swara", "heera", "kalpana",
			"tanishaa", "pallavi", "shruti", "veena", "lekha",
		},
		MaleNames: []string{
			"male", "boy", "david", "mark", "guy", "ryan", "prabhat",
			"madhur", "hemant", "ravi", "bashkar", "valluvar", "mohan",
		},
		Quality: []Keyword{
			{"neural", 25},
			{"natural", 20},
			{"premium", 15},
			{"enhanced", 12},
			{"hd", 8},
		},
		LanguageBonus: map[string]LanguageBonus{
			"en": {Names: []string{"aria", "jenny", "neerja", "prabhat"}, Weight: 10},
			"hi": {Names: []string{"swara", "madhur", "kalpana", "hemant"}, Weight: 15},
			"bn": {Names: []string{"tanishaa", "bashkar"}, Weight: 15},
			"ta": {Names: []string{"pallavi", "valluvar"}, Weight: 15},
			"te": {Names: []string{"shruti", "mohan"}, Weight: 15},
		},
		LowQuality: []Keyword{
			{"espeak", -20},
			{"basic", -10},
			{"default", -5},
			{"system", -5},
		},
	}
}

// Score rates one voice for the target language and gender preference.
func (t *ScoreTable) Score(v domain.Voice, lang string, prefer domain.Gender) float64 {
	name := strings.ToLower(v.Name + " " + v.ID)
	score := 0.0

	if lang != "" && v.Language != "" {
		switch {
		case normalizeTag(v.Language) == normalizeTag(lang):
			score += t.ExactLanguage
		case primaryTag(v.Language) == primaryTag(lang):
			score += t.PrimaryLanguage
		default:
			score += t.LanguageMismatch
		}
	}

	if prefer != domain.GenderAny {
		switch g := t.genderOf(v, name); {
		case g == domain.GenderAny:
		case g == prefer:
			score += t.Gender
		default:
			score -= t.Gender
		}
	}

	hasQuality := false
	for _, k := range t.Quality {
		if strings.Contains(name, k.Substr) {
			score += k.Weight
			hasQuality = true
		}
	}

	if bonus, ok := t.LanguageBonus[primaryTag(lang)]; ok && hasQuality {
		if containsAny(name, bonus.Names) {
			score += bonus.Weight
		}
	}

	for _, k := range t.LowQuality {
		if strings.Contains(name, k.Substr) {
			score += k.Weight
		}
	}
	return score
}

// genderOf prefers the gender the backend reports and falls back to name
// keywords. "female" contains "male", so female keywords are removed
// before the male check.
func (t *ScoreTable) genderOf(v domain.Voice, name string) domain.Gender {
	if v.Gender != domain.GenderAny {
		return v.Gender
	}
	if containsAny(name, t.FemaleNames) {
		return domain.GenderFemale
	}
	stripped := name
	for _, f := range t.FemaleNames {
		stripped = strings.ReplaceAll(stripped, f, "")
	}
	if containsAny(stripped, t.MaleNames) {
		return domain.GenderMale
	}
	return domain.GenderAny
}

// Select returns the best voice. Ties keep the first candidate seen.
func (t *ScoreTable) Select(voices []domain.Voice, lang string, prefer domain.Gender) (domain.Voice, bool) {
	if len(voices) == 0 {
		return domain.Voice{}, false
	}
	best, bestScore := 0, t.Score(voices[0], lang, prefer)
	for i := 1; i < len(voices); i++ {
		if s := t.Score(voices[i], lang, prefer); s > bestScore {
			best, bestScore = i, s
		}
	}
	return voices[best], true
}

// RankedVoice is a voice with its score.
type RankedVoice struct {
	Voice domain.Voice
	Score float64
}

// Rank scores every voice, best first. Equal scores keep input order.
func (t *ScoreTable) Rank(voices []domain.Voice, lang string, prefer domain.Gender) []RankedVoice {
	out := make([]RankedVoice, len(voices))
	for i, v := range voices {
		out[i] = RankedVoice{Voice: v, Score: t.Score(v, lang, prefer)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
