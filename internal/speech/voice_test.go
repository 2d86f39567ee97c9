package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

func TestSelectPrefersNeuralFemaleSameLanguage(t *testing.T) {
	voices := []domain.Voice{
		{Name: "Zira (Neural)", Language: "en-US"},
		{Name: "Generic espeak", Language: "en-GB"},
	}
	table := DefaultScoreTable()

	for i := 0; i < 5; i++ {
		got, ok := table.Select(voices, "en-IN", domain.GenderFemale)
		require.True(t, ok)
		assert.Equal(t, "Zira (Neural)", got.Name)
	}
}

func TestSelectTieKeepsFirstSeen(t *testing.T) {
	voices := []domain.Voice{
		{Name: "Voice A", ID: "a", Language: "hi-IN"},
		{Name: "Voice B", ID: "b", Language: "hi-IN"},
	}
	got, ok := DefaultScoreTable().Select(voices, "hi-IN", domain.GenderAny)
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
}

func TestSelectEmptyList(t *testing.T) {
	_, ok := DefaultScoreTable().Select(nil, "en-IN", domain.GenderAny)
	assert.False(t, ok)
}

func TestScoreLanguageTiers(t *testing.T) {
	table := &ScoreTable{ExactLanguage: 100, PrimaryLanguage: 50, LanguageMismatch: -50}

	assert.Equal(t, 100.0, table.Score(domain.Voice{Language: "hi_IN"}, "hi-in", domain.GenderAny))
	assert.Equal(t, 50.0, table.Score(domain.Voice{Language: "hi-IN"}, "hi", domain.GenderAny))
	assert.Equal(t, -50.0, table.Score(domain.Voice{Language: "ta-IN"}, "hi-IN", domain.GenderAny))
}

func TestScoreGenderUsesReportedThenName(t *testing.T) {
	table := DefaultScoreTable()

	female := domain.Voice{Name: "Microsoft Heera"}
	male := domain.Voice{Name: "Microsoft Ravi"}
	reported := domain.Voice{Name: "Anonymous", Gender: domain.GenderMale}

	assert.Greater(t, table.Score(female, "", domain.GenderFemale), table.Score(male, "", domain.GenderFemale))
	assert.Greater(t, table.Score(male, "", domain.GenderMale), table.Score(female, "", domain.GenderMale))
	assert.Equal(t, table.Gender, table.Score(reported, "", domain.GenderMale))
	assert.Equal(t, -table.Gender, table.Score(reported, "", domain.GenderFemale))
}

func TestScoreFemaleKeywordIsNotMale(t *testing.T) {
	table := DefaultScoreTable()
	v := domain.Voice{Name: "Some Female Voice"}
	assert.Equal(t, table.Gender, table.Score(v, "", domain.GenderFemale))
}

func TestScoreLanguageBonusNeedsQuality(t *testing.T) {
	table := DefaultScoreTable()
	plain := domain.Voice{Name: "Swara", Language: "hi-IN", Gender: domain.GenderFemale}
	neural := domain.Voice{Name: "Swara Neural", Language: "hi-IN", Gender: domain.GenderFemale}

	diff := table.Score(neural, "hi-IN", domain.GenderFemale) - table.Score(plain, "hi-IN", domain.GenderFemale)
	assert.Equal(t, 25.0+15.0, diff, "quality keyword plus the language bonus")
}

func TestRankIsStable(t *testing.T) {
	voices := []domain.Voice{
		{Name: "basic one", ID: "1", Language: "en-US"},
		{Name: "plain", ID: "2", Language: "en-US"},
		{Name: "plain too", ID: "3", Language: "en-US"},
		{Name: "Aria Neural", ID: "4", Language: "en-US"},
	}
	ranked := DefaultScoreTable().Rank(voices, "en-US", domain.GenderAny)
	require.Len(t, ranked, 4)

	ids := []string{ranked[0].Voice.ID, ranked[1].Voice.ID, ranked[2].Voice.ID, ranked[3].Voice.ID}
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids)
}
