package display

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

func tick(t *testing.T, m model) model {
	t.Helper()
	next, _ := m.Update(tickMsg(time.Now()))
	return next.(model)
}

func TestEnterSendsInput(t *testing.T) {
	u := NewUI()
	m := u.newModel()
	m.input.SetValue("why is the sky blue")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "", next.(model).input.Value())

	select {
	case got := <-u.InputChan():
		assert.Equal(t, "why is the sky blue", got)
	default:
		t.Fatal("no input delivered")
	}
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	u := NewUI()
	m := u.newModel()
	m.input.SetValue("   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Len(t, u.InputChan(), 0)
}

func TestEscapeClosesFullscreenOnly(t *testing.T) {
	u := NewUI()
	calls := 0
	u.OnEscape(func() { calls++ })
	m := u.newModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd, "escape in normal mode is a no-op")

	u.Apply(domain.ModeFullscreen)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, calls)

	u.Apply(domain.ModeNormal)
	u.SetPreset("Volcanoes", true, true)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 2, calls)
}

func TestStatusBarShowsSessionAndSubtitle(t *testing.T) {
	u := NewUI()
	u.SetSession(domain.StatePlaying, "hi", domain.CharacterBoy)
	u.SetPlayback(domain.PlaybackState{Active: true, Speaking: true, Subtitle: "Hello there"})
	m := tick(t, u.newModel())

	view := m.View()
	assert.Contains(t, view, "playing")
	assert.Contains(t, view, "boy")
	assert.Contains(t, view, "hi")
	assert.Contains(t, view, "speaking")
	assert.Contains(t, view, "Hello there")
	assert.NotContains(t, view, "esc to close")
	assert.Equal(t, "KidzStage: Hello there", m.titleStr())
}

func TestFullscreenDrawsStage(t *testing.T) {
	u := NewUI()
	u.Apply(domain.ModeFullscreen)
	u.SetZoom(3)
	u.SetPlayback(domain.PlaybackState{Active: true, Subtitle: "Lava is hot"})
	m := tick(t, u.newModel())

	view := m.View()
	assert.Contains(t, view, "Lava is hot")
	assert.Contains(t, view, "zoom 3.0x")
	assert.Contains(t, view, "esc to close")
}

func TestStageShowsPresetVideo(t *testing.T) {
	u := NewUI()
	u.Apply(domain.ModeFullscreen)
	u.SetPreset("Volcanoes", false, false)
	m := tick(t, u.newModel())

	view := m.View()
	assert.Contains(t, view, "Volcanoes")
	assert.Contains(t, view, "paused")
}

func TestCameraErrorOnBar(t *testing.T) {
	u := NewUI()
	u.SetCameraError("no camera")
	m := tick(t, u.newModel())
	assert.Contains(t, m.View(), "camera: no camera")

	u.SetCameraError("")
	m = tick(t, m)
	assert.NotContains(t, m.View(), "camera:")
}

func TestFormatChat(t *testing.T) {
	ai := FormatChat(domain.ChatEntry{Speaker: domain.SpeakerAI, Text: "Plants eat light"})
	assert.Contains(t, ai, "[stage]")
	assert.Contains(t, ai, "Plants eat light")

	child := FormatChat(domain.ChatEntry{Speaker: domain.SpeakerChild, Text: "how do plants eat"})
	assert.Contains(t, child, "[child]")
}

func TestFormatTopicSkipsPlaceholderImage(t *testing.T) {
	topic := &domain.Topic{
		Explainer: &domain.Explainer{Title: "Volcano", Summary: "A mountain that erupts", Points: []string{"Magma", "Ash"}},
		Image:     &domain.TopicImage{ImageURL: "data:image/svg+xml;base64,AAAA", Placeholder: true},
	}
	card := FormatTopic(topic)
	assert.Contains(t, card, "Volcano")
	assert.Contains(t, card, "- Magma")
	assert.NotContains(t, card, "image:")

	topic.Image = &domain.TopicImage{ImageURL: "https://img/volcano.jpg", PageURL: "https://wiki/Volcano"}
	card = FormatTopic(topic)
	assert.Contains(t, card, "https://img/volcano.jpg")
	assert.Contains(t, card, "https://wiki/Volcano")
}

func TestRenderBannerCentres(t *testing.T) {
	out := renderBanner(200)
	assert.Contains(t, out, "ask anything")
	first := strings.Split(out, "\n")[0]
	assert.True(t, strings.HasPrefix(first, "   "), "banner should be padded on wide terminals")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
