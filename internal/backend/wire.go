package backend

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// ── Wire types ───────────────────────────────────────────────────

type answerJSON struct {
	OriginalText    string         `json:"original_text"`
	Language        string         `json:"language"`
	Scenes          []sceneJSON    `json:"scenes"`
	AnimationScenes []sceneJSON    `json:"animation_scenes"`
	JobID           string         `json:"job_id"`
	Explainer       *explainerJSON `json:"explainer"`
	Error           string         `json:"error"`
	Message         string         `json:"message"`
}

// sceneJSON accepts both scene shapes the backend has produced:
//
//	{"scene_id":1,"character":"boy","animation":{"action":"wave","loop":true},"dialogue":{"text":"Hi"}}
//	{"scene":1,"character":"girl","dialogue":"Hi"}
type sceneJSON struct {
	SceneID   *int            `json:"scene_id"`
	Scene     *int            `json:"scene"`
	Character string          `json:"character"`
	Animation *animationJSON  `json:"animation"`
	Action    string          `json:"action"`
	Dialogue  json.RawMessage `json:"dialogue"`
}

type animationJSON struct {
	Action string `json:"action"`
	Loop   *bool  `json:"loop"`
}

type explainerJSON struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Points  []string `json:"points"`
	Topic   string   `json:"topic"`
}

type jobJSON struct {
	Status    string         `json:"status"`
	Explainer *explainerJSON `json:"explainer"`
	Error     string         `json:"error"`
}

// ── Decoding ─────────────────────────────────────────────────────

func (a answerJSON) domain() *domain.Answer {
	raw := a.Scenes
	if len(raw) == 0 {
		raw = a.AnimationScenes
	}
	scenes := make([]domain.Scene, 0, len(raw))
	for i, s := range raw {
		scenes = append(scenes, s.domain(i+1))
	}
	errText := a.Error
	if errText != "" && a.Message != "" {
		errText += ": " + a.Message
	}
	return &domain.Answer{
		OriginalText: a.OriginalText,
		Language:     a.Language,
		Scenes:       scenes,
		JobID:        a.JobID,
		Explainer:    a.Explainer.domain(),
		Error:        errText,
	}
}

// domain converts a scene, using fallbackID when the payload has none.
func (s sceneJSON) domain(fallbackID int) domain.Scene {
	sc := domain.Scene{
		ID:        fallbackID,
		Character: domain.ParseCharacter(strings.ToLower(strings.TrimSpace(s.Character))),
		Action:    "neutral",
		Loop:      true,
		Dialogue:  dialogueText(s.Dialogue),
	}
	switch {
	case s.SceneID != nil:
		sc.ID = *s.SceneID
	case s.Scene != nil:
		sc.ID = *s.Scene
	}
	if s.Action != "" {
		sc.Action = s.Action
	}
	if s.Animation != nil {
		if s.Animation.Action != "" {
			sc.Action = s.Animation.Action
		}
		if s.Animation.Loop != nil {
			sc.Loop = *s.Animation.Loop
		}
	}
	return sc
}

// dialogueText reads a dialogue that is either a string or {"text": ...}.
func dialogueText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Text)
	}
	return ""
}

func (e *explainerJSON) domain() *domain.Explainer {
	if e == nil || (e.Title == "" && e.Summary == "" && len(e.Points) == 0) {
		return nil
	}
	return &domain.Explainer{
		Title:   e.Title,
		Summary: e.Summary,
		Points:  e.Points,
		Topic:   e.Topic,
	}
}
