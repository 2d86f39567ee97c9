// Package gesture turns the noisy classifier stream into discrete stage
// mode changes.
//
// Samples arrive from a [Poller] (camera frames posted to the
// classification endpoint) or a [Stream] (results pushed over a
// WebSocket). Each sample fans out to one [Debouncer] per target, and a
// debouncer calls its [Action] only when the interpreted mode changes.
package gesture

import (
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// IsOpenPalm reports whether a sample asks for fullscreen. The classifier
// labels a spread hand moving away as zoom_out, so that hint counts as an
// open palm as well. Do not add further aliases without checking the
// classifier's current labels.
func IsOpenPalm(s domain.GestureSample) bool {
	return s.Gesture == domain.GestureOpenPalm || s.ZoomAction == domain.ZoomOut
}

// Interpret maps a sample to the mode it asks for.
func Interpret(s domain.GestureSample) domain.Mode {
	if IsOpenPalm(s) {
		return domain.ModeFullscreen
	}
	return domain.ModeNormal
}

// Result is the classifier's JSON result, shared by the HTTP endpoint and
// the push stream.
type Result struct {
	Gesture      string  `json:"gesture"`
	Confidence   float64 `json:"confidence"`
	ZoomAction   string  `json:"zoom_action"`
	HandDetected bool    `json:"hand_detected"`
	HandCount    int     `json:"hand_count"`
	Error        string  `json:"error,omitempty"`
}

// Sample converts the wire result into a domain sample observed at t.
func (r Result) Sample(t time.Time) domain.GestureSample {
	return domain.GestureSample{
		Gesture:      domain.ParseGesture(r.Gesture),
		Confidence:   r.Confidence,
		ZoomAction:   domain.ParseZoomAction(r.ZoomAction),
		HandDetected: r.HandDetected,
		HandCount:    r.HandCount,
		ObservedAt:   t,
	}
}
