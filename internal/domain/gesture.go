// Package domain defines the core types and interfaces for the talking
// character client. All other packages depend on domain; domain depends
// on nothing.
package domain

import (
	"regexp"
	"strings"
	"time"
)

// Gesture is a hand pose label produced by the classifier.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureOpenPalm
	GestureClosedFist
	GesturePinch
)

// String returns the wire label of the gesture.
func (g Gesture) String() string {
	switch g {
	case GestureOpenPalm:
		return "open_palm"
	case GestureClosedFist:
		return "closed_fist"
	case GesturePinch:
		return "pinch"
	default:
		return "none"
	}
}

var labelSeparators = regexp.MustCompile(`[-\s]+`)

// normalizeLabel lower-cases a classifier label and folds dashes and
// spaces into underscores, so "Open-Palm" and "open palm" compare equal.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return labelSeparators.ReplaceAllString(s, "_")
}

// ParseGesture maps a classifier label to a Gesture. Unknown labels map
// to GestureNone.
func ParseGesture(label string) Gesture {
	n := normalizeLabel(label)
	switch {
	case strings.Contains(n, "open_palm"):
		return GestureOpenPalm
	case strings.Contains(n, "closed_fist"), n == "fist":
		return GestureClosedFist
	case strings.Contains(n, "pinch"):
		return GesturePinch
	default:
		return GestureNone
	}
}

// ZoomAction is the classifier's secondary zoom hint.
type ZoomAction int

const (
	ZoomNone ZoomAction = iota
	ZoomIn
	ZoomOut
)

// String returns the wire label of the zoom action.
func (z ZoomAction) String() string {
	switch z {
	case ZoomIn:
		return "zoom_in"
	case ZoomOut:
		return "zoom_out"
	default:
		return "none"
	}
}

// ParseZoomAction maps a classifier label to a ZoomAction.
func ParseZoomAction(label string) ZoomAction {
	switch normalizeLabel(label) {
	case "zoom_in":
		return ZoomIn
	case "zoom_out":
		return ZoomOut
	default:
		return ZoomNone
	}
}

// GestureSample is one classifier result. Samples are ephemeral: each
// one is consumed by the debouncers and dropped.
type GestureSample struct {
	Gesture      Gesture
	Confidence   float64 // 0..1
	ZoomAction   ZoomAction
	HandDetected bool
	HandCount    int
	ObservedAt   time.Time
}

// Mode is the stage framing driven by gestures.
type Mode int

const (
	ModeNormal Mode = iota
	ModeFullscreen
)

// String returns a human-readable mode.
func (m Mode) String() string {
	if m == ModeFullscreen {
		return "fullscreen"
	}
	return "normal"
}
