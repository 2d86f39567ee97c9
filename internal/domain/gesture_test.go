package domain

import "testing"

func TestParseGestureNormalizesLabels(t *testing.T) {
	tests := []struct {
		label string
		want  Gesture
	}{
		{"open_palm", GestureOpenPalm},
		{"Open-Palm", GestureOpenPalm},
		{"  open palm ", GestureOpenPalm},
		{"right_open_palm", GestureOpenPalm},
		{"closed_fist", GestureClosedFist},
		{"Closed Fist", GestureClosedFist},
		{"pinch", GesturePinch},
		{"", GestureNone},
		{"thumbs_up", GestureNone},
	}
	for _, tt := range tests {
		if got := ParseGesture(tt.label); got != tt.want {
			t.Errorf("ParseGesture(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestParseZoomAction(t *testing.T) {
	if got := ParseZoomAction("Zoom-Out"); got != ZoomOut {
		t.Fatalf("expected zoom_out, got %s", got)
	}
	if got := ParseZoomAction("zoom_in"); got != ZoomIn {
		t.Fatalf("expected zoom_in, got %s", got)
	}
	if got := ParseZoomAction("sideways"); got != ZoomNone {
		t.Fatalf("expected none, got %s", got)
	}
}

func TestJobStatusSettled(t *testing.T) {
	for _, s := range []string{"ready", "fallback"} {
		if !ParseJobStatus(s).Settled() {
			t.Errorf("%s should be settled", s)
		}
	}
	for _, s := range []string{"pending", "failed", "queued"} {
		if ParseJobStatus(s).Settled() {
			t.Errorf("%s should not be settled", s)
		}
	}
}

func TestCharacterDefaultsToGirl(t *testing.T) {
	if ParseCharacter("") != CharacterGirl {
		t.Fatal("empty character should default to girl")
	}
	if ParseCharacter("boy").VoicePreference() != GenderMale {
		t.Fatal("boy should prefer a male voice")
	}
}
