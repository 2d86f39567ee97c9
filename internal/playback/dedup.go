package playback

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// dialogueKey is the dedup key of a line: whitespace collapsed, case
// folded. "Hello  World" and "hello world" share a key. A Caser keeps
// state, so each call builds its own.
func dialogueKey(text string) string {
	return cases.Fold().String(strings.Join(strings.Fields(text), " "))
}

// seenSet remembers dialogue keys for one pass.
type seenSet map[string]struct{}

// add reports whether the line is new and non-empty, and records it.
func (s seenSet) add(text string) bool {
	key := dialogueKey(text)
	if key == "" {
		return false
	}
	if _, dup := s[key]; dup {
		return false
	}
	s[key] = struct{}{}
	return true
}

// UniqueLines returns the non-empty dialogue lines of the scenes with
// duplicates removed, in first-seen order. Lines are trimmed but keep
// their original casing.
func UniqueLines(scenes []domain.Scene) []string {
	seen := seenSet{}
	var out []string
	for _, sc := range scenes {
		text := strings.TrimSpace(sc.Dialogue)
		if seen.add(text) {
			out = append(out, text)
		}
	}
	return out
}

// ChatText is the single chat message for a performance: every unique
// line, separated by a blank line.
func ChatText(scenes []domain.Scene) string {
	return strings.Join(UniqueLines(scenes), "\n\n")
}
