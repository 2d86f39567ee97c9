package capture

import (
	"regexp"
	"strings"
)

var (
	// annotation matches whisper sound tags like "[BLANK_AUDIO]",
	// "(keyboard clicking)", "[Music]" or "(speaking French)".
	annotation = regexp.MustCompile(`[\(\[]\s*[A-Za-z][A-Za-z_\s'-]*[\)\]]`)

	// timestamp matches a "[00:00:00.000 --> 00:00:05.000]" prefix.
	timestamp = regexp.MustCompile(`^\[\d{2}:\d{2}[:.\d]*\s*-->\s*\d{2}:\d{2}[:.\d]*\]`)
)

// hallucinations are whole transcripts whisper produces from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thank you":               true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"bye!":                    true,
	"the end.":                true,
}

// cleanTranscription strips sound annotations, timestamps and line
// breaks from a whisper transcript. A transcript that is only a known
// silence hallucination becomes "".
func cleanTranscription(s string) string {
	s = timestamp.ReplaceAllString(strings.TrimSpace(s), "")
	s = annotation.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
