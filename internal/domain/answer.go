package domain

// Question is one request to the answer service. Either Text or Audio
// carries the child's question.
type Question struct {
	Text       string
	Audio      []byte // WAV, optional
	Language   string
	Character  Character
	ClassLevel string
}

// Answer is the decoded response of the answer service.
type Answer struct {
	OriginalText string
	Language     string
	Scenes       []Scene
	JobID        string
	Explainer    *Explainer // inline explainer, used when JobID is empty
	Error        string
}

// Preset is a canned video clip matched to a question by keyword.
type Preset struct {
	ID       string
	Title    string
	Keywords []string
	Clip     string // path or URL handed to the video player
	Duration int    // seconds
}
