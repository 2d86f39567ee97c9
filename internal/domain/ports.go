package domain

import "context"

// AnswerService turns a question into a scripted performance.
type AnswerService interface {
	Ask(ctx context.Context, q Question) (*Answer, error)
}

// ExplainerService reports the state of an asynchronous explainer job.
// It returns ErrNotFound when the job id is unknown; any other error is
// treated as transient by callers.
type ExplainerService interface {
	FetchExplainer(ctx context.Context, jobID string) (*ExplainerJob, error)
}

// GestureClassifier classifies one camera frame.
type GestureClassifier interface {
	Classify(ctx context.Context, frame []byte) (GestureSample, error)
}

// FrameSource yields the most recent camera frame as JPEG bytes.
// Implementations return ErrDeviceUnavailable when no camera is present.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// ChatLog stores the conversation history.
type ChatLog interface {
	Append(ctx context.Context, entry ChatEntry) error
	List(ctx context.Context) ([]ChatEntry, error)
	LastFrom(ctx context.Context, speaker Speaker) (ChatEntry, error)
	Clear(ctx context.Context) error
}

// PresetCatalog matches questions to canned video clips.
type PresetCatalog interface {
	List(ctx context.Context) ([]Preset, error)
	Get(ctx context.Context, id string) (*Preset, error)
	Match(ctx context.Context, question string) (*Preset, error)
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// Notifier delivers messages to the user. Only user-actionable errors
// and status lines go through it.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
