package domain

// JobStatus is the lifecycle of an asynchronous explainer job.
type JobStatus int

const (
	JobPending JobStatus = iota
	JobReady
	JobFallback
	JobFailed
)

// String returns the wire label of the status.
func (s JobStatus) String() string {
	switch s {
	case JobReady:
		return "ready"
	case JobFallback:
		return "fallback"
	case JobFailed:
		return "failed"
	default:
		return "pending"
	}
}

// ParseJobStatus maps a wire label to a JobStatus. Unknown labels are
// treated as still pending.
func ParseJobStatus(s string) JobStatus {
	switch s {
	case "ready", "done", "complete", "completed":
		return JobReady
	case "fallback":
		return JobFallback
	case "failed", "error":
		return JobFailed
	default:
		return JobPending
	}
}

// Settled reports whether the status carries a usable payload.
func (s JobStatus) Settled() bool {
	return s == JobReady || s == JobFallback
}

// Explainer is the topic card shown next to the performance.
type Explainer struct {
	Title   string
	Summary string
	Points  []string
	Topic   string // search query for the topic image, defaults to Title
}

// Query returns the best search term for the topic image.
func (e *Explainer) Query() string {
	if e.Topic != "" {
		return e.Topic
	}
	return e.Title
}

// ExplainerJob is one poll result for a job id.
type ExplainerJob struct {
	ID      string
	Status  JobStatus
	Payload *Explainer
	Error   string
}

// TopicImage is the picture shown on the topic card.
type TopicImage struct {
	ImageURL    string
	Title       string
	PageURL     string
	Source      string // "proxy", "wikipedia" or "placeholder"
	Placeholder bool
}

// Topic is what the explainer poller hands to the view.
type Topic struct {
	Explainer *Explainer
	Image     *TopicImage
}
