package domain

// SessionState is the top-level state of the conversation client.
type SessionState int

const (
	StateIdle SessionState = iota
	StateListening
	StateProcessing
	StatePlaying
	StateStopped
)

// String returns a human-readable session state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
