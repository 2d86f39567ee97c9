// Package session coordinates one child's conversation with the stage:
// capture, the answer request, the performance, replay and stop.
//
// The state machine is a pure function, [Transition]. The [Controller]
// owns every mutable flag and is the only caller of Transition.
package session

import (
	"fmt"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// Event drives a state transition.
type Event int

const (
	EventListen  Event = iota // voice capture starts
	EventSubmit               // a question is sent: capture stopped or text typed
	EventAnswer               // the answer arrived with scenes to play
	EventEmpty                // the answer arrived with nothing to play
	EventFail                 // capture or request failed
	EventFinish               // the performance ran to the end
	EventReplay               // the last performance is replayed
	EventStop                 // explicit stop
	EventSettle               // stop has finished cleaning up
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case EventListen:
		return "listen"
	case EventSubmit:
		return "submit"
	case EventAnswer:
		return "answer"
	case EventEmpty:
		return "empty"
	case EventFail:
		return "fail"
	case EventFinish:
		return "finish"
	case EventReplay:
		return "replay"
	case EventStop:
		return "stop"
	case EventSettle:
		return "settle"
	default:
		return "unknown"
	}
}

// Transition returns the state that follows s on e, or an error wrapping
// domain.ErrInvalidTransition. It has no side effects.
//
// New work always wins: listening or submitting is allowed from every
// state, and the caller is expected to quiesce the old turn first. Stop
// is allowed from every state, including Stopped.
func Transition(s domain.SessionState, e Event) (domain.SessionState, error) {
	switch e {
	case EventListen:
		return domain.StateListening, nil
	case EventSubmit:
		return domain.StateProcessing, nil
	case EventStop:
		return domain.StateStopped, nil
	}

	switch s {
	case domain.StateIdle:
		if e == EventReplay {
			return domain.StatePlaying, nil
		}
	case domain.StateListening:
		if e == EventFail {
			return domain.StateIdle, nil
		}
	case domain.StateProcessing:
		switch e {
		case EventAnswer:
			return domain.StatePlaying, nil
		case EventEmpty, EventFail:
			return domain.StateIdle, nil
		}
	case domain.StatePlaying:
		switch e {
		case EventFinish:
			return domain.StateIdle, nil
		case EventReplay:
			return domain.StatePlaying, nil
		}
	case domain.StateStopped:
		if e == EventSettle {
			return domain.StateIdle, nil
		}
	}
	return s, fmt.Errorf("%w: %s on %s", domain.ErrInvalidTransition, s, e)
}
