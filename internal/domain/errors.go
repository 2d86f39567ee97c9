package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound           = errors.New("not found")
	ErrNoScenes           = errors.New("answer has no playable scenes")
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrDeviceUnavailable  = errors.New("device unavailable")
	ErrReplayUnavailable  = errors.New("replay not available right now")
	ErrInvalidTransition  = errors.New("invalid session transition")
)
