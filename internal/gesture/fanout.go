package gesture

import (
	"sync"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

// Fanout delivers every sample to each registered sink independently.
// The view layer and the video overlay each get their own debouncer.
type Fanout struct {
	mu    sync.RWMutex
	sinks []Sink
}

var _ Sink = (*Fanout)(nil)

// NewFanout creates a fan-out over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Add registers another sink.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

// Observe delivers the sample to every sink. It returns true if any sink
// fired.
func (f *Fanout) Observe(s domain.GestureSample) bool {
	f.mu.RLock()
	sinks := make([]Sink, len(f.sinks))
	copy(sinks, f.sinks)
	f.mu.RUnlock()

	fired := false
	for _, sink := range sinks {
		if sink.Observe(s) {
			fired = true
		}
	}
	return fired
}
