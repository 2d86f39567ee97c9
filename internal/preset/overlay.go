package preset

import (
	"sync"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// OverlayState is a snapshot of the preset video overlay.
type OverlayState struct {
	Preset     *domain.Preset
	Playing    bool
	Position   time.Duration
	Fullscreen bool
}

// Active reports whether a preset occupies the stage.
func (s OverlayState) Active() bool { return s.Preset != nil }

// Overlay is the preset video controller. It tracks playback position
// on a clock, so a paused clip resumes where it stopped. Safe for
// concurrent use.
type Overlay struct {
	log      *logger.Logger
	now      func() time.Time
	observer func(OverlayState)

	mu        sync.Mutex
	preset    *domain.Preset
	playing   bool
	offset    time.Duration // position when playback last (re)started
	startedAt time.Time
	full      bool
}

// NewOverlay creates an empty overlay.
func NewOverlay(log *logger.Logger) *Overlay {
	return &Overlay{log: log, now: time.Now}
}

// OnChange registers a callback run after every state change, outside
// the lock.
func (o *Overlay) OnChange(fn func(OverlayState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = fn
}

// Show puts a preset on stage and starts it from the beginning.
func (o *Overlay) Show(p domain.Preset) {
	o.change(func() {
		o.preset = &p
		o.playing = true
		o.offset = 0
		o.startedAt = o.now()
		o.full = false
	})
	o.log.Info("preset: showing %s (%s)", p.ID, p.Clip)
}

// Apply sets video fullscreen from a gesture mode. It does nothing while
// no preset is shown.
func (o *Overlay) Apply(mode domain.Mode) {
	o.change(func() {
		if o.preset != nil {
			o.full = mode == domain.ModeFullscreen
		}
	})
}

// ExitFullscreen leaves video fullscreen, if any.
func (o *Overlay) ExitFullscreen() {
	o.change(func() { o.full = false })
}

// Pause stops the clip at its current position.
func (o *Overlay) Pause() {
	o.change(func() {
		if o.playing {
			o.offset = o.positionLocked()
			o.playing = false
		}
	})
}

// Resume continues a paused clip.
func (o *Overlay) Resume() {
	o.change(func() {
		if o.preset != nil && !o.playing {
			o.playing = true
			o.startedAt = o.now()
		}
	})
}

// Halt pauses, rewinds and leaves fullscreen. The preset stays on stage.
func (o *Overlay) Halt() {
	o.change(func() {
		o.playing = false
		o.offset = 0
		o.full = false
	})
}

// Clear removes the preset override.
func (o *Overlay) Clear() {
	o.change(func() {
		o.preset = nil
		o.playing = false
		o.offset = 0
		o.full = false
	})
}

// Active reports whether a preset occupies the stage.
func (o *Overlay) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.preset != nil
}

// State returns a snapshot of the overlay.
func (o *Overlay) State() OverlayState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// change applies fn under the lock and notifies the observer if the
// visible state moved.
func (o *Overlay) change(fn func()) {
	o.mu.Lock()
	before := o.stateLocked()
	fn()
	after := o.stateLocked()
	observer := o.observer
	o.mu.Unlock()

	if observer != nil && !sameState(before, after) {
		observer(after)
	}
}

func (o *Overlay) stateLocked() OverlayState {
	st := OverlayState{Playing: o.playing, Position: o.positionLocked(), Fullscreen: o.full}
	if o.preset != nil {
		p := *o.preset
		st.Preset = &p
	}
	return st
}

// positionLocked is the clip position, clamped to the clip duration.
func (o *Overlay) positionLocked() time.Duration {
	pos := o.offset
	if o.playing {
		pos += o.now().Sub(o.startedAt)
	}
	if o.preset != nil && o.preset.Duration > 0 {
		if limit := time.Duration(o.preset.Duration) * time.Second; pos > limit {
			pos = limit
		}
	}
	return pos
}

func sameState(a, b OverlayState) bool {
	if (a.Preset == nil) != (b.Preset == nil) {
		return false
	}
	if a.Preset != nil && a.Preset.ID != b.Preset.ID {
		return false
	}
	return a.Playing == b.Playing && a.Fullscreen == b.Fullscreen && (a.Playing || a.Position == b.Position)
}
