package gesture

import "github.com/hammamikhairi/kidzstage/internal/domain"

// Action is what a debouncer drives on a mode change.
type Action interface {
	Apply(mode domain.Mode)
}

// ActionFunc adapts a function to an Action.
type ActionFunc func(mode domain.Mode)

// Apply calls f(mode).
func (f ActionFunc) Apply(mode domain.Mode) { f(mode) }

// Zoom defaults, matching the stage camera limits.
const (
	DefaultMinZoom     = 0.5
	DefaultMaxZoom     = 3.0
	DefaultInitialZoom = 1.0
)

// ZoomLevel drives a zoom level instead of a fullscreen toggle: Max while
// the mode is fullscreen, Initial otherwise, clamped to [Min, Max].
type ZoomLevel struct {
	Min     float64
	Max     float64
	Initial float64
	set     func(level float64)
}

// NewZoomLevel creates a zoom action with the default limits.
func NewZoomLevel(set func(level float64)) *ZoomLevel {
	return &ZoomLevel{
		Min:     DefaultMinZoom,
		Max:     DefaultMaxZoom,
		Initial: DefaultInitialZoom,
		set:     set,
	}
}

// Apply sets the zoom level for the mode.
func (z *ZoomLevel) Apply(mode domain.Mode) {
	level := z.Initial
	if mode == domain.ModeFullscreen {
		level = z.Max
	}
	if level < z.Min {
		level = z.Min
	}
	if level > z.Max {
		level = z.Max
	}
	z.set(level)
}
