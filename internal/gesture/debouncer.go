package gesture

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// DefaultThrottle is the minimum spacing between applied samples.
const DefaultThrottle = 180 * time.Millisecond

// Sink consumes gesture samples. Observe reports whether the sample
// changed anything.
type Sink interface {
	Observe(s domain.GestureSample) bool
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithThrottle sets the minimum interval between applied samples.
// Zero disables throttling.
func WithThrottle(d time.Duration) Option {
	return func(db *Debouncer) { db.throttle = d }
}

// WithName sets the name used in log lines.
func WithName(name string) Option {
	return func(db *Debouncer) { db.name = name }
}

// WithClock overrides the clock used for samples without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(db *Debouncer) { db.now = now }
}

// Debouncer throttles samples and emits a mode change only on an edge.
//
// A sample arriving sooner than the throttle interval after the last
// applied sample is dropped without touching any state. An applied
// sample fires the action only when its interpreted mode differs from
// the last applied mode. The applied mode starts unset, so the first
// applied sample always fires.
type Debouncer struct {
	name     string
	action   Action
	log      *logger.Logger
	throttle time.Duration
	now      func() time.Time

	mu      sync.Mutex
	limiter *rate.Limiter
	applied bool
	mode    domain.Mode
}

var _ Sink = (*Debouncer)(nil)

// NewDebouncer creates a debouncer that drives the given action.
func NewDebouncer(action Action, log *logger.Logger, opts ...Option) *Debouncer {
	d := &Debouncer{
		name:     "gesture",
		action:   action,
		log:      log,
		throttle: DefaultThrottle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.limiter = d.newLimiter()
	return d
}

func (d *Debouncer) newLimiter() *rate.Limiter {
	if d.throttle <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d.throttle), 1)
}

// Observe feeds one sample. It returns true when the sample fired the
// action.
func (d *Debouncer) Observe(s domain.GestureSample) bool {
	at := s.ObservedAt
	if at.IsZero() {
		at = d.now()
	}

	d.mu.Lock()
	if !d.limiter.AllowN(at, 1) {
		d.mu.Unlock()
		return false
	}
	next := Interpret(s)
	if d.applied && next == d.mode {
		d.mu.Unlock()
		return false
	}
	prev, had := d.mode, d.applied
	d.applied = true
	d.mode = next
	d.mu.Unlock()

	if had {
		d.log.Debug("%s: %s -> %s (gesture=%s zoom=%s)", d.name, prev, next, s.Gesture, s.ZoomAction)
	} else {
		d.log.Debug("%s: initial mode %s", d.name, next)
	}
	d.action.Apply(next)
	return true
}

// Mode returns the last applied mode and whether any sample was applied.
func (d *Debouncer) Mode() (domain.Mode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode, d.applied
}

// Force records a mode changed from outside (Escape, Stop) without
// firing the action, so the next matching sample is not swallowed as a
// repeat of a stale mode.
func (d *Debouncer) Force(mode domain.Mode) {
	d.mu.Lock()
	d.applied = true
	d.mode = mode
	d.mu.Unlock()
}

// Reset forgets the applied mode and the throttle window.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	d.applied = false
	d.mode = domain.ModeNormal
	d.limiter = d.newLimiter()
	d.mu.Unlock()
}
