package gesture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// DefaultPollInterval is the classification cadence (about 10 Hz).
const DefaultPollInterval = 100 * time.Millisecond

// PollerOption configures the Poller.
type PollerOption func(*Poller)

// WithPollInterval sets how often a frame is classified.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithDeviceFailureThreshold sets how many consecutive device failures
// are tolerated before the device error is reported.
func WithDeviceFailureThreshold(n int) PollerOption {
	return func(p *Poller) { p.failureThreshold = n }
}

// WithDeviceErrorHandler sets the callback for a camera failure. It is
// called once per failure run.
func WithDeviceErrorHandler(fn func(error)) PollerOption {
	return func(p *Poller) { p.onDeviceError = fn }
}

// Poller captures a frame on every tick, posts it to the classifier and
// delivers the result to its sink. Classification errors are recorded as
// a string and never stop the loop. Ticks that arrive while a
// classification is in flight are dropped, so the most recent frame
// always wins.
type Poller struct {
	frames           domain.FrameSource
	classifier       domain.GestureClassifier
	sink             Sink
	log              *logger.Logger
	interval         time.Duration
	failureThreshold int
	onDeviceError    func(error)

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastErr     string
	last        domain.GestureSample
	haveLast    bool
	deviceFails int
	reported    bool
}

// NewPoller creates a classification poller.
func NewPoller(frames domain.FrameSource, classifier domain.GestureClassifier, sink Sink, log *logger.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		frames:           frames,
		classifier:       classifier,
		sink:             sink,
		log:              log,
		interval:         DefaultPollInterval,
		failureThreshold: 10,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling in the background. Non-blocking.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Warn("gesture poller already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.done = make(chan struct{})

	go p.loop(childCtx, p.done)
	p.log.Info("gesture poller started (interval=%s)", p.interval)
}

// Stop halts polling and waits for the loop to exit. Safe to call when
// not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	done := p.done
	p.mu.Unlock()

	<-done
	p.log.Info("gesture poller stopped")
}

// LastError returns the most recent classification error, or "".
func (p *Poller) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Last returns the most recent successful sample.
func (p *Poller) Last() (domain.GestureSample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.haveLast
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	frame, err := p.frames.Frame(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.frameFailed(err)
		}
		return
	}

	sample, err := p.classifier.Classify(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		p.lastErr = err.Error()
		p.deviceFails = 0
		p.mu.Unlock()
		p.log.Debug("gesture poller: classify failed: %v", err)
		return
	}
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = time.Now()
	}

	p.mu.Lock()
	p.lastErr = ""
	p.last = sample
	p.haveLast = true
	p.deviceFails = 0
	p.reported = false
	p.mu.Unlock()

	p.sink.Observe(sample)
}

// frameFailed counts consecutive camera failures and reports the run
// once it crosses the threshold.
func (p *Poller) frameFailed(err error) {
	p.mu.Lock()
	p.lastErr = err.Error()
	p.deviceFails++
	report := errors.Is(err, domain.ErrDeviceUnavailable) &&
		p.deviceFails >= p.failureThreshold && !p.reported
	if report {
		p.reported = true
	}
	p.mu.Unlock()

	if report {
		p.log.Warn("gesture poller: camera unavailable: %v", err)
		if p.onDeviceError != nil {
			p.onDeviceError(err)
		}
	} else {
		p.log.Debug("gesture poller: frame failed: %v", err)
	}
}
