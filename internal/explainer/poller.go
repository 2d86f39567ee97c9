// Package explainer fetches the topic card that accompanies an answer.
//
// The card is produced asynchronously by the backend and identified by a
// job id. The [Poller] polls for it on its own goroutine under a hard
// timeout, so scene playback never waits on it, and then resolves an
// illustrative image through a fallback chain that always ends at a
// locally generated placeholder.
package explainer

import (
	"context"
	"errors"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

const (
	DefaultInterval = 800 * time.Millisecond
	DefaultAttempts = 25
	DefaultTimeout  = 8 * time.Second
)

// Option configures the Poller.
type Option func(*Poller)

// WithInterval sets the delay between polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithAttempts sets the maximum number of polls.
func WithAttempts(n int) Option {
	return func(p *Poller) { p.attempts = n }
}

// WithTimeout sets the hard timeout over the whole poll chain.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) { p.timeout = d }
}

// WithImages sets the topic image resolver. Without one, topics carry
// no image.
func WithImages(r *Resolver) Option {
	return func(p *Poller) { p.images = r }
}

// Poller fetches explainers by job id.
type Poller struct {
	svc      domain.ExplainerService
	images   *Resolver
	log      *logger.Logger
	interval time.Duration
	attempts int
	timeout  time.Duration
}

// NewPoller creates a poller over the explainer service.
func NewPoller(svc domain.ExplainerService, log *logger.Logger, opts ...Option) *Poller {
	p := &Poller{
		svc:      svc,
		log:      log,
		interval: DefaultInterval,
		attempts: DefaultAttempts,
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Fetch returns the topic for an answer, or nil when there is none.
// With no job id the inline explainer is used without polling. The
// returned topic is nil if the job is unknown, never settles before the
// timeout, or ctx ends first.
func (p *Poller) Fetch(ctx context.Context, jobID string, inline *domain.Explainer, lang string) *domain.Topic {
	var exp *domain.Explainer
	if jobID == "" {
		exp = inline
	} else {
		exp = p.Await(ctx, jobID)
	}
	if exp == nil || ctx.Err() != nil {
		return nil
	}

	topic := &domain.Topic{Explainer: exp}
	if p.images != nil {
		topic.Image = p.images.Resolve(ctx, exp.Query(), lang)
	}
	return topic
}

// Await polls for a job under the hard timeout. Whichever comes first
// wins: a settled job, exhaustion, the timeout, or ctx. The losing poll
// chain is cancelled.
func (p *Poller) Await(ctx context.Context, jobID string) *domain.Explainer {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan *domain.Explainer, 1)
	go func() { result <- p.poll(pollCtx, jobID) }()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case exp := <-result:
		return exp
	case <-timer.C:
		p.log.Info("explainer: job %s timed out after %s", jobID, p.timeout)
		return nil
	case <-ctx.Done():
		return nil
	}
}

// poll runs the attempt loop. 404 ends it at once; every other error is
// treated as transient.
func (p *Poller) poll(ctx context.Context, jobID string) *domain.Explainer {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		job, err := p.svc.FetchExplainer(ctx, jobID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			p.log.Debug("explainer: job %s not found", jobID)
			return nil
		case err != nil:
			p.log.Debug("explainer: job %s attempt %d: %v", jobID, attempt, err)
		case job.Status.Settled() && job.Payload != nil:
			p.log.Debug("explainer: job %s %s after %d attempts", jobID, job.Status, attempt)
			return job.Payload
		case job.Status == domain.JobFailed:
			p.log.Debug("explainer: job %s failed: %s", jobID, job.Error)
		}

		if attempt == p.attempts {
			break
		}
		t := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
	p.log.Debug("explainer: job %s exhausted %d attempts", jobID, p.attempts)
	return nil
}
