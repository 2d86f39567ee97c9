package gesture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// StreamOption configures the Stream.
type StreamOption func(*Stream)

// WithBackoff sets the initial and maximum reconnect delays.
func WithBackoff(initial, max time.Duration) StreamOption {
	return func(s *Stream) {
		s.backoff = initial
		s.maxBackoff = max
	}
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d *websocket.Dialer) StreamOption {
	return func(s *Stream) { s.dialer = d }
}

// Stream receives classifier results pushed over a WebSocket and
// delivers each one to its sink as soon as it arrives. The connection is
// re-established with exponential backoff.
type Stream struct {
	url        string
	sink       Sink
	log        *logger.Logger
	dialer     *websocket.Dialer
	backoff    time.Duration
	maxBackoff time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   string
}

// NewStream creates a push stream client for the given ws:// URL.
func NewStream(url string, sink Sink, log *logger.Logger, opts ...StreamOption) *Stream {
	s := &Stream{
		url:        url,
		sink:       sink,
		log:        log,
		dialer:     websocket.DefaultDialer,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects in the background. Non-blocking.
func (s *Stream) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.connectLoop(ctx, s.done)
}

// Stop closes the connection and waits for the loop to exit.
func (s *Stream) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsConnected reports whether the socket is up.
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// LastError returns the most recent stream or classifier error, or "".
func (s *Stream) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Stream) connectLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := s.backoff
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}

		// A clean close still waits the base delay before redialing.
		wait := s.backoff
		if err == nil {
			backoff = s.backoff
			failures = 0
			s.log.Debug("gesture stream closed by server (redial in %s)", wait)
		} else {
			failures++
			s.setErr(err)
			wait = backoff
			if failures == 3 {
				s.log.Warn("gesture stream unavailable, retrying less often: %v", err)
			} else {
				s.log.Debug("gesture stream: %v (retry in %s)", err, backoff)
			}
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// session dials once and reads until the connection drops. A clean
// close after a successful dial returns nil.
func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("gesture stream connected: %s", s.url)

	// ReadJSON does not watch ctx; closing the conn unblocks it.
	closed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()

	defer func() {
		close(closed)
		s.mu.Lock()
		s.conn = nil
		s.connected = false
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var res Result
		if err := conn.ReadJSON(&res); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if res.Error != "" {
			s.setErr(fmt.Errorf("classifier: %s", res.Error))
			continue
		}
		s.sink.Observe(res.Sample(time.Now()))
	}
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}
