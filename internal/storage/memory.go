// Package storage provides chat history implementations.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Compile-time interface check.
var _ domain.ChatLog = (*MemoryChatLog)(nil)

// DefaultChatLimit is how many entries a MemoryChatLog keeps.
const DefaultChatLimit = 200

// MemoryChatLog is an in-memory, bounded chat history. Oldest entries
// are dropped first. Safe for concurrent access.
type MemoryChatLog struct {
	mu      sync.RWMutex
	entries []domain.ChatEntry
	limit   int
	log     *logger.Logger
	onAdd   func(domain.ChatEntry)
}

// NewMemoryChatLog creates an empty chat log holding at most limit
// entries. A limit <= 0 uses DefaultChatLimit.
func NewMemoryChatLog(limit int, log *logger.Logger) *MemoryChatLog {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	return &MemoryChatLog{limit: limit, log: log}
}

// OnAppend registers a callback run after every append, outside the lock.
func (s *MemoryChatLog) OnAppend(fn func(domain.ChatEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdd = fn
}

// Append adds an entry, filling in ID and timestamp when missing.
func (s *MemoryChatLog) Append(ctx context.Context, entry domain.ChatEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.limit; over > 0 {
		s.entries = append(s.entries[:0:0], s.entries[over:]...)
	}
	hook := s.onAdd
	s.mu.Unlock()

	s.log.Debug("chat: %s said %d chars (id=%s)", entry.Speaker, len(entry.Text), entry.ID)
	if hook != nil {
		hook(entry)
	}
	return nil
}

// List returns a copy of the history, oldest first.
func (s *MemoryChatLog) List(ctx context.Context) ([]domain.ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ChatEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// LastFrom returns the newest entry by speaker.
func (s *MemoryChatLog) LastFrom(ctx context.Context, speaker domain.Speaker) (domain.ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Speaker == speaker {
			return s.entries[i], nil
		}
	}
	return domain.ChatEntry{}, domain.ErrNotFound
}

// Clear removes every entry.
func (s *MemoryChatLog) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("chat: cleared %d entries", len(s.entries))
	s.entries = nil
	return nil
}
