// Package store provides checkpoint store implementations for intake
// conversation state: an in-memory store with TTL eviction for development
// and tests, and a Postgres-backed store for real deployments.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"medical-intake-agent/internal/intake"
)

type memoryEntry struct {
	state     *intake.ConversationState
	expiresAt time.Time
}

// MemoryStore keeps conversation state in a map guarded by a RWMutex.
// Unlike the original in-memory checkpoint map this one evicts: entries
// older than the TTL are dropped by a background janitor and treated as
// not found on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore builds an in-memory store. A ttl of zero disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.evictExpired(); n > 0 {
				log.Debug().Int("evicted", n).Msg("checkpoint store evicted expired threads")
			}
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) evictExpired() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Get returns a deep copy so callers can never alias the stored record.
func (s *MemoryStore) Get(ctx context.Context, threadID string) (*intake.ConversationState, error) {
	s.mu.RLock()
	e, ok := s.entries[threadID]
	s.mu.RUnlock()
	if !ok {
		return nil, intake.ErrThreadNotFound
	}
	if s.ttl > 0 && time.Now().After(e.expiresAt) {
		return nil, intake.ErrThreadNotFound
	}
	return e.state.Clone(), nil
}

// Put stores a deep copy of the state and refreshes its TTL.
func (s *MemoryStore) Put(ctx context.Context, state *intake.ConversationState) error {
	clone := state.Clone()
	clone.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.entries[state.ThreadID] = memoryEntry{
		state:     clone,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}
