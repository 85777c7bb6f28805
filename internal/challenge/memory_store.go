package challenge

import (
	"context"
	"fmt"
	"sync"
)

type memoryEntry struct {
	challenge Challenge
	consumed  bool
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryStore builds an in-memory challenge store for testing.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *memoryStore) Save(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[ch.RequestID]; exists {
		return fmt.Errorf("challenge %s already exists", ch.RequestID)
	}
	s.entries[ch.RequestID] = &memoryEntry{challenge: ch}
	return nil
}

func (s *memoryStore) Find(_ context.Context, requestID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[requestID]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	if entry.consumed {
		return Challenge{}, ErrAlreadyUsed
	}
	return entry.challenge, nil
}

func (s *memoryStore) Consume(_ context.Context, requestID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[requestID]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	if entry.consumed {
		return Challenge{}, ErrAlreadyUsed
	}
	entry.consumed = true
	return entry.challenge, nil
}
