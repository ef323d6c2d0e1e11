package cart

import (
	"context"
	"sync"
)

// MemoryStore keeps carts in process memory. Used when no Redis is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]Line
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Line)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, ok := s.carts[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]Line(nil), lines...), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionID] = append([]Line(nil), lines...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
