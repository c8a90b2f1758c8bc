package memory

import (
	"context"
	"sync"
)

// Store persists conversation memory keyed by conversation ID.
type Store interface {
	Load(ctx context.Context, conversationID string) (*ConversationMemory, error)
	Save(ctx context.Context, conversationID string, m *ConversationMemory) error
}

// InMemoryStore keeps memories in process. Used when Redis is not configured
// and in tests.
type InMemoryStore struct {
	mu    sync.Mutex
	limit int
	data  map[string][]Turn
}

func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{limit: limit, data: make(map[string][]Turn)}
}

func (s *InMemoryStore) Load(_ context.Context, conversationID string) (*ConversationMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FromTurns(s.limit, s.data[conversationID]), nil
}

func (s *InMemoryStore) Save(_ context.Context, conversationID string, m *ConversationMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conversationID] = m.Turns()
	return nil
}
