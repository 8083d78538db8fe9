package history

import (
	"sort"
	"sync"

	"github.com/driftbot/driftbot/internal/schema"
)

// MemoryStorage keeps conversations in process memory. It is the default
// backend and the reference for backend-parity tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	convs map[string]*schema.Conversation
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{convs: make(map[string]*schema.Conversation)}
}

func (s *MemoryStorage) Load(id string) (*schema.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, errNotFound
	}
	return conv.Clone(), nil
}

func (s *MemoryStorage) Save(conv *schema.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv.Clone()
	return nil
}

func (s *MemoryStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	return nil
}

func (s *MemoryStorage) List(owner string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Summary
	for _, c := range s.convs {
		if owner != "" && c.Owner != owner {
			continue
		}
		out = append(out, Summary{
			ID:           c.ID,
			Owner:        c.Owner,
			MessageCount: len(c.Messages),
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStorage) Close() error { return nil }
