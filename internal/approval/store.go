package approval

import (
	"context"
	"sort"
	"sync"

	"renos/pkg/errors"
)

// Store persists held responses. The memory implementation backs a
// single service instance; decisions survive only as audit events.
type Store interface {
	Save(ctx context.Context, resp *PendingResponse) error
	Get(ctx context.Context, id string) (*PendingResponse, error)
	Update(ctx context.Context, resp *PendingResponse) error
	ListPending(ctx context.Context) ([]*PendingResponse, error)
	OpenForLead(ctx context.Context, leadID string) (*PendingResponse, error)
}

type MemoryStore struct {
	mu        sync.RWMutex
	responses map[string]*PendingResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{responses: make(map[string]*PendingResponse)}
}

func (s *MemoryStore) Save(_ context.Context, resp *PendingResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.responses[resp.ID]; exists {
		return errors.ErrConflict.WithDetail("id", resp.ID)
	}
	s.responses[resp.ID] = resp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*PendingResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp, ok := s.responses[id]
	if !ok {
		return nil, errors.ErrNotFound.WithDetail("id", id)
	}
	return resp, nil
}

func (s *MemoryStore) Update(_ context.Context, resp *PendingResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.responses[resp.ID]; !ok {
		return errors.ErrNotFound.WithDetail("id", resp.ID)
	}
	s.responses[resp.ID] = resp
	return nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]*PendingResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*PendingResponse
	for _, resp := range s.responses {
		if resp.Status == StatusPending {
			pending = append(pending, resp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (s *MemoryStore) OpenForLead(_ context.Context, leadID string) (*PendingResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, resp := range s.responses {
		if resp.LeadID == leadID && !resp.Status.Terminal() {
			return resp, nil
		}
	}
	return nil, nil
}
