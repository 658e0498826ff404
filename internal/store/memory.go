package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.GameSession
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.GameSession),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, gs *model.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[gs.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, gs.ID)
	}

	// Store a copy to avoid external mutation.
	c := cloneSession(gs)
	s.sessions[gs.ID] = &c
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gs, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := cloneSession(gs)
	return &c, nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]model.GameSession, 0, len(s.sessions))
	for _, gs := range s.sessions {
		sessions = append(sessions, cloneSession(gs))
	}
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *MemoryStore) UpdateSessionResult(_ context.Context, id, status string, result *model.GameResult, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	// Build the updated copy first so a failure leaves state untouched.
	updated := cloneSession(gs)
	updated.Status = status
	if result != nil {
		tmp := model.GameSession{Results: result}
		updated.Results = cloneSession(&tmp).Results
	}
	at := checkedAt.UTC()
	updated.CheckedAt = &at
	s.sessions[id] = &updated
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) GetSpendByGameDate(_ context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]model.GameSession, 0, len(s.sessions))
	for _, gs := range s.sessions {
		sessions = append(sessions, *gs)
	}
	return spendByDate(sessions), nil
}
