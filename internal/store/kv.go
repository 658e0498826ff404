package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// ErrKeyNotFound is returned by a KV when a key is absent.
var ErrKeyNotFound = errors.New("store: key not found")

// KV is a minimal key-value backend with get/set/remove semantics, the
// shape of browser local storage.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// DefaultSessionsKey is the key holding the saved session list.
const DefaultSessionsKey = "loto:saved_sessions"

// KVStore implements Store by keeping the whole session list as one JSON
// document under a single key. Every write replaces the document, so a
// failed Set leaves the previous list intact.
type KVStore struct {
	kv  KV
	key string
	mu  sync.Mutex // serialises read-modify-write cycles
}

// NewKVStore creates a store over kv. An empty key selects DefaultSessionsKey.
func NewKVStore(kv KV, key string) *KVStore {
	if key == "" {
		key = DefaultSessionsKey
	}
	return &KVStore{kv: kv, key: key}
}

func (s *KVStore) load(ctx context.Context) ([]model.GameSession, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []model.GameSession{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", s.key, err)
	}
	var sessions []model.GameSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("kv decode %s: %w", s.key, err)
	}
	return sessions, nil
}

func (s *KVStore) save(ctx context.Context, sessions []model.GameSession) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("kv set %s: %w", s.key, err)
	}
	return nil
}

func (s *KVStore) CreateSession(ctx context.Context, gs *model.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range sessions {
		if existing.ID == gs.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, gs.ID)
		}
	}
	return s.save(ctx, append(sessions, cloneSession(gs)))
}

func (s *KVStore) GetSession(ctx context.Context, id string) (*model.GameSession, error) {
	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) ListSessions(ctx context.Context) ([]model.GameSession, error) {
	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *KVStore) UpdateSessionResult(ctx context.Context, id, status string, result *model.GameResult, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range sessions {
		if sessions[i].ID != id {
			continue
		}
		sessions[i].Status = status
		sessions[i].Results = result
		at := checkedAt.UTC()
		sessions[i].CheckedAt = &at
		return s.save(ctx, sessions)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return s.save(ctx, append(sessions[:i], sessions[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) GetSpendByGameDate(ctx context.Context) (map[string]decimal.Decimal, error) {
	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return spendByDate(sessions), nil
}

// MemoryKV is an in-process KV. Values are copied on the way in and out.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
