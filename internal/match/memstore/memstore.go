// Package memstore is the in-memory match.MatchRepository, used in tests
// and for single-process development runs. Documents are deep-copied on
// every read and write so callers never share memory with the store, which
// keeps the optimistic-concurrency semantics identical to the Redis store.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/models"
)

// Store is a map-backed match repository guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	matches map[string]*models.Match
	waiting map[string]string
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		matches: make(map[string]*models.Match),
		waiting: make(map[string]string),
	}
}

func (s *Store) GetWaiting(ctx context.Context, lobbyType string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waiting[lobbyType], nil
}

func (s *Store) SetWaiting(ctx context.Context, lobbyType, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting[lobbyType] = matchID
	return nil
}

func (s *Store) ClearWaiting(ctx context.Context, lobbyType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waiting, lobbyType)
	return nil
}

func (s *Store) Get(ctx context.Context, matchID string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, match.ErrMatchNotFound
	}
	return clone(m)
}

func (s *Store) Save(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.matches[m.ID]
	if exists {
		if current.Version != m.Version {
			return match.ErrVersionConflict
		}
	} else if m.Version != 0 {
		return match.ErrVersionConflict
	}

	stored, err := clone(m)
	if err != nil {
		return err
	}
	stored.Version++
	s.matches[m.ID] = stored
	m.Version = stored.Version
	return nil
}

func (s *Store) Remove(ctx context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, matchID)
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		c, err := clone(m)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Match
	for _, m := range s.matches {
		if m.Player(userID) == nil {
			continue
		}
		c, err := clone(m)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func clone(m *models.Match) (*models.Match, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to copy match: %w", err)
	}
	var c models.Match
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to copy match: %w", err)
	}
	return &c, nil
}

var _ match.MatchRepository = (*Store)(nil)
