// Package redisstore is the production match.MatchRepository backed by
// Redis. Each match is one JSON document; a per-lobby key points at the
// current waiting match and a per-user set indexes membership. Saves use
// WATCH to get compare-and-swap semantics on the document version.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/models"
)

const (
	matchKeyPrefix = "match:"
	scanBatchSize  = 100

	// matchTTL bounds how long any live match document can linger. It is
	// well past the hard-expiry window, so the sweeper always retires
	// matches first; the TTL only catches documents orphaned by bugs.
	matchTTL = 24 * time.Hour
)

// Store is a Redis-backed match repository.
type Store struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func matchKey(matchID string) string {
	return matchKeyPrefix + matchID
}

func waitingKey(lobbyType string) string {
	return fmt.Sprintf("lobby:%s:waiting", lobbyType)
}

func userMatchesKey(userID string) string {
	return fmt.Sprintf("user:%s:matches", userID)
}

func (s *Store) GetWaiting(ctx context.Context, lobbyType string) (string, error) {
	id, err := s.client.Get(ctx, waitingKey(lobbyType)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get waiting pointer: %w", err)
	}
	return id, nil
}

func (s *Store) SetWaiting(ctx context.Context, lobbyType, matchID string) error {
	if err := s.client.Set(ctx, waitingKey(lobbyType), matchID, 0).Err(); err != nil {
		return fmt.Errorf("failed to set waiting pointer: %w", err)
	}
	return nil
}

func (s *Store) ClearWaiting(ctx context.Context, lobbyType string) error {
	if err := s.client.Del(ctx, waitingKey(lobbyType)).Err(); err != nil {
		return fmt.Errorf("failed to clear waiting pointer: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, matchID string) (*models.Match, error) {
	data, err := s.client.Get(ctx, matchKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, match.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return decode(data)
}

// Save writes the match document if its stored version still matches
// m.Version, bumping the version on success. The user-membership index is
// updated in the same transaction.
func (s *Store) Save(ctx context.Context, m *models.Match) error {
	key := matchKey(m.ID)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if m.Version != 0 {
				return match.ErrVersionConflict
			}
		case err != nil:
			return fmt.Errorf("failed to read match for save: %w", err)
		default:
			current, err := decode(data)
			if err != nil {
				return err
			}
			if current.Version != m.Version {
				return match.ErrVersionConflict
			}
		}

		next := *m
		next.Version = m.Version + 1
		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("failed to marshal match: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, matchTTL)
			for i := range next.Players {
				pipe.SAdd(ctx, userMatchesKey(next.Players[i].UserID), next.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		m.Version = next.Version
		return nil
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		return match.ErrVersionConflict
	}
	return err
}

func (s *Store) Remove(ctx context.Context, matchID string) error {
	m, err := s.Get(ctx, matchID)
	if errors.Is(err, match.ErrMatchNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, matchKey(matchID))
		for i := range m.Players {
			pipe.SRem(ctx, userMatchesKey(m.Players[i].UserID), matchID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove match: %w", err)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]*models.Match, error) {
	var out []*models.Match
	iter := s.client.Scan(ctx, 0, matchKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get match: %w", err)
		}
		m, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan matches: %w", err)
	}
	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	ids, err := s.client.SMembers(ctx, userMatchesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user match index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user matches: %w", err)
	}

	var out []*models.Match
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry for a retired match; drop it.
			s.client.SRem(ctx, userMatchesKey(userID), ids[i])
			continue
		}
		m, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func decode(data []byte) (*models.Match, error) {
	var m models.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &m, nil
}

var _ match.MatchRepository = (*Store)(nil)
