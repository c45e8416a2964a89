// Package history is the durable record of completed matches. The full
// match document is stored as JSONB so replays and client views survive
// the live store's retirement of the match.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/models"
)

const uniqueViolation = "23505"

// PostgresHistory implements the engine's History on a completed_matches
// table.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory wraps an open database handle.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// CreateCompleted persists a completed match. Writing a match id that
// already exists is a no-op; settlement retries re-run this step.
func (h *PostgresHistory) CreateCompleted(ctx context.Context, m *models.Match) error {
	players, err := json.Marshal(m.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	board, err := json.Marshal(m.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO completed_matches
		   (id, lobby_type, board, players, entry_fee, prize_pool, game_duration, created_at, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.LobbyType, board, players,
		m.EntryFee, m.PrizePool, m.GameDuration,
		m.CreatedAt, m.StartedAt, m.EndedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil
		}
		return fmt.Errorf("failed to persist completed match: %w", err)
	}

	log.Debug().Str("match_id", m.ID).Msg("persisted completed match")
	return nil
}

// GetCompleted loads one completed match by id.
func (h *PostgresHistory) GetCompleted(ctx context.Context, matchID string) (*models.Match, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT id, lobby_type, board, players, entry_fee, prize_pool, game_duration, created_at, started_at, ended_at
		   FROM completed_matches WHERE id = $1`,
		matchID,
	)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, match.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load completed match: %w", err)
	}
	return m, nil
}

// ListRecentByUser returns the user's most recent completed matches,
// newest first.
func (h *PostgresHistory) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*models.Match, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, lobby_type, board, players, entry_fee, prize_pool, game_duration, created_at, started_at, ended_at
		   FROM completed_matches
		  WHERE players @> $1::jsonb
		  ORDER BY ended_at DESC
		  LIMIT $2`,
		fmt.Sprintf(`[{"user_id": %q}]`, userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completed match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m       models.Match
		board   []byte
		players []byte
	)
	err := row.Scan(
		&m.ID, &m.LobbyType, &board, &players,
		&m.EntryFee, &m.PrizePool, &m.GameDuration,
		&m.CreatedAt, &m.StartedAt, &m.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(board, &m.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	if err := json.Unmarshal(players, &m.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}
	m.Status = models.MatchStatusCompleted
	m.SettledAt = m.EndedAt
	return &m, nil
}

var _ match.History = (*PostgresHistory)(nil)
