package models

import (
	"time"
)

// Board is a square grid of letter tokens. A token is usually a single
// letter, but combined faces such as "QU" occupy one cell.
type Board [][]string

// MatchStatus defines the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusWaiting   MatchStatus = "waiting"
	MatchStatusStarted   MatchStatus = "started"
	MatchStatusCompleted MatchStatus = "completed"
)

// MatchPlayer is one seat in a match.
type MatchPlayer struct {
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Words       []string   `json:"words"`
	Score       int        `json:"score"`
	WordScore   int        `json:"word_score"`
	TimeBonus   int        `json:"time_bonus"`
	JoinedAt    time.Time  `json:"joined_at"`
	DeadlineAt  time.Time  `json:"deadline_at"`
	PaidEntry   bool       `json:"paid_entry"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Rank        int        `json:"rank,omitempty"`
	Winnings    int        `json:"winnings,omitempty"`
}

// HasSubmitted reports whether the player's words and score are frozen.
func (p *MatchPlayer) HasSubmitted() bool {
	return p.SubmittedAt != nil
}

// Match is one timed contest instance for a lobby type.
type Match struct {
	ID            string        `json:"id"`
	LobbyType     string        `json:"lobby_type"`
	Board         Board         `json:"board"`
	CreatedAt     time.Time     `json:"created_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	EntryFee      int           `json:"entry_fee"`
	PrizePool     int           `json:"prize_pool"`
	GameDuration  int           `json:"game_duration"` // seconds
	Players       []MatchPlayer `json:"players"`
	Status        MatchStatus   `json:"status"`
	HardExpiresAt time.Time     `json:"hard_expires_at"`
	SettledAt     *time.Time    `json:"settled_at,omitempty"`

	// Version is the optimistic concurrency token. The store rejects a
	// save whose version does not match the stored copy.
	Version int64 `json:"version"`
}

// Player returns the seat for the given user, or nil.
func (m *Match) Player(userID string) *MatchPlayer {
	for i := range m.Players {
		if m.Players[i].UserID == userID {
			return &m.Players[i]
		}
	}
	return nil
}

// Opponent returns the first seat not held by the given user, or nil.
func (m *Match) Opponent(userID string) *MatchPlayer {
	for i := range m.Players {
		if m.Players[i].UserID != userID {
			return &m.Players[i]
		}
	}
	return nil
}

// IsCompleted reports whether the match has reached its terminal state.
func (m *Match) IsCompleted() bool {
	return m.Status == MatchStatusCompleted
}

// IsSettled reports whether prizes have been credited for this match.
func (m *Match) IsSettled() bool {
	return m.SettledAt != nil
}
