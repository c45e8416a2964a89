// Package events publishes match lifecycle events to NATS JetStream.
// Message ids are derived from the match id and event type, so settlement
// retries that re-emit an event are dropped inside the stream's duplicate
// window instead of reaching consumers twice.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/wordgems/backend/internal/models"
)

// Event types emitted by the match engine.
const (
	TypeMatchCompleted = "MatchCompleted"
	TypeMatchSettled   = "MatchSettled"
	TypePlayerTimedOut = "PlayerTimedOut"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	MatchID   string      `json:"match_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PlayerResult is one seat's final standing.
type PlayerResult struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	Winnings int    `json:"winnings"`
}

// MatchCompletedPayload announces final scores and ranks.
type MatchCompletedPayload struct {
	LobbyType string         `json:"lobby_type"`
	PrizePool int            `json:"prize_pool"`
	Players   []PlayerResult `json:"players"`
}

// MatchSettledPayload announces that all prizes have been credited.
type MatchSettledPayload struct {
	LobbyType string         `json:"lobby_type"`
	PrizePool int            `json:"prize_pool"`
	Winners   []PlayerResult `json:"winners"`
}

// PlayerTimedOutPayload announces an auto-submitted seat.
type PlayerTimedOutPayload struct {
	LobbyType string `json:"lobby_type"`
	UserID    string `json:"user_id"`
	Score     int    `json:"score"`
}

func newEnvelope(eventType, matchID string, payload interface{}) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		MatchID:   matchID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func playerResults(players []models.MatchPlayer) []PlayerResult {
	out := make([]PlayerResult, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerResult{
			UserID:   p.UserID,
			Name:     p.Name,
			Score:    p.Score,
			Rank:     p.Rank,
			Winnings: p.Winnings,
		})
	}
	return out
}

func winners(players []models.MatchPlayer) []PlayerResult {
	var out []PlayerResult
	for _, p := range players {
		if p.Winnings <= 0 {
			continue
		}
		out = append(out, PlayerResult{
			UserID:   p.UserID,
			Name:     p.Name,
			Score:    p.Score,
			Rank:     p.Rank,
			Winnings: p.Winnings,
		})
	}
	return out
}
