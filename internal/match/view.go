package match

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wordgems/backend/internal/models"
)

// MatchView is the client-shaped projection of a match from one player's
// perspective. Opponent words stay hidden until the match completes.
type MatchView struct {
	MatchID          string       `json:"match_id"`
	LobbyID          string       `json:"lobby_id"`
	Board            models.Board `json:"board"`
	TimerSeconds     int          `json:"timer"`
	MyWords          []string     `json:"my_words"`
	OpponentWords    []string     `json:"opponent_words"`
	Completed        bool         `json:"completed"`
	MyScore          int          `json:"my_score"`
	MyWordScore      int          `json:"my_word_score"`
	MyTimeBonus      int          `json:"my_time_bonus"`
	OpponentScore    int          `json:"opponent_score"`
	OpponentID       string       `json:"opponent_id,omitempty"`
	OpponentName     string       `json:"opponent_name"`
	CreatedAt        time.Time    `json:"created_at"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	EndedAt          *time.Time   `json:"ended_at,omitempty"`
	EntryFee         int          `json:"entry_fee"`
	PrizePool        int          `json:"prize_pool"`
	GameDuration     int          `json:"game_duration"`
	PlayerDeadlineAt *time.Time   `json:"player_deadline_at,omitempty"`
}

// NewMatchView projects a match for the given player.
func NewMatchView(m *models.Match, userID string, clock clockwork.Clock) *MatchView {
	me := m.Player(userID)
	other := m.Opponent(userID)

	v := &MatchView{
		MatchID:      m.ID,
		LobbyID:      m.LobbyType,
		Board:        m.Board,
		MyWords:      []string{},
		OpponentWords: []string{},
		Completed:    m.IsCompleted(),
		CreatedAt:    m.CreatedAt,
		StartedAt:    m.StartedAt,
		EndedAt:      m.EndedAt,
		EntryFee:     m.EntryFee,
		PrizePool:    m.PrizePool,
		GameDuration: m.GameDuration,
		OpponentName: "Opponent",
	}

	if me != nil {
		v.MyWords = append(v.MyWords, me.Words...)
		v.MyScore = me.Score
		v.MyWordScore = me.WordScore
		v.MyTimeBonus = me.TimeBonus
		deadline := me.DeadlineAt
		v.PlayerDeadlineAt = &deadline
		if !me.HasSubmitted() && !m.IsCompleted() {
			if remaining := deadline.Sub(clock.Now()); remaining > 0 {
				v.TimerSeconds = int(remaining / time.Second)
			}
		}
	}

	if other != nil {
		v.OpponentScore = other.Score
		v.OpponentID = other.UserID
		v.OpponentName = other.Name
		if m.IsCompleted() {
			v.OpponentWords = append(v.OpponentWords, other.Words...)
		}
	}

	return v
}

// LobbySummary is a lobby preset annotated with current waiting occupancy.
type LobbySummary struct {
	models.LobbyConfig
	CurrentPlayers int `json:"current_players"`
}

// SubmitResult reports the outcome of a word submission.
type SubmitResult struct {
	MyScore   int  `json:"my_score"`
	Completed bool `json:"completed"`
}

// WordValidation reports the outcome of a single-word legality check.
type WordValidation struct {
	Word  string `json:"word"`
	Valid bool   `json:"valid"`
}
