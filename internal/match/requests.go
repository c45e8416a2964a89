package match

import "strings"

// Typed, pre-validated request objects. Validation runs before any engine
// logic so malformed input never reaches the store or the ledger.

// JoinRequest seats a user in a lobby's waiting match.
type JoinRequest struct {
	LobbyType   string
	UserID      string
	DisplayName string
}

// Validate checks required fields and defaults the display name.
func (r *JoinRequest) Validate() error {
	if strings.TrimSpace(r.LobbyType) == "" {
		return &ValidationError{Field: "lobby_type", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.UserID) == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		r.DisplayName = "Player"
	}
	return nil
}

// SaveWordsRequest stores a draft word list without scoring it.
type SaveWordsRequest struct {
	MatchID string
	UserID  string
	Words   []string
}

func (r *SaveWordsRequest) Validate() error {
	if r.MatchID == "" {
		return &ValidationError{Field: "match_id", Reason: "must not be empty"}
	}
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	return nil
}

// SubmitRequest finalizes a player's word list for scoring.
type SubmitRequest struct {
	MatchID string
	UserID  string
	Words   []string
}

func (r *SubmitRequest) Validate() error {
	if r.MatchID == "" {
		return &ValidationError{Field: "match_id", Reason: "must not be empty"}
	}
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	return nil
}

// ValidateWordRequest checks a single word against the dictionary and the
// match board without mutating anything.
type ValidateWordRequest struct {
	MatchID string
	UserID  string
	Word    string
}

func (r *ValidateWordRequest) Validate() error {
	if r.MatchID == "" {
		return &ValidationError{Field: "match_id", Reason: "must not be empty"}
	}
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Word) == "" {
		return &ValidationError{Field: "word", Reason: "must not be empty"}
	}
	return nil
}
