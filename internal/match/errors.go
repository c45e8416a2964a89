package match

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the engine and its callers. Validation,
// not-found, conflict, insufficient-funds, and deadline errors are fixed:
// retrying the same request cannot succeed. Anything else surfaced by the
// engine is transient infrastructure failure and safe to retry.
var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrPlayerNotInMatch  = errors.New("player not in match")
	ErrNoActiveMatch     = errors.New("no active match for user")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDeadlinePassed    = errors.New("player deadline has passed")
	ErrAlreadySubmitted  = errors.New("player has already submitted")

	// ErrVersionConflict is returned by MatchRepository.Save when the match
	// document changed since it was read. Callers re-read and retry.
	ErrVersionConflict = errors.New("match version conflict")
)

// ValidationError marks malformed request input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ActiveMatchConflictError is returned when a user tries to join a lobby
// while still seated, un-submitted, in a match of a different lobby type.
// Current carries the user's view of that match so the caller can resolve
// the conflict (resume it or leave it).
type ActiveMatchConflictError struct {
	Current *MatchView
}

func (e *ActiveMatchConflictError) Error() string {
	return fmt.Sprintf("user is already in active match %s and has not submitted words", e.Current.MatchID)
}
