package match

import (
	"context"

	"github.com/wordgems/backend/internal/models"
)

// MatchRepository is the live match store. It keeps one document per match,
// a per-lobby pointer to the current waiting match, and a per-user index of
// match membership. Implementations provide last-write storage plus a
// version check on Save; no multi-key transaction is assumed.
type MatchRepository interface {
	// GetWaiting returns the waiting match id for a lobby type, or "" when
	// no pointer is set.
	GetWaiting(ctx context.Context, lobbyType string) (string, error)
	SetWaiting(ctx context.Context, lobbyType, matchID string) error
	ClearWaiting(ctx context.Context, lobbyType string) error

	// Get returns ErrMatchNotFound for unknown ids.
	Get(ctx context.Context, matchID string) (*models.Match, error)

	// Save persists the match if the stored version still equals
	// match.Version, then increments the version. A mismatch returns
	// ErrVersionConflict and leaves the store untouched. A match with
	// version zero and no stored copy is created.
	Save(ctx context.Context, m *models.Match) error

	// Remove deletes the match document and its user-index entries.
	Remove(ctx context.Context, matchID string) error

	ListAll(ctx context.Context) ([]*models.Match, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Match, error)
}

// Ledger is the financial collaborator. Both operations are atomic and
// idempotent at the ledger boundary, keyed by (user, match, type, rank);
// a duplicate attempt is reported as success, never as a second movement
// of funds.
type Ledger interface {
	// TryDebit captures an entry fee. It returns false, with no balance
	// change, when the user cannot cover the amount.
	TryDebit(ctx context.Context, userID string, amount int, ref models.TxRef) (bool, error)

	// CreditPrize pays out winnings for a final rank.
	CreditPrize(ctx context.Context, userID string, amount int, ref models.TxRef) error

	// Refund returns a captured entry fee, used when a seat reservation
	// has to be abandoned after its fee was already taken.
	Refund(ctx context.Context, userID string, amount int, ref models.TxRef) error
}

// History is the durable record of completed matches. CreateCompleted is
// create-once: writing a match id that already exists is a benign no-op.
type History interface {
	CreateCompleted(ctx context.Context, m *models.Match) error

	// GetCompleted returns ErrMatchNotFound for unknown ids.
	GetCompleted(ctx context.Context, matchID string) (*models.Match, error)

	// ListRecentByUser returns the user's most recent completed matches,
	// newest first.
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*models.Match, error)
}
