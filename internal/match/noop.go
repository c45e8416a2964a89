package match

import (
	"context"

	"github.com/wordgems/backend/internal/models"
)

// NoopPublisher discards all lifecycle events. It is the default when no
// publisher is configured.
type NoopPublisher struct{}

func (NoopPublisher) MatchCompleted(context.Context, *models.Match) error { return nil }

func (NoopPublisher) MatchSettled(context.Context, *models.Match) error { return nil }

func (NoopPublisher) PlayerTimedOut(context.Context, *models.Match, string) error { return nil }
