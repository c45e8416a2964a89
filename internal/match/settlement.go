package match

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wordgems/backend/internal/board"
	"github.com/wordgems/backend/internal/dictionary"
	"github.com/wordgems/backend/internal/models"
	"github.com/wordgems/backend/internal/payout"
)

// finalizeCompleted drives a fully-submitted match to its terminal state:
// mark completed, persist the durable record, rank players, credit prizes,
// and retire the match from the live store.
//
// Every step is idempotent, so a crash mid-way is repaired by running the
// whole sequence again: history writes tolerate duplicates, prize credits
// dedupe on (user, match, type, rank), and a settled match is never paid
// twice. The match leaves the live store only once the record is durable
// AND every credit landed; otherwise it is saved back for the sweeper to
// retry.
func (e *Engine) finalizeCompleted(ctx context.Context, m *models.Match, cfg models.LobbyConfig) error {
	if m.Status != models.MatchStatusCompleted {
		m.Status = models.MatchStatusCompleted
		ended := e.clock.Now()
		m.EndedAt = &ended
		m.Players = payout.RankAndAllocate(m.Players, m.PrizePool, cfg.PayoutMultipliers)

		// Commit the terminal state before any settlement side effect, so a
		// concurrent mutation surfaces as a version conflict here rather
		// than being clobbered by the final Remove.
		if err := e.repo.Save(ctx, m); err != nil {
			return err
		}
		if err := e.publisher.MatchCompleted(ctx, m); err != nil {
			log.Warn().Str("match_id", m.ID).Err(err).Msg("failed to publish match completed event")
		}
	}

	historyOK := true
	if err := e.history.CreateCompleted(ctx, m); err != nil {
		historyOK = false
		log.Error().Str("match_id", m.ID).Err(err).Msg("failed to persist completed match")
	}

	if !m.IsSettled() {
		if e.settle(ctx, m) {
			settled := e.clock.Now()
			m.SettledAt = &settled
			if err := e.publisher.MatchSettled(ctx, m); err != nil {
				log.Warn().Str("match_id", m.ID).Err(err).Msg("failed to publish match settled event")
			}
		}
	}

	if historyOK && m.IsSettled() {
		if err := e.repo.Remove(ctx, m.ID); err != nil {
			return fmt.Errorf("failed to retire settled match: %w", err)
		}
		e.clearWaitingIfPointsTo(ctx, m.LobbyType, m.ID)
		log.Info().
			Str("match_id", m.ID).
			Int("players", len(m.Players)).
			Msg("match completed and settled")
		return nil
	}

	// Keep the live copy so the sweeper retries the failed steps.
	if err := e.repo.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to save partially settled match: %w", err)
	}
	log.Warn().
		Str("match_id", m.ID).
		Bool("history_ok", historyOK).
		Bool("settled", m.IsSettled()).
		Msg("match completion left for retry")
	return nil
}

// settle credits every positive win. It reports whether all credits
// landed; a partial failure leaves the match unsettled for retry, relying
// on the ledger's idempotency to keep already-landed credits single.
func (e *Engine) settle(ctx context.Context, m *models.Match) bool {
	ok := true
	for i := range m.Players {
		p := &m.Players[i]
		if p.Winnings <= 0 {
			continue
		}
		ref := models.TxRef{MatchID: m.ID, LobbyType: m.LobbyType, Rank: p.Rank}
		if err := e.ledger.CreditPrize(ctx, p.UserID, p.Winnings, ref); err != nil {
			ok = false
			log.Error().
				Str("match_id", m.ID).
				Str("user_id", p.UserID).
				Int("amount", p.Winnings).
				Err(err).
				Msg("failed to credit prize")
		}
	}
	return ok
}

// autoSubmit freezes an overdue player with whatever draft words they
// saved. Auto-submission earns no time bonus.
func (e *Engine) autoSubmit(ctx context.Context, m *models.Match, p *models.MatchPlayer) {
	valid := []string{}
	seen := make(map[string]struct{})
	for _, w := range p.Words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if !dictionary.IsNormalWord(w) || !e.dict.Contains(w) || !board.CanFormWord(m.Board, w) {
			continue
		}
		valid = append(valid, w)
	}

	wordScore := 0
	for _, w := range valid {
		wordScore += len(w) * len(w)
	}

	submitted := e.clock.Now()
	p.Words = valid
	p.WordScore = wordScore
	p.TimeBonus = 0
	p.Score = wordScore
	p.SubmittedAt = &submitted

	if err := e.publisher.PlayerTimedOut(ctx, m, p.UserID); err != nil {
		log.Warn().
			Str("match_id", m.ID).
			Str("user_id", p.UserID).
			Err(err).
			Msg("failed to publish player timed out event")
	}
	log.Info().
		Str("match_id", m.ID).
		Str("user_id", p.UserID).
		Int("score", p.Score).
		Msg("auto-submitted overdue player")
}
