package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/wordgems/backend/internal/board"
	"github.com/wordgems/backend/internal/dictionary"
	"github.com/wordgems/backend/internal/lobby"
	"github.com/wordgems/backend/internal/models"
)

const (
	// saveRetries bounds optimistic-concurrency retry loops. Contention on
	// a single match document is between a handful of players and the
	// sweeper, so a short loop is enough.
	saveRetries = 5

	// hardExpiryWindow is how long past creation a match may live before
	// the sweeper force-finishes it regardless of player deadlines.
	hardExpiryWindow = time.Hour

	// historyListLimit caps how many completed matches ListMatches pulls
	// from durable history per user.
	historyListLimit = 20
)

// Publisher emits match lifecycle events. Implementations must tolerate
// duplicate emission for the same match; settlement retries re-publish.
type Publisher interface {
	MatchCompleted(ctx context.Context, m *models.Match) error
	MatchSettled(ctx context.Context, m *models.Match) error
	PlayerTimedOut(ctx context.Context, m *models.Match, userID string) error
}

// Engine runs the match lifecycle: seating, word play, scoring, and
// settlement. It owns no storage of its own; every collaborator arrives
// through the constructor.
type Engine struct {
	repo      MatchRepository
	ledger    Ledger
	history   History
	catalog   *lobby.Catalog
	dict      *dictionary.Dictionary
	boards    *board.Generator
	publisher Publisher
	clock     clockwork.Clock
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithClock replaces the wall clock, used by tests to control deadlines.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithBoardGenerator replaces the board generator, used by tests to get
// deterministic boards.
func WithBoardGenerator(g *board.Generator) Option {
	return func(e *Engine) { e.boards = g }
}

// NewEngine constructs the match engine.
func NewEngine(
	repo MatchRepository,
	ledger Ledger,
	history History,
	catalog *lobby.Catalog,
	dict *dictionary.Dictionary,
	opts ...Option,
) *Engine {
	e := &Engine{
		repo:      repo,
		ledger:    ledger,
		history:   history,
		catalog:   catalog,
		dict:      dict,
		boards:    board.NewGenerator(),
		publisher: NoopPublisher{},
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Join seats the user in the lobby's waiting match, charging the entry fee.
// Re-joining a lobby the user is already playing returns the current match
// unchanged. Joining while un-submitted in a different lobby fails with
// ActiveMatchConflictError.
func (e *Engine) Join(ctx context.Context, req JoinRequest) (*MatchView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cfg, err := e.catalog.Get(req.LobbyType)
	if err != nil {
		return nil, err
	}

	if view, conflict, err := e.findActive(ctx, req.UserID, req.LobbyType); err != nil {
		return nil, err
	} else if view != nil {
		if conflict {
			return nil, &ActiveMatchConflictError{Current: view}
		}
		return view, nil
	}

	m, err := e.joinWaiting(ctx, cfg, req)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m, err = e.createMatch(ctx, cfg, req)
		if err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("match_id", m.ID).
		Str("lobby_type", m.LobbyType).
		Str("user_id", req.UserID).
		Int("players", len(m.Players)).
		Msg("player joined match")
	return NewMatchView(m, req.UserID, e.clock), nil
}

// findActive scans the user's live matches for one they are still playing.
// It returns the user's view of that match and whether it belongs to a
// different lobby than requested.
func (e *Engine) findActive(ctx context.Context, userID, lobbyType string) (*MatchView, bool, error) {
	live, err := e.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list user matches: %w", err)
	}
	for _, m := range live {
		p := m.Player(userID)
		if p == nil || p.HasSubmitted() || m.IsCompleted() {
			continue
		}
		view := NewMatchView(m, userID, e.clock)
		return view, m.LobbyType != lobbyType, nil
	}
	return nil, false, nil
}

// joinWaiting tries to seat the player into the lobby's current waiting
// match. It returns (nil, nil) when no waiting match can take the player,
// in which case the caller creates a fresh one.
func (e *Engine) joinWaiting(ctx context.Context, cfg models.LobbyConfig, req JoinRequest) (*models.Match, error) {
	waitingID, err := e.repo.GetWaiting(ctx, cfg.LobbyType)
	if err != nil {
		return nil, fmt.Errorf("failed to read waiting pointer: %w", err)
	}
	if waitingID == "" {
		return nil, nil
	}

	m, err := e.repo.Get(ctx, waitingID)
	if errors.Is(err, ErrMatchNotFound) {
		// Stale pointer left behind by a removed match.
		if clearErr := e.repo.ClearWaiting(ctx, cfg.LobbyType); clearErr != nil {
			return nil, fmt.Errorf("failed to clear stale waiting pointer: %w", clearErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load waiting match: %w", err)
	}
	if !joinable(m, cfg) {
		return nil, nil
	}
	if m.Player(req.UserID) != nil {
		// Submitted seats pass the active-match scan; never seat the
		// same user twice in one match.
		return nil, nil
	}

	ref := models.TxRef{MatchID: m.ID, LobbyType: cfg.LobbyType}
	ok, err := e.ledger.TryDebit(ctx, req.UserID, cfg.EntryFee, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to charge entry fee: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientFunds
	}

	// The fee is captured; from here every exit either seats the player in
	// this match or refunds the debit.
	for attempt := 0; attempt < saveRetries; attempt++ {
		e.seat(m, cfg, req)
		err = e.repo.Save(ctx, m)
		if err == nil {
			e.updateWaitingPointer(ctx, m, cfg)
			return m, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			break
		}
		m, err = e.repo.Get(ctx, waitingID)
		if err != nil {
			break
		}
		if p := m.Player(req.UserID); p != nil {
			// A concurrent request already seated us.
			e.updateWaitingPointer(ctx, m, cfg)
			return m, nil
		}
		if !joinable(m, cfg) {
			err = fmt.Errorf("waiting match %s filled during join", waitingID)
			break
		}
	}

	if refundErr := e.ledger.Refund(ctx, req.UserID, cfg.EntryFee, ref); refundErr != nil {
		log.Error().
			Str("match_id", waitingID).
			Str("user_id", req.UserID).
			Err(refundErr).
			Msg("failed to refund abandoned entry fee")
	}
	return nil, fmt.Errorf("failed to join waiting match: %w", err)
}

// createMatch starts a fresh waiting match with the requester as its first
// seat. The entry fee is captured before the match document is persisted;
// a persist failure refunds it.
func (e *Engine) createMatch(ctx context.Context, cfg models.LobbyConfig, req JoinRequest) (*models.Match, error) {
	now := e.clock.Now()
	m := &models.Match{
		ID:            newMatchID(cfg.LobbyType, now),
		LobbyType:     cfg.LobbyType,
		Board:         e.boards.Generate(cfg.BoardSize),
		CreatedAt:     now,
		EntryFee:      cfg.EntryFee,
		PrizePool:     cfg.TotalPrizePool,
		GameDuration:  cfg.GameDuration,
		Status:        models.MatchStatusWaiting,
		HardExpiresAt: now.Add(hardExpiryWindow),
	}

	ref := models.TxRef{MatchID: m.ID, LobbyType: cfg.LobbyType}
	ok, err := e.ledger.TryDebit(ctx, req.UserID, cfg.EntryFee, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to charge entry fee: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientFunds
	}

	e.seat(m, cfg, req)
	if err := e.repo.Save(ctx, m); err != nil {
		if refundErr := e.ledger.Refund(ctx, req.UserID, cfg.EntryFee, ref); refundErr != nil {
			log.Error().
				Str("match_id", m.ID).
				Str("user_id", req.UserID).
				Err(refundErr).
				Msg("failed to refund abandoned entry fee")
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	e.updateWaitingPointer(ctx, m, cfg)

	log.Info().
		Str("match_id", m.ID).
		Str("lobby_type", cfg.LobbyType).
		Msg("created match")
	return m, nil
}

// seat appends the requester to the match and flips it to started when the
// last seat fills. Each player's clock starts at their own join time.
// Callers capture the entry fee before seating, so the seat always records
// a paid entry.
func (e *Engine) seat(m *models.Match, cfg models.LobbyConfig, req JoinRequest) {
	now := e.clock.Now()
	m.Players = append(m.Players, models.MatchPlayer{
		UserID:     req.UserID,
		Name:       req.DisplayName,
		Words:      []string{},
		JoinedAt:   now,
		DeadlineAt: now.Add(cfg.Duration()),
		PaidEntry:  true,
	})
	if len(m.Players) >= cfg.MaxPlayers && m.Status == models.MatchStatusWaiting {
		m.Status = models.MatchStatusStarted
		started := now
		m.StartedAt = &started
	}
}

// updateWaitingPointer keeps the lobby's waiting pointer consistent with
// the match's seat count. Pointer writes are best effort; a stale pointer
// is detected and repaired by the next join.
func (e *Engine) updateWaitingPointer(ctx context.Context, m *models.Match, cfg models.LobbyConfig) {
	var err error
	if len(m.Players) >= cfg.MaxPlayers {
		err = e.repo.ClearWaiting(ctx, cfg.LobbyType)
	} else {
		err = e.repo.SetWaiting(ctx, cfg.LobbyType, m.ID)
	}
	if err != nil {
		log.Warn().
			Str("match_id", m.ID).
			Str("lobby_type", cfg.LobbyType).
			Err(err).
			Msg("failed to update waiting pointer")
	}
}

func joinable(m *models.Match, cfg models.LobbyConfig) bool {
	return m.Status == models.MatchStatusWaiting && len(m.Players) < cfg.MaxPlayers
}

// LeaveActive withdraws the user from whichever match they are currently
// playing un-submitted.
func (e *Engine) LeaveActive(ctx context.Context, userID string) error {
	live, err := e.repo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list user matches: %w", err)
	}
	for _, m := range live {
		p := m.Player(userID)
		if p == nil || p.HasSubmitted() || m.IsCompleted() {
			continue
		}
		return e.Leave(ctx, m.ID, userID)
	}
	return ErrNoActiveMatch
}

// Leave withdraws an un-submitted player from their match. The entry fee is
// forfeited. A match left empty is removed.
func (e *Engine) Leave(ctx context.Context, matchID, userID string) error {
	for attempt := 0; attempt < saveRetries; attempt++ {
		m, err := e.repo.Get(ctx, matchID)
		if err != nil {
			return err
		}
		p := m.Player(userID)
		if p == nil {
			return ErrPlayerNotInMatch
		}
		if m.IsCompleted() {
			return fmt.Errorf("match %s is already completed", matchID)
		}
		if p.HasSubmitted() {
			return ErrAlreadySubmitted
		}

		remaining := m.Players[:0:0]
		for _, seat := range m.Players {
			if seat.UserID != userID {
				remaining = append(remaining, seat)
			}
		}
		m.Players = remaining

		if len(m.Players) == 0 {
			if err := e.repo.Remove(ctx, matchID); err != nil {
				return fmt.Errorf("failed to remove empty match: %w", err)
			}
			e.clearWaitingIfPointsTo(ctx, m.LobbyType, matchID)
			log.Info().Str("match_id", matchID).Msg("removed empty match after leave")
			return nil
		}

		err = e.repo.Save(ctx, m)
		if err == nil {
			log.Info().
				Str("match_id", matchID).
				Str("user_id", userID).
				Msg("player left match")
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("failed to save match after leave: %w", err)
		}
	}
	return fmt.Errorf("failed to leave match %s: %w", matchID, ErrVersionConflict)
}

func (e *Engine) clearWaitingIfPointsTo(ctx context.Context, lobbyType, matchID string) {
	waitingID, err := e.repo.GetWaiting(ctx, lobbyType)
	if err != nil || waitingID != matchID {
		return
	}
	if err := e.repo.ClearWaiting(ctx, lobbyType); err != nil {
		log.Warn().
			Str("lobby_type", lobbyType).
			Err(err).
			Msg("failed to clear waiting pointer")
	}
}

// SaveWords stores the player's draft word list without judging or scoring
// it. Drafts are rejected once the player has submitted.
func (e *Engine) SaveWords(ctx context.Context, req SaveWordsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	words := normalizeWords(req.Words)

	for attempt := 0; attempt < saveRetries; attempt++ {
		m, err := e.repo.Get(ctx, req.MatchID)
		if err != nil {
			return err
		}
		p := m.Player(req.UserID)
		if p == nil {
			return ErrPlayerNotInMatch
		}
		if p.HasSubmitted() || m.IsCompleted() {
			return ErrAlreadySubmitted
		}

		p.Words = words
		err = e.repo.Save(ctx, m)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("failed to save words: %w", err)
		}
	}
	return fmt.Errorf("failed to save words for match %s: %w", req.MatchID, ErrVersionConflict)
}

// ValidateWord checks one word against the dictionary and the match board.
// It never mutates the match.
func (e *Engine) ValidateWord(ctx context.Context, req ValidateWordRequest) (*WordValidation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := e.repo.Get(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}
	if m.Player(req.UserID) == nil {
		return nil, ErrPlayerNotInMatch
	}

	word := dictionary.Normalize(req.Word)
	valid := dictionary.IsNormalWord(word) &&
		e.dict.Contains(word) &&
		board.CanFormWord(m.Board, word)
	return &WordValidation{Word: word, Valid: valid}, nil
}

// Submit freezes the player's word list, scores it, and completes the match
// when every seat has submitted. Submitting twice returns the frozen result
// without rescoring. Submitting after the deadline fails; the sweeper will
// auto-submit instead.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < saveRetries; attempt++ {
		m, err := e.repo.Get(ctx, req.MatchID)
		if err != nil {
			return nil, err
		}
		p := m.Player(req.UserID)
		if p == nil {
			return nil, ErrPlayerNotInMatch
		}
		if p.HasSubmitted() {
			return &SubmitResult{MyScore: p.Score, Completed: m.IsCompleted()}, nil
		}
		if m.IsCompleted() {
			return nil, ErrAlreadySubmitted
		}
		now := e.clock.Now()
		if now.After(p.DeadlineAt) {
			return nil, ErrDeadlinePassed
		}

		cfg, err := e.catalog.Get(m.LobbyType)
		if err != nil {
			return nil, err
		}
		e.scoreSubmission(m, p, req.Words, now, cfg)

		if isReadyToComplete(m, cfg) {
			if err := e.finalizeCompleted(ctx, m, cfg); err != nil {
				if errors.Is(err, ErrVersionConflict) {
					continue
				}
				return nil, err
			}
		} else if err := e.repo.Save(ctx, m); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("failed to save submission: %w", err)
		}

		log.Info().
			Str("match_id", m.ID).
			Str("user_id", req.UserID).
			Int("score", p.Score).
			Bool("completed", m.IsCompleted()).
			Msg("player submitted words")
		return &SubmitResult{MyScore: p.Score, Completed: m.IsCompleted()}, nil
	}
	return nil, fmt.Errorf("failed to submit for match %s: %w", req.MatchID, ErrVersionConflict)
}

// scoreSubmission judges the candidate words and freezes the player's
// score. Word points are the sum of squared lengths; the time bonus pays
// for seconds left on the player's clock, capped by the lobby preset.
func (e *Engine) scoreSubmission(m *models.Match, p *models.MatchPlayer, candidates []string, now time.Time, cfg models.LobbyConfig) {
	valid := []string{}
	seen := make(map[string]struct{})
	for _, raw := range candidates {
		w := dictionary.Normalize(raw)
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

	bonus := 0
	if remaining := p.DeadlineAt.Sub(now); remaining > 0 && cfg.TimeBonusPerSecond > 0 {
		bonus = int(math.Floor(remaining.Seconds() * cfg.TimeBonusPerSecond))
		if bonus > cfg.TimeBonusMaxPoints {
			bonus = cfg.TimeBonusMaxPoints
		}
	}

	submitted := now
	p.Words = valid
	p.WordScore = wordScore
	p.TimeBonus = bonus
	p.Score = wordScore + bonus
	p.SubmittedAt = &submitted
}

func isReadyToComplete(m *models.Match, cfg models.LobbyConfig) bool {
	if len(m.Players) < cfg.MaxPlayers {
		return false
	}
	for i := range m.Players {
		if !m.Players[i].HasSubmitted() {
			return false
		}
	}
	return true
}

// GetMatch returns the user's view of a match, consulting durable history
// when the match has left the live store.
func (e *Engine) GetMatch(ctx context.Context, matchID, userID string) (*MatchView, error) {
	m, err := e.repo.Get(ctx, matchID)
	if errors.Is(err, ErrMatchNotFound) {
		m, err = e.history.GetCompleted(ctx, matchID)
	}
	if err != nil {
		return nil, err
	}
	if m.Player(userID) == nil {
		return nil, ErrPlayerNotInMatch
	}
	return NewMatchView(m, userID, e.clock), nil
}

// ListMatches returns the user's matches, live ones first, then completed
// history, newest first within each group. A match present in both sources
// appears once, from the live store.
func (e *Engine) ListMatches(ctx context.Context, userID string) ([]*MatchView, error) {
	live, err := e.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live matches: %w", err)
	}
	past, err := e.history.ListRecentByUser(ctx, userID, historyListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history: %w", err)
	}

	seen := make(map[string]struct{})
	var views []*MatchView
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	for _, m := range live {
		if m.Player(userID) == nil {
			continue
		}
		seen[m.ID] = struct{}{}
		views = append(views, NewMatchView(m, userID, e.clock))
	}
	for _, m := range past {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		views = append(views, NewMatchView(m, userID, e.clock))
	}
	return views, nil
}

// Lobbies returns the catalog annotated with each lobby's current waiting
// occupancy.
func (e *Engine) Lobbies(ctx context.Context) ([]LobbySummary, error) {
	var out []LobbySummary
	for _, cfg := range e.catalog.All() {
		summary := LobbySummary{LobbyConfig: cfg}
		waitingID, err := e.repo.GetWaiting(ctx, cfg.LobbyType)
		if err != nil {
			return nil, fmt.Errorf("failed to read waiting pointer: %w", err)
		}
		if waitingID != "" {
			if m, err := e.repo.Get(ctx, waitingID); err == nil {
				summary.CurrentPlayers = len(m.Players)
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// EnsureWaitingMatches pre-creates an empty waiting match for every lobby
// type that has none, so the first joiner never pays board-generation
// latency.
func (e *Engine) EnsureWaitingMatches(ctx context.Context) error {
	for _, cfg := range e.catalog.All() {
		waitingID, err := e.repo.GetWaiting(ctx, cfg.LobbyType)
		if err != nil {
			return fmt.Errorf("failed to read waiting pointer: %w", err)
		}
		if waitingID != "" {
			if _, err := e.repo.Get(ctx, waitingID); err == nil {
				continue
			} else if !errors.Is(err, ErrMatchNotFound) {
				return fmt.Errorf("failed to load waiting match: %w", err)
			}
		}

		now := e.clock.Now()
		m := &models.Match{
			ID:            newMatchID(cfg.LobbyType, now),
			LobbyType:     cfg.LobbyType,
			Board:         e.boards.Generate(cfg.BoardSize),
			CreatedAt:     now,
			EntryFee:      cfg.EntryFee,
			PrizePool:     cfg.TotalPrizePool,
			GameDuration:  cfg.GameDuration,
			Players:       []models.MatchPlayer{},
			Status:        models.MatchStatusWaiting,
			HardExpiresAt: now.Add(hardExpiryWindow),
		}
		if err := e.repo.Save(ctx, m); err != nil {
			return fmt.Errorf("failed to create waiting match: %w", err)
		}
		if err := e.repo.SetWaiting(ctx, cfg.LobbyType, m.ID); err != nil {
			return fmt.Errorf("failed to set waiting pointer: %w", err)
		}
		log.Info().
			Str("match_id", m.ID).
			Str("lobby_type", cfg.LobbyType).
			Msg("pre-created waiting match")
	}
	return nil
}

func normalizeWords(raw []string) []string {
	out := []string{}
	for _, w := range raw {
		n := dictionary.Normalize(w)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// newMatchID derives a readable id from the lobby type and creation time.
func newMatchID(lobbyType string, now time.Time) string {
	return lobbyType + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
