package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wordgems/backend/internal/models"
)

// SweeperConfig tunes the background deadline sweep.
type SweeperConfig struct {
	Interval    time.Duration
	Concurrency int
}

// DefaultSweeperConfig returns the production sweep cadence.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    10 * time.Second,
		Concurrency: 8,
	}
}

// Sweeper periodically scans live matches and pushes overdue ones forward:
// it auto-submits players past their deadline, completes matches whose
// seats have all submitted, retries stuck settlements, and force-finishes
// matches past their hard expiry.
type Sweeper struct {
	engine *Engine
	config SweeperConfig
	clock  clockwork.Clock

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper constructs a sweeper over the given engine. The sweeper shares
// the engine's clock so fake-clock tests drive both together.
func NewSweeper(engine *Engine, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweeperConfig().Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSweeperConfig().Concurrency
	}
	return &Sweeper{
		engine:   engine,
		config:   cfg,
		clock:    engine.clock,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	log.Info().Dur("interval", s.config.Interval).Msg("match sweeper started")
	return nil
}

// Stop halts the sweep loop and waits for the in-flight pass to finish.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	log.Info().Msg("match sweeper stopped")
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("match sweep failed")
	}
}

// RunOnce executes a single sweep pass over all live matches. Individual
// match failures are logged and skipped so one bad document cannot stall
// the rest of the pass.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	matches, err := s.engine.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list live matches: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for _, m := range matches {
		m := m
		g.Go(func() error {
			if err := s.sweepMatch(ctx, m); err != nil {
				log.Error().Str("match_id", m.ID).Err(err).Msg("failed to sweep match")
			}
			return nil
		})
	}
	return g.Wait()
}

// sweepMatch advances one match. A version conflict means someone else is
// actively mutating the match; the next pass will see the fresh state.
func (s *Sweeper) sweepMatch(ctx context.Context, m *models.Match) error {
	cfg, err := s.engine.catalog.Get(m.LobbyType)
	if err != nil {
		return err
	}
	now := s.clock.Now()

	// A completed match still in the live store is a stuck settlement.
	if m.IsCompleted() {
		return s.finalize(ctx, m, cfg)
	}

	forceExpire := now.After(m.HardExpiresAt) && len(m.Players) > 0

	changed := false
	for i := range m.Players {
		p := &m.Players[i]
		if p.HasSubmitted() {
			continue
		}
		if now.Before(p.DeadlineAt) && !forceExpire {
			continue
		}
		s.engine.autoSubmit(ctx, m, p)
		changed = true
	}

	switch {
	case isReadyToComplete(m, cfg) || forceExpire:
		return s.finalize(ctx, m, cfg)
	case changed:
		if err := s.engine.repo.Save(ctx, m); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return nil
			}
			return fmt.Errorf("failed to save swept match: %w", err)
		}
	case now.After(m.HardExpiresAt):
		// Expired and never had a player.
		if err := s.engine.repo.Remove(ctx, m.ID); err != nil {
			return fmt.Errorf("failed to remove expired empty match: %w", err)
		}
		s.engine.clearWaitingIfPointsTo(ctx, m.LobbyType, m.ID)
		log.Info().Str("match_id", m.ID).Msg("removed expired empty match")
	}
	return nil
}

func (s *Sweeper) finalize(ctx context.Context, m *models.Match, cfg models.LobbyConfig) error {
	err := s.engine.finalizeCompleted(ctx, m, cfg)
	if errors.Is(err, ErrVersionConflict) {
		return nil
	}
	return err
}
