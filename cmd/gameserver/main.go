package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordgems/backend/internal/dbconfig"
	"github.com/wordgems/backend/internal/dictionary"
	"github.com/wordgems/backend/internal/events"
	"github.com/wordgems/backend/internal/history"
	"github.com/wordgems/backend/internal/ledger"
	"github.com/wordgems/backend/internal/lobby"
	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/match/redisstore"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	lobbyPath := getEnv("LOBBY_CONFIG_PATH", "config/lobbies.yaml")
	dictPath := getEnv("DICTIONARY_PATH", "config/words.txt")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")
	natsURL := getEnv("NATS_URL", "")
	sweepInterval := getEnvDuration("SWEEP_INTERVAL", 10*time.Second)

	catalog, err := lobby.Load(lobbyPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", lobbyPath).Msg("failed to load lobby catalog")
	}

	dictFile, err := os.Open(dictPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dictPath).Msg("failed to open dictionary")
	}
	dict, err := dictionary.FromReader(dictFile)
	dictFile.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dictionary")
	}

	// Database connection
	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live match store
	store, err := redisstore.Connect(ctx, redisAddr, redisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Str("addr", redisAddr).Msg("failed to connect to redis")
	}
	defer store.Close()

	opts := []match.Option{}
	if natsURL != "" {
		cfg := events.DefaultJetStreamConfig()
		cfg.URL = natsURL
		publisher, err := events.NewJetStreamPublisher(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to setup event publisher")
		}
		defer publisher.Close()
		opts = append(opts, match.WithPublisher(publisher))
	}

	engine := match.NewEngine(
		store,
		ledger.NewPostgresLedger(db),
		history.NewPostgresHistory(db),
		catalog,
		dict,
		opts...,
	)

	if err := engine.EnsureWaitingMatches(ctx); err != nil {
		log.Error().Err(err).Msg("failed to pre-create waiting matches")
	}

	sweepCfg := match.DefaultSweeperConfig()
	sweepCfg.Interval = sweepInterval
	sweeper := match.NewSweeper(engine, sweepCfg)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("redis_addr", redisAddr).
		Str("nats_url", natsURL).
		Msg("game server started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	if err := sweeper.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop sweeper")
	}
	cancel()
	log.Info().Msg("shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return d
}
