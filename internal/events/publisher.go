package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/models"
)

var _ match.Publisher = (*JetStreamPublisher)(nil)

// JetStreamConfig tunes the event stream.
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration
}

// DefaultJetStreamConfig returns the production stream settings.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "MATCH_EVENTS",
		SubjectPrefix:   "match.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// JetStreamPublisher implements the match engine's Publisher on a JetStream
// stream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

// NewJetStreamPublisher connects to NATS and ensures the event stream
// exists.
func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Match lifecycle event stream",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	if _, err := p.js.Stream(ctx, p.config.StreamName); err != nil {
		if _, err := p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
	}
	return nil
}

// MatchCompleted publishes final scores and ranks.
func (p *JetStreamPublisher) MatchCompleted(ctx context.Context, m *models.Match) error {
	payload := MatchCompletedPayload{
		LobbyType: m.LobbyType,
		PrizePool: m.PrizePool,
		Players:   playerResults(m.Players),
	}
	return p.publish(ctx, TypeMatchCompleted, m.ID, dedupeID(TypeMatchCompleted, m.ID), payload)
}

// MatchSettled publishes the credited winners.
func (p *JetStreamPublisher) MatchSettled(ctx context.Context, m *models.Match) error {
	payload := MatchSettledPayload{
		LobbyType: m.LobbyType,
		PrizePool: m.PrizePool,
		Winners:   winners(m.Players),
	}
	return p.publish(ctx, TypeMatchSettled, m.ID, dedupeID(TypeMatchSettled, m.ID), payload)
}

// PlayerTimedOut publishes an auto-submitted seat.
func (p *JetStreamPublisher) PlayerTimedOut(ctx context.Context, m *models.Match, userID string) error {
	payload := PlayerTimedOutPayload{LobbyType: m.LobbyType, UserID: userID}
	if seat := m.Player(userID); seat != nil {
		payload.Score = seat.Score
	}
	return p.publish(ctx, TypePlayerTimedOut, m.ID, dedupeID(TypePlayerTimedOut, m.ID, userID), payload)
}

func (p *JetStreamPublisher) publish(ctx context.Context, eventType, matchID, msgID string, payload interface{}) error {
	env := newEnvelope(eventType, matchID, payload)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, eventType)
	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{eventType},
			"Match-ID":   []string{matchID},
			"Event-ID":   []string{env.EventID},
		},
	},
		jetstream.WithMsgID(msgID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("match_id", matchID).
		Uint64("sequence", ack.Sequence).
		Msg("published match event")
	return nil
}

// Close drains the NATS connection.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func dedupeID(parts ...string) string {
	id := parts[0]
	for _, p := range parts[1:] {
		id += "." + p
	}
	return id
}
