package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds connection settings for the event republisher.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns defaults suitable for a local NATS server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "game.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher republishes engine events onto NATS subjects
// (<prefix>.<EventType>) so out-of-process consumers such as the lobby
// browser service or analytics can follow games. The websocket fan-out does
// not depend on it; losing NATS degrades external visibility only.
type NATSPublisher struct {
	nc     *nats.Conn
	config NATSConfig
}

// NewNATSPublisher connects to NATS with reconnect handling.
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, config: config}, nil
}

// Run consumes the bus subscription until the context is cancelled.
func (p *NATSPublisher) Run(ctx context.Context, ch <-chan GameEvent) {
	log.Info().Str("subject_prefix", p.config.SubjectPrefix).Msg("NATS republisher started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("NATS republisher shutting down")
			return
		case evt := <-ch:
			if err := p.publish(evt); err != nil {
				log.Error().
					Err(err).
					Str("event_type", string(evt.Type)).
					Str("game_id", evt.GameID.String()).
					Msg("failed to republish event to NATS")
			}
		}
	}
}

func (p *NATSPublisher) publish(evt GameEvent) error {
	envelope := map[string]any{
		"eventId":   evt.ID.String(),
		"eventType": string(evt.Type),
		"gameId":    evt.GameID.String(),
		"channel":   string(evt.Channel),
		"timestamp": evt.Timestamp,
		"payload":   json.RawMessage(evt.Data),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, evt.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
