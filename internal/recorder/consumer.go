// Package recorder consumes research.completed events and writes them to
// history.
package recorder

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/nats"
)

// Subscriber is the part of nats.Client the consumer needs.
type Subscriber interface {
	Subscribe(ctx context.Context, stream, consumer, subject string, handler func([]byte) error) error
}

// Store persists results. repository.HistoryRepository satisfies it.
type Store interface {
	Save(ctx context.Context, res *models.Result, providerErr string) error
}

// Consumer records finished searches.
type Consumer struct {
	client Subscriber
	store  Store
	log    *zerolog.Logger
}

// NewConsumer creates a new NATS consumer.
func NewConsumer(client Subscriber, store Store, log *zerolog.Logger) *Consumer {
	return &Consumer{
		client: client,
		store:  store,
		log:    log,
	}
}

// Start subscribes to research.completed.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Msg("starting history recorder")
	return c.client.Subscribe(ctx, nats.StreamResearch, nats.ConsumerRecorder, models.SubjectResearchCompleted, c.handleMessage)
}

// handleMessage stores one event. Malformed events are acked and dropped;
// store failures nak for redelivery.
func (c *Consumer) handleMessage(data []byte) error {
	var event models.ResearchCompletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Error().Err(err).Msg("invalid nats message format, skipping")
		return nil
	}
	if event.Result == nil {
		c.log.Error().Err(errors.New("missing result")).Msg("invalid research event, skipping")
		return nil
	}

	res := event.Result
	c.log.Debug().Str("id", res.ID.String()).Str("outcome", string(res.Outcome)).Msg("received research event")

	if err := c.store.Save(context.Background(), res, event.Error); err != nil {
		c.log.Error().Str("id", res.ID.String()).Err(err).Msg("failed to record search")
		return err
	}
	return nil
}
