// Package publisher announces research events on NATS.
package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/lexscout/internal/models"
)

// NATSClient is the part of nats.Client the publisher needs.
type NATSClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements research.EventPublisher.
type NATSPublisher struct {
	js NATSClient
}

// NewNATSPublisher creates a new publisher.
func NewNATSPublisher(client NATSClient) *NATSPublisher {
	return &NATSPublisher{js: client}
}

// PublishCompleted publishes a research.completed event.
func (p *NATSPublisher) PublishCompleted(ctx context.Context, event models.ResearchCompletedEvent) error {
	if event.Result == nil {
		return fmt.Errorf("publish %s: nil result", models.SubjectResearchCompleted)
	}
	if err := p.js.Publish(ctx, models.SubjectResearchCompleted, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// PublishTranslated publishes a research.translated event.
func (p *NATSPublisher) PublishTranslated(ctx context.Context, event models.ResearchTranslatedEvent) error {
	if err := p.js.Publish(ctx, models.SubjectResearchTranslated, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
