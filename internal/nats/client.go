// Package nats provides a client for NATS JetStream pub/sub messaging.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/blockedby/lexscout/internal/models"
)

// Research stream layout.
const (
	StreamResearch   = "RESEARCH"
	ConsumerRecorder = "history_recorder"
)

// ResearchSubjects are the subjects captured by StreamResearch.
var ResearchSubjects = []string{models.SubjectResearchCompleted, models.SubjectResearchTranslated}

// Client wraps nats connection and jetstream context.
type Client struct {
	Conn *nats.Conn
	js   jetstream.JetStream

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

// New creates a new nats client with jetstream support.
func New(_ context.Context, natsURL string) (*Client, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("lexscout"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Client{Conn: conn, js: js}, nil
}

// EnsureStream creates a stream if it doesn't exist.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects []string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// EnsureResearchStream creates StreamResearch.
func (c *Client) EnsureResearchStream(ctx context.Context) error {
	return c.EnsureStream(ctx, StreamResearch, ResearchSubjects)
}

// Publish publishes a JSON-encoded message to a subject.
func (c *Client) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = c.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	return nil
}

// Subscribe creates a durable consumer and starts consuming messages.
// A handler error naks the message for redelivery.
func (c *Client) Subscribe(ctx context.Context, stream, consumer, subject string, handler func([]byte) error) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       consumer,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Data()); err != nil {
			_ = msg.NakWithDelay(5 * time.Second)
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", subject, err)
	}

	c.mu.Lock()
	c.consumes = append(c.consumes, cc)
	c.mu.Unlock()
	return nil
}

// Close stops consumers and closes the nats connection.
func (c *Client) Close() {
	c.mu.Lock()
	for _, cc := range c.consumes {
		cc.Stop()
	}
	c.consumes = nil
	c.mu.Unlock()

	c.Conn.Close()
}

// IsConnected returns true if connected to nats.
func (c *Client) IsConnected() bool {
	return c.Conn.IsConnected()
}
