package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/lexscout/internal/models"
)

// MockNATSClient records the last publish.
type MockNATSClient struct {
	PublishedSubject string
	PublishedData    []byte
	PublishError     error
}

func (m *MockNATSClient) Publish(_ context.Context, subject string, data any) error {
	m.PublishedSubject = subject
	m.PublishedData, _ = json.Marshal(data)
	return m.PublishError
}

func TestNATSPublisher_PublishCompleted(t *testing.T) {
	mock := &MockNATSClient{}
	pub := NewNATSPublisher(mock)

	event := models.ResearchCompletedEvent{
		Result: &models.Result{
			ID:        uuid.New(),
			Query:     models.Query{Kind: models.KindLaw, Text: "加班費", Country: "Taiwan"},
			Outcome:   models.OutcomeEmpty,
			CreatedAt: time.Now(),
		},
	}

	require.NoError(t, pub.PublishCompleted(context.Background(), event))
	assert.Equal(t, "research.completed", mock.PublishedSubject)

	var decoded models.ResearchCompletedEvent
	require.NoError(t, json.Unmarshal(mock.PublishedData, &decoded))
	assert.Equal(t, event.Result.ID, decoded.Result.ID)
	assert.Equal(t, "加班費", decoded.Result.Query.Text)
}

func TestNATSPublisher_PublishCompleted_NilResult(t *testing.T) {
	mock := &MockNATSClient{}
	pub := NewNATSPublisher(mock)

	assert.Error(t, pub.PublishCompleted(context.Background(), models.ResearchCompletedEvent{}))
	assert.Empty(t, mock.PublishedSubject)
}

func TestNATSPublisher_PublishTranslated(t *testing.T) {
	mock := &MockNATSClient{PublishError: errors.New("nats down")}
	pub := NewNATSPublisher(mock)

	err := pub.PublishTranslated(context.Background(), models.ResearchTranslatedEvent{Kind: models.KindPolicy, Language: "English", Fields: 3})

	assert.ErrorContains(t, err, "nats down")
	assert.Equal(t, "research.translated", mock.PublishedSubject)
}
