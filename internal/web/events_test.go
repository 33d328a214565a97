package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/session"
)

func TestHelloEvent(t *testing.T) {
	st := session.State{
		ID:       "abc",
		Country:  "Japan",
		Language: "日本語",
		Active:   models.KindPolicy,
		Law:      session.TabState{Kind: models.KindLaw, Progress: 40, Loading: true},
	}

	var evt session.Event
	require.NoError(t, json.Unmarshal(HelloEvent(st), &evt))

	assert.Equal(t, EventHello, evt.Type)
	require.NotNil(t, evt.State)
	assert.Equal(t, "Japan", evt.State.Country)
	assert.Equal(t, models.KindPolicy, evt.State.Active)
	assert.True(t, evt.State.Law.Loading)
	assert.Equal(t, 40, evt.State.Law.Progress)
}
