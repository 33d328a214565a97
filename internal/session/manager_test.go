package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/lexscout/internal/catalog"
)

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func (b *recordingBroadcaster) SendTo(id string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = make(map[string][][]byte)
	}
	b.sent[id] = append(b.sent[id], data)
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager(catalog.Default(), &fakeResearcher{}, nil, fastOptions())

	w, created := m.GetOrCreate("")
	require.True(t, created)
	assert.NotEmpty(t, w.ID())

	again, created := m.GetOrCreate(w.ID())
	assert.False(t, created)
	assert.Same(t, w, again)

	other, created := m.GetOrCreate("forged-or-expired")
	assert.True(t, created)
	assert.NotEqual(t, "forged-or-expired", other.ID())
	assert.Equal(t, 2, m.Len())
}

func TestManager_Sweep(t *testing.T) {
	m := NewManager(catalog.Default(), &fakeResearcher{}, nil, fastOptions())
	m.SetMaxIdle(time.Minute)

	w, _ := m.GetOrCreate("")

	assert.Equal(t, 0, m.Sweep(time.Now()))
	assert.Equal(t, 1, m.Sweep(time.Now().Add(2*time.Minute)))

	_, ok := m.Get(w.ID())
	assert.False(t, ok)
}

func TestManager_BroadcastsToOwnSession(t *testing.T) {
	b := &recordingBroadcaster{}
	m := NewManager(catalog.Default(), &fakeResearcher{}, b, fastOptions())

	a, _ := m.GetOrCreate("")
	other, _ := m.GetOrCreate("")
	require.NoError(t, a.SetCountry("Japan"))

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.sent[a.ID()], 1)
	assert.Empty(t, b.sent[other.ID()])

	var evt Event
	require.NoError(t, json.Unmarshal(b.sent[a.ID()][0], &evt))
	assert.Equal(t, EventSettings, evt.Type)
	require.NotNil(t, evt.State)
	assert.Equal(t, "日本語", evt.State.Language)
}
