package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/logger"
)

// DefaultMaxIdle is how long an untouched workspace survives.
const DefaultMaxIdle = 2 * time.Hour

// Broadcaster delivers encoded events to the browsers of one session.
type Broadcaster interface {
	SendTo(sessionID string, data []byte)
}

// Manager owns the workspaces of all browser sessions.
type Manager struct {
	catalog     *catalog.Catalog
	researcher  Researcher
	broadcaster Broadcaster
	opts        Options
	maxIdle     time.Duration

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewManager creates an empty manager. broadcaster may be nil.
func NewManager(cat *catalog.Catalog, r Researcher, b Broadcaster, opts Options) *Manager {
	return &Manager{
		catalog:     cat,
		researcher:  r,
		broadcaster: b,
		opts:        opts,
		maxIdle:     DefaultMaxIdle,
		workspaces:  make(map[string]*Workspace),
	}
}

// SetMaxIdle overrides DefaultMaxIdle.
func (m *Manager) SetMaxIdle(d time.Duration) {
	m.maxIdle = d
}

// MaxIdle returns how long an untouched workspace survives.
func (m *Manager) MaxIdle() time.Duration {
	return m.maxIdle
}

// Get returns an existing workspace.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workspaces[id]
	return w, ok
}

// GetOrCreate returns the workspace for id, creating a fresh one under a new
// id when id is empty or unknown. The bool reports whether it was created.
func (m *Manager) GetOrCreate(id string) (*Workspace, bool) {
	if id != "" {
		if w, ok := m.Get(id); ok {
			return w, false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	newID := uuid.NewString()
	w := NewWorkspace(newID, m.catalog, m.researcher, m.notifier(newID), m.opts)
	m.workspaces[newID] = w
	return w, true
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// Sweep drops workspaces idle for longer than the max idle time.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, w := range m.workspaces {
		if now.Sub(w.LastTouched()) > m.maxIdle {
			delete(m.workspaces, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				logger.Get().Debug().Int("removed", n).Msg("swept idle workspaces")
			}
		}
	}
}

func (m *Manager) notifier(id string) func(Event) {
	if m.broadcaster == nil {
		return nil
	}
	return func(e Event) {
		data, err := json.Marshal(e)
		if err != nil {
			logger.Warn("marshal session event", err)
			return
		}
		m.broadcaster.SendTo(id, data)
	}
}
