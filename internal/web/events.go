package web

import (
	"encoding/json"

	"github.com/blockedby/lexscout/internal/session"
)

// EventHello is the first message on a new websocket: the full workspace
// state, so a reconnecting page can catch up.
const EventHello = "hello"

// HelloEvent encodes the greeting sent to a freshly connected socket.
func HelloEvent(st session.State) []byte {
	b, _ := json.Marshal(session.Event{Type: EventHello, State: &st})
	return b
}
