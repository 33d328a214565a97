package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blockedby/lexscout/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one websocket connection bound to a browser session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type envelope struct {
	sessionID string
	data      []byte
}

// Hub fans messages out to the websocket connections of one session.
type Hub struct {
	clients  map[*Client]bool
	sessions map[string]map[*Client]bool
	direct   chan envelope

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
}

// NewHub creates a hub. Call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[string]map[*Client]bool),
		direct:     make(chan envelope, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run processes registrations and messages until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			if h.sessions[c.sessionID] == nil {
				h.sessions[c.sessionID] = make(map[*Client]bool)
			}
			h.sessions[c.sessionID][c] = true
		case c := <-h.unregister:
			h.remove(c)
		case env := <-h.direct:
			for c := range h.sessions[env.sessionID] {
				h.deliver(c, env.data)
			}
		case <-h.quit:
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// SendTo sends data to the connections of one session. It implements
// session.Broadcaster.
func (h *Hub) SendTo(sessionID string, data []byte) {
	select {
	case h.direct <- envelope{sessionID: sessionID, data: data}:
	case <-h.quit:
	}
}

// deliver drops clients whose buffer is full.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if set := h.sessions[c.sessionID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.sessionID)
		}
	}
	close(c.send)
}

// ServeWs upgrades the request and attaches the connection to sessionID.
// header is added to the handshake response; hello, when not nil, is sent
// first.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, sessionID string, header http.Header, hello []byte) {
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer), sessionID: sessionID}
	if hello != nil {
		c.send <- hello
	}
	select {
	case hub.register <- c:
	case <-hub.quit:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for pongs and close frames; the browser never sends
// commands over the socket.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Get().Debug().Err(err).Str("session", c.sessionID).Msg("websocket closed")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
