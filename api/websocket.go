package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/ui"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Messages queued per client before it is treated as too slow.
	sendBuffer = 64
)

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// envelope addresses a message to one client, to one session, or to everyone
// when both are empty.
type envelope struct {
	client  *WSClient
	session string
	msg     WSMessage
}

// WSHub tracks WebSocket connections per dashboard session.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan envelope
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	log        *zap.Logger
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	id      string
	session string
	hub     *WSHub
	send    chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(log *zap.Logger) *WSHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub event loop. It returns when ctx is cancelled, closing
// every client.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if env.client != nil && client != env.client {
					continue
				}
				if env.session != "" && client.session != env.session {
					continue
				}
				select {
				case client.send <- env.msg:
				default:
					// Slow client; disconnect
					h.log.Debug("dropping slow websocket client", zap.String("client", client.id))
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to every connected client.
func (h *WSHub) Broadcast(msg WSMessage) {
	h.enqueue(envelope{msg: msg})
}

// Send sends a message to the clients of one session.
func (h *WSHub) Send(session string, msg WSMessage) {
	h.enqueue(envelope{session: session, msg: msg})
}

// SendTo sends a message to one registered client. It is queued behind every
// message enqueued before it.
func (h *WSHub) SendTo(client *WSClient, msg WSMessage) {
	h.enqueue(envelope{client: client, msg: msg})
}

func (h *WSHub) enqueue(env envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.log.Warn("websocket broadcast queue full, dropping message", zap.String("type", env.msg.Type))
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClients returns the number of connections of one session.
func (h *WSHub) SessionClients(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.session == session {
			n++
		}
	}
	return n
}

// Register adds a client to the hub. It reports false once the hub stopped.
func (h *WSHub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ============================================================
// Connection handling
// ============================================================

// handleWebSocket upgrades the connection and streams the session's panel
// updates. The client is registered before the current panels are queued, so
// no publication falls between the snapshot and the live stream. A new
// session's cookie travels with the handshake response.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, cookie := s.sessions.Resolve(r)
	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": {cookie.String()}}
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		id:      uuid.NewString(),
		session: sess.ID,
		hub:     s.wsHub,
		send:    make(chan WSMessage, sendBuffer),
	}
	if !s.wsHub.Register(client) {
		conn.Close()
		return
	}
	sess.Controller.Session.WithSnapshot(func(v ui.View, gen uint64) {
		msg, err := panelsMessage(gen, v, nil)
		if err != nil {
			s.log.Error("render panels", zap.String("session", sess.ID), zap.Error(err))
			return
		}
		s.wsHub.SendTo(client, msg)
	})

	go wsWritePump(conn, client, s.log)
	go wsReadPump(conn, client, s.log)
}

// wsReadPump reads until the peer goes away. The dashboard never expects
// messages from the browser; reading keeps the pong deadline moving.
func wsReadPump(conn *websocket.Conn, client *WSClient, log *zap.Logger) {
	defer func() {
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read error", zap.String("client", client.id), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		log.Debug("websocket message ignored", zap.String("client", client.id), zap.String("type", msg.Type))
	}
}

// wsWritePump pumps messages from the hub to the WebSocket connection.
func wsWritePump(conn *websocket.Conn, client *WSClient, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("websocket write failed", zap.String("client", client.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
