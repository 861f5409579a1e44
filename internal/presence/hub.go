// Package presence pushes the number of connected clients to every
// connected client.
package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType is the type field of every presence message.
const MessageType = "presence"

// Message reports how many clients are connected.
type Message struct {
	Type        string `json:"type"`
	ActiveUsers int    `json:"active_users"`
}

// writeTimeout bounds a single write to one client.
const writeTimeout = 10 * time.Second

// Hub tracks connected websocket clients.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// writeMu serializes broadcasts; a connection allows one writer at a time.
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:        make(map[*websocket.Conn]struct{}),
		writeTimeout: writeTimeout,
	}
}

// Join adds ws and announces the new count.
func (h *Hub) Join(ws *websocket.Conn) {
	h.mu.Lock()
	h.conns[ws] = struct{}{}
	h.mu.Unlock()
	h.Broadcast()
}

// Leave removes and closes ws and announces the new count.
func (h *Hub) Leave(ws *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[ws]
	delete(h.conns, ws)
	h.mu.Unlock()

	_ = ws.Close()
	if ok {
		h.Broadcast()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends the current count to every client. Clients that cannot be
// written to within the write timeout are dropped.
func (h *Hub) Broadcast() {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for ws := range h.conns {
		conns = append(conns, ws)
	}
	h.mu.Unlock()

	payload, err := json.Marshal(Message{Type: MessageType, ActiveUsers: len(conns)})
	if err != nil {
		return
	}
	for _, ws := range conns {
		if err := h.write(ws, payload); err != nil {
			zap.L().Debug("presence: dropping client", zap.Error(err))
			h.mu.Lock()
			delete(h.conns, ws)
			h.mu.Unlock()
			_ = ws.Close()
		}
	}
}

func (h *Hub) write(ws *websocket.Conn, payload []byte) error {
	if err := ws.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, payload)
}

// Run broadcasts the count every interval until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-t.C:
			h.Broadcast()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.conns {
		_ = ws.Close()
		delete(h.conns, ws)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades the request and keeps the client registered until it
// disconnects. Inbound messages are ignored.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.L().Debug("presence: upgrade failed", zap.Error(err))
			return
		}

		hub.Join(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		hub.Leave(ws)
	}
}
