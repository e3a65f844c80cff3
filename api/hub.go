package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
)

const (
	writeWait = 5 * time.Second

	// sendBuffer is how many events a subscriber may fall behind before
	// it is dropped.
	sendBuffer = 32
)

// subscriber is one websocket connection. Its writer goroutine drains
// send; closing send tells the writer to say goodbye and hang up.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans coordinator events out to websocket subscribers.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Broadcast queues event for every subscriber without waiting on the
// network. Subscribers whose queue is full are dropped.
func (h *Hub) Broadcast(event core.Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logf("encode event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- message:
		default:
			h.logf("websocket subscriber too slow; dropping")
			h.dropLocked(sub)
		}
	}
}

// Subscribers returns the number of open connections.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		h.dropLocked(sub)
	}
}

// add registers sub unless the hub is closed.
func (h *Hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[sub] = struct{}{}
	return true
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(sub) {
		_ = conn.Close()
		return
	}
	go h.write(sub)

	// Subscribers only listen; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(sub)
}

func (h *Hub) write(sub *subscriber) {
	defer sub.conn.Close()
	for message := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logf("websocket send failed: %v", err)
			h.drop(sub)
			return
		}
	}
	_ = sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(writeWait))
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger == nil {
		return
	}
	h.logger.Printf(format, args...)
}

// handleWebsocket accepts the access token as a bearer header or, for
// browsers, a token query parameter.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		s.writeFailure(w, r, http.StatusUnauthorized, core.KindInvalidCredentials, "missing bearer token")
		return
	}
	if _, err := s.issuer.Parse(token, auth.TokenAccess); err != nil {
		s.writeFailure(w, r, http.StatusUnauthorized, core.KindInvalidCredentials, err.Error())
		return
	}
	s.hub.serve(w, r)
}
