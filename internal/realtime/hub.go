package realtime

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/pkg/logger"
	"github.com/charlesng35/classroom/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultBufferSize = 8
)

// Watch events.
const (
	EventState     = "state"
	EventConfirmed = "confirmed"
	EventExpired   = "expired"
	EventNotFound  = "not_found"
)

// Message is the JSON payload pushed to token watchers.
type Message struct {
	Event     string     `json:"event"`
	TokenID   string     `json:"token_id"`
	State     string     `json:"state,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Terminal reports whether no further messages can follow for the token.
func (m Message) Terminal() bool {
	if m.Event == EventState {
		return m.State == pairing.StateAuthenticated.String()
	}
	return true
}

// SnapshotMessage describes the current state of a token for a newly connected watcher.
func SnapshotMessage(id string, token pairing.Token, live bool) Message {
	if !live {
		return Message{Event: EventNotFound, TokenID: id}
	}
	msg := Message{Event: EventState, TokenID: id, State: token.State.String()}
	if token.State == pairing.StateValid {
		deadline := token.Deadline
		msg.ExpiresAt = &deadline
	}
	return msg
}

// Hub pushes pairing token transitions to websocket watchers. It implements
// pairing.Observer so it can be registered on the registry directly.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*watcher]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[*watcher]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow same-origin requests and explicit localhost development.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
		log: logger.WithModule("realtime"),
	}
}

// Serve upgrades the connection and streams events for tokenID. snapshot is evaluated
// after the watcher is registered so no transition between the two is lost.
func (h *Hub) Serve(tokenID string, snapshot func() Message, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("token_id", tokenID), zap.Error(err))
		return
	}

	client := &watcher{
		hub:     h,
		socket:  conn,
		tokenID: tokenID,
		send:    make(chan Message, defaultBufferSize),
	}
	h.register(client)
	select {
	case client.send <- snapshot():
	default:
	}

	go client.writeLoop()
	client.readLoop()
}

// Observe forwards terminal registry changes to the watchers of the affected token.
func (h *Hub) Observe(change pairing.Change) {
	var msg Message
	switch change.Kind {
	case pairing.ChangeConfirmed:
		msg = Message{Event: EventConfirmed, State: pairing.StateAuthenticated.String()}
	case pairing.ChangeExpired, pairing.ChangeSwept:
		msg = Message{Event: EventExpired}
	default:
		return
	}
	msg.TokenID = change.Token.ID
	h.Broadcast(msg)
}

// Broadcast delivers msg to every watcher of msg.TokenID.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.watchers[msg.TokenID] {
		select {
		case client.send <- msg:
		default:
			h.log.Warn("dropping slow watcher", zap.String("token_id", msg.TokenID))
			go client.close()
		}
	}
}

// Watchers returns the number of connected watchers for tokenID.
func (h *Hub) Watchers(tokenID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[tokenID])
}

func (h *Hub) register(client *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[client.tokenID] == nil {
		h.watchers[client.tokenID] = make(map[*watcher]struct{})
	}
	h.watchers[client.tokenID][client] = struct{}{}
	metrics.PairingWatchers.Inc()
}

func (h *Hub) unregister(client *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.watchers[client.tokenID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.watchers, client.tokenID)
	}
	metrics.PairingWatchers.Dec()
}

type watcher struct {
	hub     *Hub
	socket  *websocket.Conn
	tokenID string
	send    chan Message
	once    sync.Once
}

// readLoop only drains control frames; watchers never send data.
func (c *watcher) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected watcher close", zap.String("token_id", c.tokenID), zap.Error(err))
			}
			return
		}
	}
}

func (c *watcher) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(msg); err != nil {
				return
			}
			if msg.Terminal() {
				_ = c.socket.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg.Event))
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *watcher) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.send)
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
