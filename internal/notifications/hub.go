package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"commentguard/internal/middleware"
	"commentguard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerOperator = 12
	maxTotalConns       = 1000
)

var (
	// ErrServerFull is returned when the hub is at its connection limit.
	ErrServerFull = errors.New("server connection limit reached")
	// ErrOperatorFull is returned when one operator has too many connections.
	ErrOperatorFull = errors.New("operator connection limit reached")
)

// Hub fans moderation events out to every connected operator.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Client]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "moderation feed" }

// Register adds a connection for operator. conn may be nil in tests.
func (h *Hub) Register(operator string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.conns[operator]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[operator] = m
	}
	if len(m) >= maxConnsPerOperator {
		return nil, ErrOperatorFull
	}

	client := NewClient(h, conn, operator)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. It is safe to
// call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.Operator]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.Operator)
	}
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
	close(client.Send)
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// StartWiring forwards every moderation event published through n to the
// connected operators.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if !IsModerationChannel(channel) {
			middleware.Logger.Warn("ignoring message on foreign channel", slog.String("channel", channel))
			return
		}
		h.BroadcastAll(payload)
	})
}

// Shutdown closes every connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for operator, clients := range h.conns {
		for client := range clients {
			if client.Conn != nil {
				if err := client.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
					middleware.Logger.Warn("failed to write close message",
						slog.String("operator", operator), slog.String("error", err.Error()))
				}
				_ = client.Conn.Close()
			}
			close(client.Send)
			observability.WebSocketConnectionsTotal.Dec()
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
