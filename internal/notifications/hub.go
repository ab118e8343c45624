package notifications

import (
	"context"
	"log/slog"
	"sync"

	"irtzalink/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

// Hub pushes live notification events to a user's open websocket
// sessions. Events arrive over the Redis channel the Notifier
// publishes to, so every instance behind the load balancer sees them.
type Hub struct {
	notifier *Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[uint]map[*websocket.Conn]struct{}
}

// NewHub creates a new hub over the given notifier.
func NewHub(notifier *Notifier, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = middleware.Logger
	}
	return &Hub{
		notifier: notifier,
		logger:   logger,
		conns:    make(map[uint]map[*websocket.Conn]struct{}),
	}
}

// ServeUser pumps the user's event channel into conn until the socket
// or the subscription drops. It blocks, so call it from the websocket
// handler goroutine.
func (h *Hub) ServeUser(ctx context.Context, userID uint, conn *websocket.Conn) {
	h.register(userID, conn)
	defer h.unregister(userID, conn)

	sub := h.notifier.Subscribe(ctx, userID)
	if sub == nil {
		// No Redis: hold the socket open so the client falls back to
		// polling without reconnect churn.
		h.drain(conn)
		return
	}
	defer func() { _ = sub.Close() }()

	// Reader goroutine notices client disconnects and control frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.drain(conn)
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.DebugContext(ctx, "websocket write failed, dropping session",
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Sessions reports how many sockets a user currently has open.
func (h *Hub) Sessions(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

func (h *Hub) register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

func (h *Hub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
