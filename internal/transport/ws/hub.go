package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"classboard/internal/model"
)

// Hub holds the per-session subscriber sets and fans events out to them.
// One topic per session id; subscribe/unsubscribe and publish run
// concurrently from unrelated request paths, so the registry is
// mutex-guarded. Delivery is best-effort: a slow consumer's buffer fills
// and the event is dropped for that connection, never blocking the
// publisher or other sessions.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Connection]bool
	logger *zap.Logger
}

// Connection is one subscriber on a session topic.
type Connection struct {
	SessionID string
	UserID    string
	Send      chan []byte
}

const sendBufferSize = 256

// NewConnection creates a subscriber connection for a session topic.
func NewConnection(sessionID, userID string) *Connection {
	return &Connection{
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, sendBufferSize),
	}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Connection]bool),
		logger: logger,
	}
}

// Subscribe adds the connection to its session's topic. Membership must have
// been verified by the caller before subscribing; it is not re-checked per
// event.
func (h *Hub) Subscribe(conn *Connection) {
	h.mu.Lock()
	if h.topics[conn.SessionID] == nil {
		h.topics[conn.SessionID] = make(map[*Connection]bool)
	}
	h.topics[conn.SessionID][conn] = true
	n := len(h.topics[conn.SessionID])
	h.mu.Unlock()

	h.logger.Debug("subscriber added",
		zap.String("sessionId", conn.SessionID),
		zap.String("userId", conn.UserID),
		zap.Int("subscribers", n),
	)
}

// Unsubscribe removes the connection from its topic and closes its send
// channel. Safe to call more than once for the same connection.
func (h *Hub) Unsubscribe(conn *Connection) {
	h.mu.Lock()
	subs, ok := h.topics[conn.SessionID]
	if ok && subs[conn] {
		delete(subs, conn)
		close(conn.Send)
		if len(subs) == 0 {
			delete(h.topics, conn.SessionID)
		}
	}
	h.mu.Unlock()
}

// Publish sends the event to every current subscriber of the session topic.
// Fire-and-forget: marshals once, drops on full buffers.
func (h *Hub) Publish(sessionID string, event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", zap.String("sessionId", sessionID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.topics[sessionID] {
		select {
		case conn.Send <- data:
		default:
			// Buffer full, drop for this subscriber.
		}
	}
}

// SubscriberCount returns the current size of a session's topic.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[sessionID])
}
