package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"classboard/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin restriction belongs to the deployment proxy
	},
}

// Handler upgrades members onto their session topic.
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
	guard   *service.Guard
	logger  *zap.Logger
}

func NewHandler(hub *Hub, authSvc *service.AuthService, guard *service.Guard, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		guard:   guard,
		logger:  logger,
	}
}

// Subscribe handles GET /v1/ws/sessions/{id}. The token rides in a query
// param because browser websocket clients cannot set headers. Membership is
// checked once, here; a member who leaves mid-session keeps the stream until
// the transport closes.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.authSvc.Identity(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := h.guard.Require(r.Context(), sessionID, userID, service.ActionSubscribe); err != nil {
		http.Error(w, "not a member of this session", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(sessionID, userID)
	h.hub.Subscribe(conn)

	h.logger.Info("subscriber connected",
		zap.String("sessionId", sessionID),
		zap.String("userId", userID),
	)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// readPump drains (and ignores) inbound frames; its job is detecting
// transport closure so the connection auto-unsubscribes.
func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unsubscribe(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}
		// Clients publish through REST; inbound frames carry nothing.
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
