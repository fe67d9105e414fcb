package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avvvet/hotel-concierge/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type wsIncoming struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

type wsOutgoing struct {
	Type      string               `json:"type"` // connected, reply, error
	SessionID string               `json:"session_id"`
	Text      string               `json:"text,omitempty"`
	Response  *models.ChatResponse `json:"response,omitempty"`
}

// WSHandler serves a chat session over a websocket. Every text frame is
// one turn and gets exactly one reply frame.
type WSHandler struct {
	chat           ChatService
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
	turnTimeout    time.Duration
	logger         *zap.Logger
}

func NewWSHandler(chat ChatService, allowedOrigins []string, turnTimeout time.Duration, logger *zap.Logger) *WSHandler {
	h := &WSHandler{
		chat:           chat,
		allowedOrigins: make(map[string]bool),
		turnTimeout:    turnTimeout,
		logger:         logger,
	}
	for _, o := range allowedOrigins {
		h.allowedOrigins[o] = true
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	return h.allowedOrigins[origin]
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := conn.WriteJSON(wsOutgoing{Type: "connected", SessionID: sessionID}); err != nil {
		h.logger.Warn("failed to send connected message", zap.Error(err))
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket closed unexpectedly", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}

		var incoming wsIncoming
		if err := json.Unmarshal(data, &incoming); err != nil {
			if err := conn.WriteJSON(wsOutgoing{
				Type:      "error",
				SessionID: sessionID,
				Text:      "invalid message format, send JSON with a 'text' field",
			}); err != nil {
				return
			}
			continue
		}

		out := h.turn(r.Context(), sessionID, incoming)
		if err := conn.WriteJSON(out); err != nil {
			h.logger.Warn("failed to write to websocket", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
	}
}

func (h *WSHandler) turn(parent context.Context, sessionID string, incoming wsIncoming) wsOutgoing {
	ctx, cancel := context.WithTimeout(parent, h.turnTimeout)
	defer cancel()

	response, err := h.chat.ProcessMessage(ctx, &models.ChatRequest{
		SessionID: sessionID,
		UserID:    incoming.UserID,
		Message:   incoming.Text,
	})
	if err != nil {
		h.logger.Error("failed to process message", zap.String("session_id", sessionID), zap.Error(err))
		response = errorResponse(sessionID, models.ErrorInternal, err.Error())
	}

	msgType := "reply"
	if response.Status == models.StatusError {
		msgType = "error"
	}
	return wsOutgoing{Type: msgType, SessionID: sessionID, Text: response.Reply, Response: response}
}
