package handlers

import (
	"net/http"

	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles the live snapshot feed. Clients receive the full
// home view again whenever their own or their partner's data changes; they
// never send anything but pings.
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}
	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(r.Context(), userID, conn)
	defer h.hub.Unregister(userID)

	// Drain incoming frames until the peer goes away so pings are answered
	// and the subscription is torn down on close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", userID).Msg("WebSocket read error")
			}
			return
		}
	}
}
