package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and implements the Feed interface.
// Each connected user holds one subscription keyed by the partner they
// currently watch; the key is re-derived on every pairing change, and every
// change event replaces the full home snapshot rather than patching it.
type WSHub struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
	watch map[string]string // connected user -> watched partner

	users    UserStore
	memories *MemoryService
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(users UserStore) *WSHub {
	return &WSHub{
		conns: make(map[string]*websocket.Conn),
		watch: make(map[string]string),
		users: users,
	}
}

// BindMemories wires the snapshot source. Called once during startup; the
// hub and the memory service reference each other, so one side binds late.
func (h *WSHub) BindMemories(memories *MemoryService) {
	h.memories = memories
}

// Register registers a connection for a user, replacing any previous one,
// and pushes the initial pair status and snapshot.
func (h *WSHub) Register(ctx context.Context, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if existing, ok := h.conns[userID]; ok {
		existing.Close()
	}
	h.conns[userID] = conn
	h.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")

	h.rederiveWatch(ctx, userID)
	h.sendPairStatus(ctx, userID)
	h.pushSnapshot(ctx, userID)
}

// Unregister removes a user's connection and its subscription entry.
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.conns[userID]; ok {
		conn.Close()
		delete(h.conns, userID)
		delete(h.watch, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// IsOnline checks if a user is connected
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// SendToUser sends a message to a connected user.
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// MemoriesChanged recomputes and pushes snapshots for everyone whose merged
// view includes the owner's records: the owner, plus any connected user
// watching the owner as partner.
func (h *WSHub) MemoriesChanged(ctx context.Context, ownerID string) {
	affected := []string{ownerID}
	h.mu.RLock()
	for userID, partnerID := range h.watch {
		if partnerID == ownerID {
			affected = append(affected, userID)
		}
	}
	h.mu.RUnlock()

	for _, userID := range affected {
		h.pushSnapshot(ctx, userID)
	}
}

// PairingChanged re-derives the watched-partner key for each user and pushes
// fresh pair status and snapshots. The old partner subscription is dropped
// here; it is not re-scoped automatically.
func (h *WSHub) PairingChanged(ctx context.Context, userIDs ...string) {
	for _, userID := range userIDs {
		h.rederiveWatch(ctx, userID)
		h.sendPairStatus(ctx, userID)
		h.pushSnapshot(ctx, userID)
	}
}

func (h *WSHub) rederiveWatch(ctx context.Context, userID string) {
	if !h.IsOnline(userID) {
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for watch derivation")
		return
	}

	h.mu.Lock()
	if _, connected := h.conns[userID]; connected {
		if user.PartnerID != nil {
			h.watch[userID] = *user.PartnerID
		} else {
			delete(h.watch, userID)
		}
	}
	h.mu.Unlock()
}

func (h *WSHub) sendPairStatus(ctx context.Context, userID string) {
	if !h.IsOnline(userID) {
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for pair status")
		return
	}

	msg := WSMessage{
		Type: "pair_status",
		Data: map[string]interface{}{
			"paired":     user.PartnerID != nil,
			"partner_id": user.PartnerID,
		},
	}
	if err := h.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send pair status")
	}
}

func (h *WSHub) pushSnapshot(ctx context.Context, userID string) {
	if h.memories == nil || !h.IsOnline(userID) {
		return
	}

	home, err := h.memories.Home(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to build snapshot")
		return
	}
	if err := h.SendToUser(userID, WSMessage{Type: "snapshot", Data: home}); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to push snapshot")
	}
}
