// Package status pushes live lock-countdown and loading state to clients
// over a websocket, so the interface can re-enable input the moment a lock
// expires without polling.
package status

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/khanlabs/neurachat/backend/internal/policy"
	"github.com/khanlabs/neurachat/backend/internal/service/conversation"
)

// tickInterval is the countdown refresh rate.
const tickInterval = time.Second

// Handler streams policy/loading state over a websocket connection.
type Handler struct {
	guard        *policy.Guard
	orchestrator *conversation.Orchestrator
	upgrader     websocket.Upgrader
}

// New creates the status websocket handler.
func New(guard *policy.Guard, orchestrator *conversation.Orchestrator) *Handler {
	return &Handler{
		guard:        guard,
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes attaches the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/status", h.handleWebSocket)
}

type statusTick struct {
	Locked    bool   `json:"locked"`
	Remaining string `json:"remaining"`
	Loading   bool   `json:"loading"`
	Timestamp int64  `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[status] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick := statusTick{
				Locked:    h.guard.Locked(),
				Remaining: policy.FormatRemaining(h.guard.Remaining()),
				Loading:   h.orchestrator.Loading(),
				Timestamp: time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(tick); err != nil {
				return
			}
		}
	}
}
