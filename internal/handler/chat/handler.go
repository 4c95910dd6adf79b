// Package chat exposes the conversation API: session management, message
// submission and the policy state surface.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khanlabs/neurachat/backend/internal/model/chat"
	"github.com/khanlabs/neurachat/backend/internal/policy"
	chatservice "github.com/khanlabs/neurachat/backend/internal/service/chat"
	"github.com/khanlabs/neurachat/backend/internal/service/conversation"
	"github.com/khanlabs/neurachat/backend/pkg/utils"
)

// Handler serves the presentation boundary over HTTP.
type Handler struct {
	sessions     *chatservice.Service
	orchestrator *conversation.Orchestrator
	guard        *policy.Guard
}

// New creates the chat handler.
func New(sessions *chatservice.Service, orchestrator *conversation.Orchestrator, guard *policy.Guard) *Handler {
	return &Handler{
		sessions:     sessions,
		orchestrator: orchestrator,
		guard:        guard,
	}
}

// RegisterRoutes attaches the conversation endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Post("/sessions", h.handleCreateSession)
	r.Put("/sessions/active", h.handleSelectSession)
	r.Post("/sessions/clear", h.handleClearAll)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Post("/messages", h.handleSendMessage)
	r.Get("/policy/state", h.handlePolicyState)
	r.Post("/policy/warning/dismiss", h.handleDismissWarning)
}

type sessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: len(s.Messages),
			CreatedAt:    s.CreatedAt,
		})
	}

	payload := map[string]any{
		"sessions":        summaries,
		"activeSessionId": nullableID(h.sessions.ActiveID()),
	}
	utils.RespondJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.CreateSession(r.Context())
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID *string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.ID == nil || *payload.ID == "" {
		h.sessions.Select("")
		utils.RespondJSON(w, http.StatusOK, map[string]any{"activeSessionId": nil})
		return
	}

	if _, err := h.sessions.Get(*payload.ID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	h.sessions.Select(*payload.ID)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"activeSessionId": *payload.ID})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"activeSessionId": nullableID(h.sessions.ActiveID()),
	})
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !payload.Confirm {
		utils.RespondError(w, http.StatusBadRequest, "confirmation required")
		return
	}

	session := h.sessions.ClearAll(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":         session,
		"activeSessionId": session.ID,
	})
}

type sendResponse struct {
	Status         string        `json:"status"`
	User           *chat.Message `json:"user,omitempty"`
	Assistant      *chat.Message `json:"assistant,omitempty"`
	WarningVisible bool          `json:"warningVisible"`
	WarningNumber  int           `json:"warningNumber,omitempty"`
	MaxWarnings    int           `json:"maxWarnings,omitempty"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	result := h.orchestrator.Send(r.Context(), payload.SessionID, payload.Content)

	status := http.StatusOK
	switch result.Status {
	case conversation.StatusRejected:
		status = http.StatusBadRequest
	case conversation.StatusBusy:
		status = http.StatusConflict
	case conversation.StatusLocked:
		status = http.StatusLocked
	case conversation.StatusFailed:
		status = http.StatusBadGateway
	}

	utils.RespondJSON(w, status, sendResponse{
		Status:         string(result.Status),
		User:           result.User,
		Assistant:      result.Assistant,
		WarningVisible: h.guard.WarningVisible(),
		WarningNumber:  h.guard.WarningNumber(),
		MaxWarnings:    h.guard.MaxWarnings(),
	})
}

type policyState struct {
	Locked         bool   `json:"locked"`
	Remaining      string `json:"remaining"`
	WarningVisible bool   `json:"warningVisible"`
	WarningNumber  int    `json:"warningNumber"`
	MaxWarnings    int    `json:"maxWarnings"`
	Loading        bool   `json:"loading"`
}

func (h *Handler) handlePolicyState(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, policyState{
		Locked:         h.guard.Locked(),
		Remaining:      policy.FormatRemaining(h.guard.Remaining()),
		WarningVisible: h.guard.WarningVisible(),
		WarningNumber:  h.guard.WarningNumber(),
		MaxWarnings:    h.guard.MaxWarnings(),
		Loading:        h.orchestrator.Loading(),
	})
}

func (h *Handler) handleDismissWarning(w http.ResponseWriter, r *http.Request) {
	h.guard.DismissWarning()
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"warningVisible": false})
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
