package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khanlabs/neurachat/backend/internal/policy"
	"github.com/khanlabs/neurachat/backend/internal/service/ai"
	chatservice "github.com/khanlabs/neurachat/backend/internal/service/chat"
	"github.com/khanlabs/neurachat/backend/internal/service/conversation"
)

type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemKV() *memKV { return &memKV{m: make(map[string]string)} }

func (kv *memKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *memKV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

func (kv *memKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

func (kv *memKV) Close() error { return nil }

type stubBackend struct {
	reply ai.Reply
}

func (b *stubBackend) Initialize(context.Context) {}

func (b *stubBackend) SendMessage(context.Context, string) (ai.Reply, error) {
	return b.reply, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *chatservice.Service, *policy.Guard) {
	t.Helper()
	guard := policy.NewGuard(policy.DefaultConfig(), nil, nil)
	sessions := chatservice.NewService(context.Background(), newMemKV(), nil)
	backend := &stubBackend{reply: ai.Reply{Text: "stubbed answer"}}
	orchestrator := conversation.New(guard, sessions, backend, nil)
	handler := New(sessions, orchestrator, guard)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions, guard
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestListSessionsHasAutoCreatedActive(t *testing.T) {
	r, sessions, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodGet, "/sessions", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
		ActiveSessionID *string `json:"activeSessionId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(payload.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(payload.Sessions))
	}
	if payload.ActiveSessionID == nil || *payload.ActiveSessionID != sessions.ActiveID() {
		t.Fatalf("activeSessionId = %v", payload.ActiveSessionID)
	}
}

func TestCreateSession(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/sessions", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestSelectUnknownSession(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPut, "/sessions/active", map[string]string{"id": "missing"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSelectNoneClearsActive(t *testing.T) {
	r, sessions, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPut, "/sessions/active", map[string]any{"id": nil})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if sessions.ActiveID() != "" {
		t.Fatalf("active id = %q, want none", sessions.ActiveID())
	}
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/sessions/clear", map[string]bool{"confirm": false})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodPost, "/sessions/clear", map[string]bool{"confirm": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with confirmation, got %d", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r, sessions, _ := setupRouter(t)
	id := sessions.ActiveID()

	resp := doJSON(t, r, http.MethodDelete, "/sessions/"+id, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodDelete, "/sessions/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.Code)
	}
}

func TestSendMessageReturnsAssistantReply(t *testing.T) {
	r, sessions, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/messages", map[string]string{
		"sessionId": sessions.ActiveID(),
		"content":   "hello there",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Status    string `json:"status"`
		Assistant *struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"assistant"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Status != "sent" {
		t.Fatalf("status = %q, want sent", payload.Status)
	}
	if payload.Assistant == nil || payload.Assistant.Content != "stubbed answer" {
		t.Fatalf("assistant = %+v", payload.Assistant)
	}
}

func TestSendMessageWhileLockedReturns423(t *testing.T) {
	r, sessions, guard := setupRouter(t)
	guard.Restore(5, time.Now().Add(time.Hour))

	resp := doJSON(t, r, http.MethodPost, "/messages", map[string]string{
		"sessionId": sessions.ActiveID(),
		"content":   "anything at all",
	})
	if resp.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", resp.Code)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	r, sessions, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/messages", map[string]string{
		"sessionId": sessions.ActiveID(),
		"content":   "   ",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPolicyStateAndWarningDismissal(t *testing.T) {
	r, sessions, guard := setupRouter(t)

	// Two abusive sends: one free strike, then a visible warning.
	for i := 0; i < 2; i++ {
		doJSON(t, r, http.MethodPost, "/messages", map[string]string{
			"sessionId": sessions.ActiveID(),
			"content":   "hamza is stupid",
		})
	}
	if !guard.WarningVisible() {
		t.Fatal("warning should be visible after second strike")
	}

	resp := doJSON(t, r, http.MethodGet, "/policy/state", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var state struct {
		Locked         bool   `json:"locked"`
		Remaining      string `json:"remaining"`
		WarningVisible bool   `json:"warningVisible"`
		WarningNumber  int    `json:"warningNumber"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if state.Locked {
		t.Fatal("not locked yet")
	}
	if state.Remaining != "0h 0m 0s" {
		t.Fatalf("remaining = %q, want zero countdown", state.Remaining)
	}
	if !state.WarningVisible || state.WarningNumber != 1 {
		t.Fatalf("warning state = %+v", state)
	}

	resp = doJSON(t, r, http.MethodPost, "/policy/warning/dismiss", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if guard.WarningVisible() {
		t.Fatal("warning should hide after dismissal")
	}
}
