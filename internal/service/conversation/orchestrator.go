// Package conversation sequences a send: policy gate, optimistic user
// append, backend call, assistant append.
package conversation

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khanlabs/neurachat/backend/internal/model/chat"
	"github.com/khanlabs/neurachat/backend/internal/policy"
	"github.com/khanlabs/neurachat/backend/internal/service/ai"
	chatservice "github.com/khanlabs/neurachat/backend/internal/service/chat"
)

// Status describes how a send attempt resolved.
type Status string

const (
	// StatusRejected: empty input, nothing happened.
	StatusRejected Status = "rejected"
	// StatusBusy: another send is in flight.
	StatusBusy Status = "busy"
	// StatusLocked: the lock is active; input is refused before
	// classification.
	StatusLocked Status = "locked"
	// StatusDiscarded: a free-strike policy violation, silently dropped.
	StatusDiscarded Status = "discarded"
	// StatusWarned: a policy violation that surfaced the warning overlay.
	StatusWarned Status = "warned"
	// StatusLockEngaged: this violation imposed the lock.
	StatusLockEngaged Status = "lock_engaged"
	// StatusSent: user and assistant messages were appended.
	StatusSent Status = "sent"
	// StatusFailed: the user message was appended but the backend faulted
	// unexpectedly; no assistant message exists.
	StatusFailed Status = "failed"
)

// Result is the outcome of one Send call.
type Result struct {
	Status    Status
	User      *chat.Message
	Assistant *chat.Message
}

// Orchestrator coordinates the guard, the session store and the backend.
// The loading flag is the sole, advisory mutual exclusion for sends.
type Orchestrator struct {
	guard    *policy.Guard
	sessions *chatservice.Service
	backend  ai.Backend

	mu      sync.Mutex
	sending bool

	now func() time.Time
}

// New wires an orchestrator. now may be nil (wall clock).
func New(guard *policy.Guard, sessions *chatservice.Service, backend ai.Backend, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{guard: guard, sessions: sessions, backend: backend, now: now}
}

// Loading reports whether a send is in flight.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sending
}

// Send runs one conversation turn against the named session. The lock check
// short-circuits before classification; policy violations mutate guard
// state and discard the text without contacting the backend.
func (o *Orchestrator) Send(ctx context.Context, sessionID, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Status: StatusRejected}
	}
	if o.guard.Locked() {
		return Result{Status: StatusLocked}
	}

	o.mu.Lock()
	if o.sending {
		o.mu.Unlock()
		return Result{Status: StatusBusy}
	}
	o.sending = true
	o.mu.Unlock()

	defer func() {
		// Unconditional: the interface must never stay stuck loading.
		o.mu.Lock()
		o.sending = false
		o.mu.Unlock()
	}()

	switch o.guard.Check(text) {
	case policy.VerdictIgnored:
		return Result{Status: StatusDiscarded}
	case policy.VerdictWarned:
		return Result{Status: StatusWarned}
	case policy.VerdictLocked:
		return Result{Status: StatusLockEngaged}
	}

	userMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: o.now().UTC(),
	}
	if err := o.sessions.AppendMessage(ctx, sessionID, userMsg); err != nil {
		log.Printf("[conversation] append user message: %v", err)
		return Result{Status: StatusRejected}
	}

	reply, err := o.backend.SendMessage(ctx, text)
	if err != nil {
		// Well-behaved backends downgrade failures to diagnostic replies;
		// anything surfacing here is an unexpected fault. The optimistic
		// user message stays, no response is appended.
		log.Printf("[conversation] backend fault: %v", err)
		return Result{Status: StatusFailed, User: &userMsg}
	}

	assistantMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Content:   reply.Text,
		Timestamp: o.now().UTC(),
		Sources:   chat.DedupSources(reply.Sources),
	}
	if err := o.sessions.AppendMessage(ctx, sessionID, assistantMsg); err != nil {
		log.Printf("[conversation] append assistant message: %v", err)
		return Result{Status: StatusFailed, User: &userMsg}
	}

	return Result{Status: StatusSent, User: &userMsg, Assistant: &assistantMsg}
}
