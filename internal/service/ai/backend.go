// Package ai wraps the remote generation model behind the Backend contract:
// Initialize establishes a per-session context, SendMessage returns either
// model output or a human-readable diagnostic, never an internal fault.
package ai

import (
	"context"

	"github.com/khanlabs/neurachat/backend/internal/model/chat"
)

// Reply is one generated answer plus the sources it was grounded on.
type Reply struct {
	Text    string
	Sources []chat.Source
}

// Backend is the conversation collaborator consumed by the orchestrator.
type Backend interface {
	// Initialize (re)establishes a generation context. Safe to call
	// repeatedly; failure leaves the context unset rather than faulting.
	Initialize(ctx context.Context)

	// SendMessage forwards text to the model. Implementations translate
	// their own configuration and runtime failures into a diagnostic Reply
	// with a nil error; a non-nil error is an unexpected fault.
	SendMessage(ctx context.Context, text string) (Reply, error)
}
