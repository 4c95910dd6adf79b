package ai

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/khanlabs/neurachat/backend/internal/config"
)

// systemInstruction fixes the assistant's persona for every session.
const systemInstruction = `You are a sharp, professional and loyal assistant
built by Hamza Khan, an elite designer and engineer. When asked about him,
speak of him as the creator of this system. Answer concisely and stay on
topic.`

// historyLimit bounds the per-session context carried between turns.
const historyLimit = 20

// Diagnostic texts returned in place of a model answer when the backend
// cannot complete a request.
const (
	msgMissingCredentials = "CONFIGURATION ALERT: no model credentials detected. Set ARK_API_KEY (or an AK/SK pair) and ARK_MODEL in the environment."
	msgSafetyBlocked      = "Safety protocol: the content was flagged by the model. Please rephrase your request."
	msgQuotaExceeded      = "Bandwidth limit reached: the model is busy. Please wait a minute and try again."
	msgGenericFailure     = "The connection to the model was interrupted. Please try again."
)

// Service implements Backend on top of an eino chat chain with an Ark
// model. One Service instance holds one generation context: Initialize
// resets the history, so each chat session gets its own context.
type Service struct {
	cfg config.AIConfig

	mu      sync.Mutex
	chain   compose.Runnable[map[string]any, *schema.Message]
	history []*schema.Message
}

// NewService builds a backend from model configuration. The chain is not
// compiled until Initialize runs.
func NewService(cfg config.AIConfig) *Service {
	return &Service{cfg: cfg}
}

// Initialize compiles the generation chain and clears any accumulated
// history. On failure the chain stays unset and SendMessage degrades to a
// diagnostic reply.
func (s *Service) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.chain = nil

	chatModel, err := s.cfg.NewChatModel(ctx)
	if err != nil {
		log.Printf("[ai] model unavailable: %v", err)
		return
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		log.Printf("[ai] failed to compile chat chain: %v", err)
		return
	}

	s.chain = runnable
}

// SendMessage runs one generation turn. Configuration and runtime failures
// come back as diagnostic replies with a nil error so callers can treat
// "backend problem" and "model answered" uniformly.
func (s *Service) SendMessage(ctx context.Context, text string) (Reply, error) {
	s.mu.Lock()
	if s.chain == nil {
		s.mu.Unlock()
		s.Initialize(ctx)
		s.mu.Lock()
	}

	if s.chain == nil {
		s.mu.Unlock()
		return Reply{Text: msgMissingCredentials}, nil
	}

	input := map[string]any{
		"system":  systemInstruction,
		"history": s.snapshotHistory(),
		"query":   text,
	}
	chain := s.chain
	s.mu.Unlock()

	response, err := chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[ai] generation failed: %v", err)
		return Reply{Text: diagnose(err)}, nil
	}

	answer := response.Content
	if answer == "" {
		answer = "Connection stable, but the response was empty."
	}

	s.mu.Lock()
	s.history = append(s.history,
		schema.UserMessage(text),
		schema.AssistantMessage(answer, nil),
	)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.mu.Unlock()

	// The Ark model exposes no web-grounding metadata, so replies carry no
	// sources.
	return Reply{Text: answer}, nil
}

// snapshotHistory copies the history slice. Caller holds s.mu.
func (s *Service) snapshotHistory() []*schema.Message {
	if len(s.history) == 0 {
		return nil
	}
	out := make([]*schema.Message, len(s.history))
	copy(out, s.history)
	return out
}

// diagnose maps a model failure onto one of the user-facing diagnostic
// categories.
func diagnose(err error) string {
	raw := strings.ToLower(err.Error())
	switch {
	case strings.Contains(raw, "api key") || strings.Contains(raw, "credentials") ||
		strings.Contains(raw, "unauthorized") || strings.Contains(raw, "403"):
		return msgMissingCredentials
	case strings.Contains(raw, "safety") || strings.Contains(raw, "blocked"):
		return msgSafetyBlocked
	case strings.Contains(raw, "quota") || strings.Contains(raw, "rate limit") ||
		strings.Contains(raw, "429"):
		return msgQuotaExceeded
	default:
		return msgGenericFailure
	}
}
