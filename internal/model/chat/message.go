package chat

import "time"

// Roles a message can be authored by.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source points at a document the assistant grounded its answer on.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is a single turn in a conversation. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

// DedupSources removes duplicate sources by URI. The first occurrence wins,
// including its title, and order is preserved.
func DedupSources(sources []Source) []Source {
	if len(sources) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		if _, ok := seen[src.URI]; ok {
			continue
		}
		seen[src.URI] = struct{}{}
		out = append(out, src)
	}
	return out
}
