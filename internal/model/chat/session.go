package chat

import "time"

// DefaultTitle is the placeholder assigned to a session until its first
// user message arrives.
const DefaultTitle = "New conversation"

// titleLimit caps derived session titles, counted in runes.
const titleLimit = 30

// Session is one conversation thread with an append-only message log.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeriveTitle shortens the first user message into a session title:
// content verbatim when short enough, otherwise the first 30 characters
// followed by an ellipsis marker.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}
