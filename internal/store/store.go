// Package store provides the durable key-value persistence layer.
package store

import "context"

// Well-known keys. Each aggregate persists independently; absence of a key
// is a valid initial state, not an error.
const (
	KeySessions   = "chat_sessions"
	KeyAbuseCount = "abuse_count"
	KeyLockUntil  = "lock_until"
)

// KV is a durable string-blob store that survives process restarts.
type KV interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores or replaces the value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}
