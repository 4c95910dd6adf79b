package store

import (
	"context"
	"encoding/json"
	"log"
)

// Load reads and decodes the value stored under key. A missing key, a read
// failure, or a corrupt blob all yield def: hydration must never block
// startup. Timestamp fields round-trip through their RFC 3339 JSON form.
func Load[T any](ctx context.Context, kv KV, key string, def T) T {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		log.Printf("[store] load %q: %v", key, err)
		return def
	}
	if !ok {
		return def
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		log.Printf("[store] corrupt value for %q, using default: %v", key, err)
		return def
	}
	return value
}

// Save encodes value as JSON and writes it under key. Persistence is
// fire-and-forget: failures are logged, never surfaced to the caller.
func Save[T any](ctx context.Context, kv KV, key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[store] marshal %q: %v", key, err)
		return
	}
	if err := kv.Set(ctx, key, string(raw)); err != nil {
		log.Printf("[store] save %q: %v", key, err)
	}
}
