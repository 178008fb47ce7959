package ports

import (
	"context"
	"time"
)

// Store is a TTL'd key-value store. It backs both the anti-replay nonce
// records and the session token invalidation list.
//
// GetDel is the load-bearing primitive: nonce consumption must be atomic per
// key so that two concurrent callbacks sharing a nonce see exactly one hit.
// Backends that only offer eventual consistency cannot satisfy this and must
// not be used for the nonce store.
type Store interface {
	// Set writes a key with a value and expiration time.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key. Returns core.ErrNotFound when the key
	// is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDel atomically retrieves and removes a key. Returns
	// core.ErrNotFound when the key is absent, already consumed or expired.
	GetDel(ctx context.Context, key string) (string, error)
}
