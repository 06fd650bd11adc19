package port

import "context"

// CacheRepository backs the request-level idempotency guard.
type CacheRepository interface {
	// SetIdempotency claims a key, returning false if it was already claimed.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
