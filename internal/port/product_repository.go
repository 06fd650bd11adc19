package port

import (
	"context"

	"github.com/rl1809/commerce-hub/internal/core/domain"
)

// ProductRepository exposes atomic, guard-conditioned mutations on a single
// product record. Atomicity is delegated to the store's per-record conditional
// write; implementations must never split a guarded mutation into a read step
// and a write step.
type ProductRepository interface {
	// GetProduct returns the product, or (nil, nil) if it does not exist.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// DecrementStock atomically applies stock -= quantity only if the current
	// stock covers it. Returns the post-update product, or (nil, nil) when the
	// record is missing or the guard failed (indistinguishable at this layer).
	DecrementStock(ctx context.Context, productID string, quantity int) (*domain.Product, error)

	// IncrementStock unconditionally restores stock. Used only for rollback;
	// not idempotent, so callers must issue at most one call per prior decrement.
	IncrementStock(ctx context.Context, productID string, quantity int) error

	// AdjustStock applies a signed delta. Negative deltas carry the same
	// guard as DecrementStock; non-negative deltas apply unconditionally.
	// Returns the post-update product, or (nil, nil) on no match.
	AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error)
}
