package port

import (
	"context"

	"github.com/rl1809/commerce-hub/internal/core/domain"
)

// OrderRepository persists order records keyed by identity.
type OrderRepository interface {
	// GetOrder returns the order with its items, or (nil, nil) if absent.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// CreateOrder persists a new order and its items in one transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// UpdateOrder fully replaces the stored order. Returns the stored order,
	// or (nil, nil) when no record matched the identity.
	UpdateOrder(ctx context.Context, orderID string, order *domain.Order) (*domain.Order, error)
}
