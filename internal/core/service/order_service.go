package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/commerce-hub/internal/core/domain"
	"github.com/rl1809/commerce-hub/internal/port"
)

type OrderService struct {
	orders    port.OrderRepository
	products  port.ProductRepository
	publisher port.EventPublisher
	logger    *zap.Logger
}

func NewOrderService(orders port.OrderRepository, products port.ProductRepository, publisher port.EventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		publisher: publisher,
		logger:    logger,
	}
}

type CheckoutItem struct {
	ProductID string
	Quantity  int
}

type CheckoutInput struct {
	CustomerID string
	Items      []CheckoutItem
}

type UpdateOrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

type UpdateOrderInput struct {
	CustomerID  string
	Items       []UpdateOrderItem
	Status      string
	TotalAmount decimal.Decimal
}

// decrementedItem is one entry in the rollback ledger: a stock decrement that
// has been applied and must be reversed if the checkout fails before commit.
type decrementedItem struct {
	productID string
	quantity  int
}

// Checkout reserves stock for each requested item one at a time, creates the
// order, and publishes an order.created event. A failure before the order is
// persisted rolls back every decrement already applied; a publish failure
// after persistence does not, since the order itself stands.
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*domain.Order, error) {
	var (
		decremented []decrementedItem
		orderItems  []domain.OrderItem
	)

	for _, item := range input.Items {
		product, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error("unexpected error during checkout, rolling back stock decrements",
				zap.String("product_id", item.ProductID), zap.Error(err))
			s.rollbackStock(decremented)
			return nil, fmt.Errorf("decrement stock for product %s: %w", item.ProductID, err)
		}

		if product == nil {
			// The guarded write matched nothing: either the product is missing
			// or its stock is insufficient. A plain lookup tells the two apart.
			existing, err := s.products.GetProduct(ctx, item.ProductID)
			if err != nil {
				s.rollbackStock(decremented)
				return nil, fmt.Errorf("look up product %s: %w", item.ProductID, err)
			}
			if existing == nil {
				s.logger.Warn("checkout failed: product not found", zap.String("product_id", item.ProductID))
				s.rollbackStock(decremented)
				return nil, &ProductNotFoundError{ProductID: item.ProductID}
			}

			s.logger.Warn("checkout failed: insufficient stock",
				zap.String("product_id", item.ProductID),
				zap.Int("requested", item.Quantity),
				zap.Int("available", existing.Stock))
			s.rollbackStock(decremented)
			return nil, &InsufficientStockError{
				ProductID: existing.ID,
				Name:      existing.Name,
				SKU:       existing.SKU,
				Requested: item.Quantity,
				Available: existing.Stock,
			}
		}

		decremented = append(decremented, decrementedItem{productID: item.ProductID, quantity: item.Quantity})
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}

	order := domain.NewOrder(uuid.NewString(), input.CustomerID, orderItems)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.Error("order creation failed, rolling back stock decrements",
			zap.String("order_id", order.ID), zap.Error(err))
		s.rollbackStock(decremented)
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The order is committed; from here on nothing is rolled back.
	event := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
		CreatedAt:   order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, domain.EventOrderCreated, event); err != nil {
		s.logger.Error("failed to publish order created event",
			zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("publish %s event: %w", domain.EventOrderCreated, err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("total", order.TotalAmount.String()))

	return order, nil
}

// rollbackStock restores stock for every decrement recorded in the ledger, in
// the order they were applied. Each increment is best-effort: one failure is
// logged and the remaining entries are still attempted. Runs on a fresh
// context so a caller deadline cannot interrupt a partially-completed rollback.
func (s *OrderService) rollbackStock(decremented []decrementedItem) {
	ctx := context.Background()
	for _, item := range decremented {
		if err := s.products.IncrementStock(ctx, item.productID, item.quantity); err != nil {
			s.logger.Error("failed to rollback stock",
				zap.String("product_id", item.productID),
				zap.Int("quantity", item.quantity),
				zap.Error(err))
			continue
		}
		s.logger.Info("rolled back stock",
			zap.String("product_id", item.productID),
			zap.Int("quantity", item.quantity))
	}
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, &OrderNotFoundError{OrderID: orderID}
	}
	return order, nil
}

// UpdateOrder fully replaces an order's mutable fields. Updates are refused
// once the order has shipped. The caller-supplied total is stored as-is and
// is not recomputed from the items.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID string, input UpdateOrderInput) (*domain.Order, error) {
	existing, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if existing == nil {
		return nil, &OrderNotFoundError{OrderID: orderID}
	}

	if existing.Status.IsTerminal() {
		return nil, ErrOrderShipped
	}

	status, err := domain.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, &InvalidStatusError{Status: input.Status}
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	existing.CustomerID = input.CustomerID
	existing.Items = items
	existing.Status = status
	existing.TotalAmount = input.TotalAmount

	updated, err := s.orders.UpdateOrder(ctx, orderID, existing)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("update order %s: no records modified", orderID)
	}

	s.logger.Info("order updated",
		zap.String("order_id", orderID),
		zap.String("status", string(status)))

	return updated, nil
}
