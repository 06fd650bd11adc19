package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/commerce-hub/internal/core/domain"
)

// Mock ProductRepository
type mockProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product

	decrementErr error
	getErr       error
	incrementErr map[string]error

	increments []string // product IDs, in call order
}

func newMockProductRepo(products ...*domain.Product) *mockProductRepo {
	m := &mockProductRepo{
		products:     make(map[string]*domain.Product),
		incrementErr: make(map[string]error),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (m *mockProductRepo) DecrementStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decrementErr != nil {
		return nil, m.decrementErr
	}
	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return nil, nil
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now().UTC()
	clone := *p
	return &clone, nil
}

func (m *mockProductRepo) IncrementStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments = append(m.increments, productID)
	if err := m.incrementErr[productID]; err != nil {
		return err
	}
	if p, ok := m.products[productID]; ok {
		p.Stock += quantity
	}
	return nil
}

func (m *mockProductRepo) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	if delta < 0 && p.Stock < -delta {
		return nil, nil
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	clone := *p
	return &clone, nil
}

func (m *mockProductRepo) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	createErr error
	updateErr error
	noMatch   bool
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *mockOrderRepo) UpdateOrder(ctx context.Context, orderID string, order *domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.noMatch {
		return nil, nil
	}
	if _, ok := m.orders[orderID]; !ok {
		return nil, nil
	}
	clone := *order
	clone.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = &clone
	return &clone, nil
}

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock EventPublisher
type mockPublisher struct {
	mu         sync.Mutex
	events     []domain.OrderCreatedEvent
	publishErr error
}

func (m *mockPublisher) Publish(ctx context.Context, eventName string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	if ev, ok := payload.(domain.OrderCreatedEvent); ok {
		m.events = append(m.events, ev)
	}
	return nil
}

func (m *mockPublisher) published() []domain.OrderCreatedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderCreatedEvent(nil), m.events...)
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testProduct(id, name, sku string, stock int, unitPrice string) *domain.Product {
	return &domain.Product{
		ID:        id,
		Name:      name,
		SKU:       sku,
		Stock:     stock,
		Price:     price(unitPrice),
		UpdatedAt: time.Now().UTC(),
	}
}

func newTestOrderService(products *mockProductRepo, orders *mockOrderRepo, pub *mockPublisher) *OrderService {
	return NewOrderService(orders, products, pub, zap.NewNop())
}

func TestCheckout_Success(t *testing.T) {
	products := newMockProductRepo(
		testProduct("prod-1", "Widget", "WID-1", 10, "10.00"),
		testProduct("prod-2", "Gadget", "GAD-1", 5, "25.00"),
	)
	orders := newMockOrderRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(products, orders, pub)

	order, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items: []CheckoutItem{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if !order.TotalAmount.Equal(price("45.00")) {
		t.Errorf("expected total 45.00, got %s", order.TotalAmount)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected status Pending, got %s", order.Status)
	}
	if got := products.stock("prod-1"); got != 8 {
		t.Errorf("expected prod-1 stock 8, got %d", got)
	}
	if got := products.stock("prod-2"); got != 4 {
		t.Errorf("expected prod-2 stock 4, got %d", got)
	}
	if orders.count() != 1 {
		t.Errorf("expected 1 persisted order, got %d", orders.count())
	}

	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].OrderID != order.ID || events[0].ItemCount != 2 {
		t.Errorf("unexpected event: %+v", events[0])
	}
	if !events[0].TotalAmount.Equal(price("45.00")) {
		t.Errorf("expected event total 45.00, got %s", events[0].TotalAmount)
	}
}

func TestCheckout_UsesCatalogPrice(t *testing.T) {
	products := newMockProductRepo(testProduct("prod-1", "Widget", "WID-1", 10, "12.50"))
	orders := newMockOrderRepo()
	svc := newTestOrderService(products, orders, &mockPublisher{})

	order, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items:      []CheckoutItem{{ProductID: "prod-1", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if !order.Items[0].UnitPrice.Equal(price("12.50")) {
		t.Errorf("expected captured unit price 12.50, got %s", order.Items[0].UnitPrice)
	}
	if !order.TotalAmount.Equal(price("37.50")) {
		t.Errorf("expected total 37.50, got %s", order.TotalAmount)
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	products := newMockProductRepo(
		testProduct("prod-1", "Widget", "WID-1", 10, "10.00"),
		testProduct("prod-2", "Gadget", "GAD-1", 15, "25.00"),
	)
	orders := newMockOrderRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(products, orders, pub)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items: []CheckoutItem{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 100},
		},
	})

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if insufficient.Name != "Gadget" || insufficient.SKU != "GAD-1" {
		t.Errorf("unexpected product details: %+v", insufficient)
	}
	if insufficient.Requested != 100 || insufficient.Available != 15 {
		t.Errorf("expected requested 100 / available 15, got %d/%d", insufficient.Requested, insufficient.Available)
	}

	// prod-1's decrement must be rolled back
	if got := products.stock("prod-1"); got != 10 {
		t.Errorf("expected prod-1 stock restored to 10, got %d", got)
	}
	if got := products.stock("prod-2"); got != 15 {
		t.Errorf("expected prod-2 stock untouched at 15, got %d", got)
	}
	if orders.count() != 0 {
		t.Errorf("expected no persisted orders, got %d", orders.count())
	}
	if len(pub.published()) != 0 {
		t.Error("expected no events published")
	}
}

func TestCheckout_ProductNotFound(t *testing.T) {
	products := newMockProductRepo(testProduct("prod-1", "Widget", "WID-1", 10, "10.00"))
	orders := newMockOrderRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(products, orders, pub)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items: []CheckoutItem{
			{ProductID: "prod-1", Quantity: 1},
			{ProductID: "prod-missing", Quantity: 1},
		},
	})

	var notFound *ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError, got: %v", err)
	}
	if notFound.ProductID != "prod-missing" {
		t.Errorf("expected offending product prod-missing, got %s", notFound.ProductID)
	}
	if got := products.stock("prod-1"); got != 10 {
		t.Errorf("expected prod-1 stock restored to 10, got %d", got)
	}
	if orders.count() != 0 || len(pub.published()) != 0 {
		t.Error("expected no order and no event")
	}
}

func TestCheckout_RollbackOrderIsDeterministic(t *testing.T) {
	products := newMockProductRepo(
		testProduct("prod-1", "A", "A-1", 10, "1.00"),
		testProduct("prod-2", "B", "B-1", 10, "1.00"),
		testProduct("prod-3", "C", "C-1", 0, "1.00"),
	)
	svc := newTestOrderService(products, newMockOrderRepo(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items: []CheckoutItem{
			{ProductID: "prod-1", Quantity: 1},
			{ProductID: "prod-2", Quantity: 1},
			{ProductID: "prod-3", Quantity: 1},
		},
	})
	if err == nil {
		t.Fatal("expected failure")
	}

	if len(products.increments) != 2 || products.increments[0] != "prod-1" || products.increments[1] != "prod-2" {
		t.Errorf("expected compensation in decrement order [prod-1 prod-2], got %v", products.increments)
	}
}

func TestCheckout_CompensationFailureDoesNotBlockRemaining(t *testing.T) {
	products := newMockProductRepo(
		testProduct("prod-1", "A", "A-1", 10, "1.00"),
		testProduct("prod-2", "B", "B-1", 10, "1.00"),
	)
	products.incrementErr["prod-1"] = errors.New("transport fault")
	svc := newTestOrderService(products, newMockOrderRepo(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items: []CheckoutItem{
			{ProductID: "prod-1", Quantity: 1},
			{ProductID: "prod-2", Quantity: 1},
			{ProductID: "prod-missing", Quantity: 1},
		},
	})

	var notFound *ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError, got: %v", err)
	}

	// Both compensations attempted despite the first one failing.
	if len(products.increments) != 2 {
		t.Fatalf("expected 2 compensation attempts, got %d", len(products.increments))
	}
	if got := products.stock("prod-2"); got != 10 {
		t.Errorf("expected prod-2 stock restored to 10, got %d", got)
	}
}

func TestCheckout_CreateOrderFailureRollsBack(t *testing.T) {
	products := newMockProductRepo(testProduct("prod-1", "Widget", "WID-1", 10, "10.00"))
	orders := newMockOrderRepo()
	orders.createErr = errors.New("store unreachable")
	pub := &mockPublisher{}
	svc := newTestOrderService(products, orders, pub)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items:      []CheckoutItem{{ProductID: "prod-1", Quantity: 4}},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if got := products.stock("prod-1"); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}
	if len(pub.published()) != 0 {
		t.Error("expected no events published")
	}
}

func TestCheckout_PublishFailureKeepsOrder(t *testing.T) {
	products := newMockProductRepo(testProduct("prod-1", "Widget", "WID-1", 10, "10.00"))
	orders := newMockOrderRepo()
	pub := &mockPublisher{publishErr: errors.New("broker unreachable")}
	svc := newTestOrderService(products, orders, pub)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerID: "cust-1",
		Items:      []CheckoutItem{{ProductID: "prod-1", Quantity: 2}},
	})
	if err == nil {
		t.Fatal("expected error from publish failure")
	}

	// The order is committed; no compensation runs after persistence.
	if orders.count() != 1 {
		t.Errorf("expected the order to stand, got %d orders", orders.count())
	}
	if got := products.stock("prod-1"); got != 8 {
		t.Errorf("expected stock to stay decremented at 8, got %d", got)
	}
	if len(products.increments) != 0 {
		t.Errorf("expected no compensation, got %v", products.increments)
	}
}

func TestCheckout_EmptyItems(t *testing.T) {
	orders := newMockOrderRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(newMockProductRepo(), orders, pub)

	order, err := svc.Checkout(context.Background(), CheckoutInput{CustomerID: "cust-1"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if len(order.Items) != 0 {
		t.Errorf("expected zero items, got %d", len(order.Items))
	}
	if !order.TotalAmount.IsZero() {
		t.Errorf("expected zero total, got %s", order.TotalAmount)
	}
	events := pub.published()
	if len(events) != 1 || events[0].ItemCount != 0 {
		t.Errorf("expected one event with itemCount 0, got %+v", events)
	}
}

func TestCheckout_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	products := newMockProductRepo(testProduct("prod-1", "Widget", "WID-1", initialStock, "10.00"))
	svc := newTestOrderService(products, newMockOrderRepo(), &mockPublisher{})

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), CheckoutInput{
				CustomerID: "cust",
				Items:      []CheckoutItem{{ProductID: "prod-1", Quantity: 1}},
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := successCount.Load(); got != int32(initialStock) {
		t.Errorf("expected exactly %d successful checkouts, got %d", initialStock, got)
	}
	if got := products.stock("prod-1"); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := newTestOrderService(newMockProductRepo(), newMockOrderRepo(), &mockPublisher{})

	_, err := svc.GetOrder(context.Background(), "order-missing")

	var notFound *OrderNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected OrderNotFoundError, got: %v", err)
	}
}

func seedOrder(orders *mockOrderRepo, status domain.OrderStatus) *domain.Order {
	order := domain.NewOrder("order-1", "cust-1", []domain.OrderItem{
		{ProductID: "prod-1", Quantity: 2, UnitPrice: price("10.00")},
	})
	order.Status = status
	orders.orders[order.ID] = order
	return order
}

func TestUpdateOrder_Success(t *testing.T) {
	orders := newMockOrderRepo()
	seedOrder(orders, domain.OrderStatusPending)
	svc := newTestOrderService(newMockProductRepo(), orders, &mockPublisher{})

	updated, err := svc.UpdateOrder(context.Background(), "order-1", UpdateOrderInput{
		CustomerID: "cust-2",
		Items: []UpdateOrderItem{
			{ProductID: "prod-1", Quantity: 1, UnitPrice: price("10.00")},
		},
		Status:      "paid", // case-insensitive
		TotalAmount: price("99.00"),
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if updated.Status != domain.OrderStatusPaid {
		t.Errorf("expected status Paid, got %s", updated.Status)
	}
	if updated.CustomerID != "cust-2" {
		t.Errorf("expected customer cust-2, got %s", updated.CustomerID)
	}
	// The caller-supplied total is stored as-is, not recomputed from items.
	if !updated.TotalAmount.Equal(price("99.00")) {
		t.Errorf("expected total 99.00, got %s", updated.TotalAmount)
	}
}

func TestUpdateOrder_ShippedIsTerminal(t *testing.T) {
	orders := newMockOrderRepo()
	seedOrder(orders, domain.OrderStatusShipped)
	svc := newTestOrderService(newMockProductRepo(), orders, &mockPublisher{})

	_, err := svc.UpdateOrder(context.Background(), "order-1", UpdateOrderInput{
		CustomerID:  "cust-1",
		Items:       []UpdateOrderItem{{ProductID: "prod-1", Quantity: 1, UnitPrice: price("10.00")}},
		Status:      "Pending",
		TotalAmount: price("10.00"),
	})
	if !errors.Is(err, ErrOrderShipped) {
		t.Fatalf("expected ErrOrderShipped, got: %v", err)
	}
}

func TestUpdateOrder_InvalidStatus(t *testing.T) {
	orders := newMockOrderRepo()
	seedOrder(orders, domain.OrderStatusPending)
	svc := newTestOrderService(newMockProductRepo(), orders, &mockPublisher{})

	_, err := svc.UpdateOrder(context.Background(), "order-1", UpdateOrderInput{
		CustomerID:  "cust-1",
		Items:       []UpdateOrderItem{{ProductID: "prod-1", Quantity: 1, UnitPrice: price("10.00")}},
		Status:      "Teleported",
		TotalAmount: price("10.00"),
	})

	var invalid *InvalidStatusError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStatusError, got: %v", err)
	}
	if invalid.Status != "Teleported" {
		t.Errorf("unexpected status in error: %s", invalid.Status)
	}
}

func TestUpdateOrder_NotFound(t *testing.T) {
	svc := newTestOrderService(newMockProductRepo(), newMockOrderRepo(), &mockPublisher{})

	_, err := svc.UpdateOrder(context.Background(), "order-missing", UpdateOrderInput{
		CustomerID:  "cust-1",
		Items:       []UpdateOrderItem{{ProductID: "prod-1", Quantity: 1, UnitPrice: price("10.00")}},
		Status:      "Pending",
		TotalAmount: price("10.00"),
	})

	var notFound *OrderNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected OrderNotFoundError, got: %v", err)
	}
}

func TestUpdateOrder_NoRowsModified(t *testing.T) {
	orders := newMockOrderRepo()
	seedOrder(orders, domain.OrderStatusPending)
	orders.noMatch = true
	svc := newTestOrderService(newMockProductRepo(), orders, &mockPublisher{})

	_, err := svc.UpdateOrder(context.Background(), "order-1", UpdateOrderInput{
		CustomerID:  "cust-1",
		Items:       []UpdateOrderItem{{ProductID: "prod-1", Quantity: 1, UnitPrice: price("10.00")}},
		Status:      "Pending",
		TotalAmount: price("10.00"),
	})
	if err == nil {
		t.Fatal("expected error when zero records were modified")
	}
	var notFound *OrderNotFoundError
	if errors.As(err, &notFound) {
		t.Fatal("expected an unexpected-class error, not NotFound")
	}
}
