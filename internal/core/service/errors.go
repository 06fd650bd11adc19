package service

import (
	"errors"
	"fmt"
)

// ErrOrderShipped rejects mutation of an order in its terminal state.
var ErrOrderShipped = errors.New("cannot update an order that has already been shipped")

// ProductNotFoundError reports a checkout or adjustment referencing a product
// that does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %q not found", e.ProductID)
}

// InsufficientStockError reports a checkout item the inventory could not cover.
type InsufficientStockError struct {
	ProductID string
	Name      string
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (SKU: %s): requested %d, available %d",
		e.Name, e.SKU, e.Requested, e.Available)
}

// NegativeStockError reports a stock adjustment that would drive stock below zero.
type NegativeStockError struct {
	ProductID  string
	Stock      int
	Adjustment int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock adjustment would result in negative stock: current stock %d, requested adjustment %d",
		e.Stock, e.Adjustment)
}

// OrderNotFoundError reports an operation referencing a missing order.
type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order with ID %q not found", e.OrderID)
}

// InvalidStatusError reports an order status string that does not parse.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q: valid values are Pending, Paid, Shipped, Cancelled", e.Status)
}
