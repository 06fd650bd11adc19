package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ParseOrderStatus matches a status string case-insensitively against the
// known statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled} {
		if strings.EqualFold(s, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsTerminal reports whether the status forbids further mutation.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusShipped
}

type OrderItem struct {
	ProductID string
	Quantity  int
	// UnitPrice is the catalog price captured when the item was reserved,
	// not a live reference to the product price.
	UnitPrice decimal.Decimal
}

type Order struct {
	ID          string
	CustomerID  string
	Items       []OrderItem
	Status      OrderStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder builds a Pending order with the total computed from its items.
func NewOrder(id, customerID string, items []OrderItem) *Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	now := time.Now().UTC()
	return &Order{
		ID:          id,
		CustomerID:  customerID,
		Items:       items,
		Status:      OrderStatusPending,
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
