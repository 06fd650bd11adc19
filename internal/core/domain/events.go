package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderCreated = "order.created"

// OrderCreatedEvent is published after an order has been durably persisted.
type OrderCreatedEvent struct {
	OrderID     string          `json:"orderId"`
	CustomerID  string          `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}
