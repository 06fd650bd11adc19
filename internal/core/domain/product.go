package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Name      string
	SKU       string
	Stock     int
	Price     decimal.Decimal
	UpdatedAt time.Time
}
