package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/commerce-hub/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, sku, stock, price, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.Stock, &p.Price, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}

// DecrementStock applies the guarded decrement as a single conditional UPDATE.
// The WHERE clause carries the stock >= quantity guard, so concurrent
// checkouts race only inside the database's row update.
func (m *MySQLAdapter) DecrementStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	return m.guardedUpdate(ctx, productID, `
		UPDATE products
		SET stock = stock - ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, productID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = NOW()
		WHERE id = ?`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	if delta < 0 {
		return m.guardedUpdate(ctx, productID, `
			UPDATE products
			SET stock = stock + ?, updated_at = NOW()
			WHERE id = ? AND stock >= ?`,
			delta, productID, -delta,
		)
	}
	return m.guardedUpdate(ctx, productID, `
		UPDATE products
		SET stock = stock + ?, updated_at = NOW()
		WHERE id = ?`,
		delta, productID,
	)
}

// guardedUpdate runs a conditional stock update and returns the post-update
// record, or (nil, nil) when the update matched no row. The read happens in
// the same transaction so the returned record is the update's post-image.
func (m *MySQLAdapter) guardedUpdate(ctx context.Context, productID, query string, args ...any) (*domain.Product, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, nil
	}

	var p domain.Product
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, sku, stock, price, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.Stock, &p.Price, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("read updated product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, status, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.CustomerID, order.Status, order.TotalAmount,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			order.ID, item.ProductID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &o, nil
}

// UpdateOrder fully replaces the order row and its items. Items are deleted
// and reinserted inside the same transaction.
func (m *MySQLAdapter) UpdateOrder(ctx context.Context, orderID string, order *domain.Order) (*domain.Order, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_id = ?, status = ?, total_amount = ?, updated_at = NOW()
		WHERE id = ?`,
		order.CustomerID, order.Status, order.TotalAmount, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	var stored domain.Order
	err = tx.QueryRowContext(ctx, `
		SELECT id, customer_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&stored.ID, &stored.CustomerID, &stored.Status, &stored.TotalAmount, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("read updated order: %w", err)
	}
	stored.Items = order.Items

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &stored, nil
}
