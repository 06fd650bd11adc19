// Oversell probe: fires concurrent checkouts for a single product against a
// live MySQL instance and verifies the guarded decrement never lets stock go
// negative or oversells.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/rl1809/commerce-hub/internal/adapter/storage"
	"github.com/rl1809/commerce-hub/internal/config"
	"github.com/rl1809/commerce-hub/internal/core/service"
)

const (
	productID     = "stress-test-product"
	initialStock  = 20
	totalRequests = 50
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, eventName string, payload any) error { return nil }

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	// Clear previous test data and seed the product
	db.ExecContext(ctx, `DELETE FROM order_items WHERE product_id = ?`, productID)
	db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID)
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, stock, price, updated_at)
		VALUES (?, 'Stress Test Product', 'STRESS-1', ?, 9.99, NOW())`,
		productID, initialStock,
	)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	orderService := service.NewOrderService(mysqlAdapter, mysqlAdapter, noopPublisher{}, zap.NewNop())

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			_, err := orderService.Checkout(ctx, service.CheckoutInput{
				CustomerID: fmt.Sprintf("user-%d", userID),
				Items:      []service.CheckoutItem{{ProductID: productID, Quantity: 1}},
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	product, err := mysqlAdapter.GetProduct(ctx, productID)
	if err != nil || product == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", product.Stock)

	if product.Stock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", product.Stock)
	}
}
