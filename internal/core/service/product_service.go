package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/commerce-hub/internal/core/domain"
	"github.com/rl1809/commerce-hub/internal/port"
)

type ProductService struct {
	products port.ProductRepository
	logger   *zap.Logger
}

func NewProductService(products port.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{products: products, logger: logger}
}

// AdjustStock applies a signed delta to a product's stock. The product is
// looked up first so a missing product reports NotFound without spending a
// guarded write, and so a rejected negative delta can report the stock level
// that caused the rejection.
func (s *ProductService) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("look up product %s: %w", productID, err)
	}
	if product == nil {
		return nil, &ProductNotFoundError{ProductID: productID}
	}

	updated, err := s.products.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust stock for product %s: %w", productID, err)
	}
	if updated == nil {
		s.logger.Warn("stock adjustment rejected",
			zap.String("product_id", productID),
			zap.Int("adjustment", delta),
			zap.Int("current_stock", product.Stock))
		return nil, &NegativeStockError{
			ProductID:  productID,
			Stock:      product.Stock,
			Adjustment: delta,
		}
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", productID),
		zap.Int("adjustment", delta),
		zap.Int("new_stock", updated.Stock))

	return updated, nil
}
