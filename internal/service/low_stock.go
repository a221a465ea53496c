package service

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"go.uber.org/zap"
)

const lowStockLockKey = "low-stock-scan"

// LowStockMonitor reports products at or below their minimum stock level
type LowStockMonitor struct {
	products ProductStore
	locker   Locker
	lockTTL  time.Duration
	logger   *zap.Logger
}

// NewLowStockMonitor creates a monitor. locker may be nil when only one
// replica runs.
func NewLowStockMonitor(products ProductStore, locker Locker, lockTTL time.Duration) *LowStockMonitor {
	return &LowStockMonitor{
		products: products,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   util.GetLogger(),
	}
}

// Scan logs every low stock product and updates the gauge. It returns the
// products found, or nil without scanning when another replica holds the lock.
func (m *LowStockMonitor) Scan(ctx context.Context) ([]*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "LowStockMonitor.Scan")
	defer span.End()

	if m.locker != nil {
		token, acquired, err := m.locker.AcquireLock(ctx, lowStockLockKey, m.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire low stock lock: %w", err)
		}
		if !acquired {
			m.logger.Debug("Low stock scan running elsewhere, skipping")
			return nil, nil
		}
		defer func() {
			if err := m.locker.ReleaseLock(context.Background(), lowStockLockKey, token); err != nil {
				m.logger.Warn("Failed to release low stock lock", zap.Error(err))
			}
		}()
	}

	products, err := m.products.ListLowStockProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}

	util.LowStockProducts.Set(float64(len(products)))
	for _, p := range products {
		m.logger.Warn("Low stock",
			zap.String("product_id", p.ID().String()),
			zap.String("sku", p.SKU()),
			zap.String("name", p.Name()),
			zap.Int("stock_quantity", p.StockQuantity()),
			zap.Int("min_stock_level", p.MinStockLevel()))
	}
	return products, nil
}
