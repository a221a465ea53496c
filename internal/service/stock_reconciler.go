package service

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockReconciler applies stock events produced by order status changes to
// the product stock. Every event is applied at most once.
type StockReconciler struct {
	ledger StockLedger
	cache  *ProductCache
	events EventPublisher
	logger *zap.Logger
}

// NewStockReconciler creates a new stock reconciler
func NewStockReconciler(ledger StockLedger, cache *ProductCache, events EventPublisher) *StockReconciler {
	return &StockReconciler{
		ledger: ledger,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// HandleStockReservation deducts the stock of a paid order
func (r *StockReconciler) HandleStockReservation(ctx context.Context, event *models.StockReservationEvent) error {
	ctx, span := util.StartSpan(ctx, "StockReconciler.HandleStockReservation")
	defer span.End()

	return r.apply(ctx, event.BaseEvent, event.OrderID, event.Items, func(p *models.Product, quantity int) error {
		return p.ReduceStock(quantity, "stock-reconciler")
	})
}

// HandleStockRelease restores the stock of a cancelled order
func (r *StockReconciler) HandleStockRelease(ctx context.Context, event *models.StockReleaseEvent) error {
	ctx, span := util.StartSpan(ctx, "StockReconciler.HandleStockRelease")
	defer span.End()

	return r.apply(ctx, event.BaseEvent, event.OrderID, event.Items, func(p *models.Product, quantity int) error {
		return p.AddStock(quantity, "stock-reconciler")
	})
}

// apply returns an error whenever the event should be delivered again
func (r *StockReconciler) apply(ctx context.Context, base models.BaseEvent, orderID uuid.UUID, items []models.StockItem, mutate func(*models.Product, int) error) error {
	if base.EventID == "" {
		util.StockEventsProcessedTotal.WithLabelValues(base.EventType, "invalid").Inc()
		return models.Validation("Event id is required")
	}

	// replays usually stop here without taking row locks; ApplyStockEvent
	// still has the final say
	processed, err := r.ledger.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		r.logger.Warn("Failed to check processed events", zap.String("event_id", base.EventID), zap.Error(err))
	}
	if processed {
		util.StockEventsProcessedTotal.WithLabelValues(base.EventType, "duplicate").Inc()
		r.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	start := time.Now()
	changed, applied, err := r.ledger.ApplyStockEvent(ctx, base, items, mutate)
	util.StockEventLatency.WithLabelValues(base.EventType).Observe(time.Since(start).Seconds())
	if err != nil {
		util.StockEventsProcessedTotal.WithLabelValues(base.EventType, "error").Inc()
		r.logger.Error("Failed to apply stock event",
			zap.String("event_id", base.EventID),
			zap.String("event_type", base.EventType),
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to apply %s for order %s: %w", base.EventType, orderID, err)
	}

	if !applied {
		util.StockEventsProcessedTotal.WithLabelValues(base.EventType, "duplicate").Inc()
		r.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}
	util.StockEventsProcessedTotal.WithLabelValues(base.EventType, "applied").Inc()

	ids := make([]uuid.UUID, 0, len(changed))
	for _, p := range changed {
		ids = append(ids, p.ID())
	}
	r.cache.Invalidate(ctx, ids...)

	for _, p := range changed {
		if err := r.events.PublishProductUpdated(ctx, models.NewProductUpdatedEvent(p)); err != nil {
			r.logger.Error("Failed to publish ProductUpdated event",
				zap.String("product_id", p.ID().String()),
				zap.Error(err))
		}
		if p.IsLowStock() {
			r.logger.Warn("Product stock is low",
				zap.String("product_id", p.ID().String()),
				zap.String("sku", p.SKU()),
				zap.Int("stock_quantity", p.StockQuantity()),
				zap.Int("min_stock_level", p.MinStockLevel()))
		}
	}

	r.logger.Info("Stock event applied",
		zap.String("event_id", base.EventID),
		zap.String("event_type", base.EventType),
		zap.String("order_id", orderID.String()),
		zap.Int("products", len(changed)))
	return nil
}
