package worker

import (
	"context"
	"errors"
	"time"

	"commerce-service/internal/broker"
	"commerce-service/internal/service"
	"commerce-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StockWorker applies stock reservation and release events. Each topic has
// its own consumer and both run concurrently.
type StockWorker struct {
	reservations *broker.Consumer
	releases     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker(
	reservations *broker.Consumer,
	releases *broker.Consumer,
	reconciler *service.StockReconciler,
) *StockWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnStockReservation(reconciler.HandleStockReservation)
	eventHandler.OnStockRelease(reconciler.HandleStockRelease)

	return &StockWorker{
		reservations: reservations,
		releases:     releases,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes both topics until ctx is cancelled or one consumer fails
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker",
		zap.String("reservation_topic", w.reservations.Topic()),
		zap.String("release_topic", w.releases.Topic()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.reservations.StartConsuming(gctx, w.eventHandler.HandleMessage)
	})
	g.Go(func() error {
		return w.releases.StartConsuming(gctx, w.eventHandler.HandleMessage)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return errors.Join(w.reservations.Close(), w.releases.Close())
}

// LowStockWorker runs the low stock scan on a fixed interval
type LowStockWorker struct {
	monitor  *service.LowStockMonitor
	interval time.Duration
	logger   *zap.Logger
}

// NewLowStockWorker creates a new low stock worker
func NewLowStockWorker(monitor *service.LowStockMonitor, interval time.Duration) *LowStockWorker {
	return &LowStockWorker{
		monitor:  monitor,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start scans once immediately and then on every tick until ctx is cancelled
func (w *LowStockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting low stock worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.scan(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("Stopping low stock worker")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *LowStockWorker) scan(ctx context.Context) {
	products, err := w.monitor.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Low stock scan failed", zap.Error(err))
		}
		return
	}
	if len(products) > 0 {
		w.logger.Info("Low stock scan finished", zap.Int("low_stock_products", len(products)))
	}
}
