package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/service"
	"commerce-service/internal/service/servicetest"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueReader serves queued messages and then blocks until ctx is done
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed int
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += len(msgs)
	return nil
}

func (r *queueReader) Close() error { return nil }

func (r *queueReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed
}

func message(t *testing.T, topic string, event interface{}) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Value: data}
}

func TestStockWorkerAppliesBothTopics(t *testing.T) {
	store := servicetest.NewStore()
	product, err := models.NewProduct("Widget", "", "W-1", decimal.NewFromInt(10), 10, 0, "seed")
	require.NoError(t, err)
	require.NoError(t, product.Activate("seed"))
	store.AddProduct(product)

	items := []models.StockItem{{ProductID: product.ID(), Quantity: 4}}
	reservation := &models.StockReservationEvent{BaseEvent: models.NewBaseEvent(models.EventTypeStockReservation), Items: items}
	release := &models.StockReleaseEvent{BaseEvent: models.NewBaseEvent(models.EventTypeStockRelease), Items: []models.StockItem{{ProductID: product.ID(), Quantity: 1}}}

	reservations := &queueReader{queue: []kafka.Message{
		message(t, "stock.reservation", reservation),
		message(t, "stock.reservation", reservation),
	}}
	releases := &queueReader{queue: []kafka.Message{message(t, "stock.release", release)}}

	fast := broker.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) })
	reconciler := service.NewStockReconciler(store, service.NewProductCache(nil, store, time.Minute), &servicetest.Publisher{})
	w := NewStockWorker(
		broker.NewConsumerWithReader(reservations, "stock.reservation", fast),
		broker.NewConsumerWithReader(releases, "stock.release", fast),
		reconciler,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	assert.Eventually(t, func() bool {
		return reservations.commits() == 2 && releases.commits() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, 7, store.Product(product.ID()).StockQuantity(), "duplicate reservation is applied once")
	assert.NoError(t, w.Stop())
}

func TestLowStockWorkerStopsOnCancel(t *testing.T) {
	store := servicetest.NewStore()
	product, err := models.NewProduct("Widget", "", "W-1", decimal.NewFromInt(10), 1, 5, "seed")
	require.NoError(t, err)
	store.AddProduct(product)

	w := NewLowStockWorker(service.NewLowStockMonitor(store, servicetest.NewKeyStore(), time.Minute), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Start(ctx))
}
