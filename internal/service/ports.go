package service

import (
	"context"
	"time"

	"commerce-service/internal/models"

	"github.com/google/uuid"
)

// Lookups return (nil, nil) when the entity does not exist or is soft-deleted.

// UserStore reads users
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ProductStore persists products
type ProductStore interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListProducts(ctx context.Context, page models.Page) ([]*models.Product, int, error)
	ListLowStockProducts(ctx context.Context) ([]*models.Product, error)
	SaveProduct(ctx context.Context, p *models.Product) error
}

// OrderStore persists orders together with their items
type OrderStore interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListOrders(ctx context.Context, page models.Page) ([]*models.Order, int, error)
	SaveOrder(ctx context.Context, o *models.Order) error
}

// StockLedger applies every item of a stock event in one transaction, at most
// once per event id. It returns the products it changed and whether the
// event was applied (false for a replay).
type StockLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	ApplyStockEvent(ctx context.Context, event models.BaseEvent, items []models.StockItem, mutate func(p *models.Product, quantity int) error) ([]*models.Product, bool, error)
}

// EventPublisher emits domain events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishStockReservation(ctx context.Context, event *models.StockReservationEvent) error
	PublishStockRelease(ctx context.Context, event *models.StockReleaseEvent) error
	PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error
}

// Cache is a JSON key/value cache
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// IdempotencyStore remembers the outcome of requests by client supplied key
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Locker provides a lock shared by all replicas
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}
