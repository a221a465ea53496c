package servicetest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"commerce-service/internal/models"

	"github.com/google/uuid"
)

// Publisher records published events
type Publisher struct {
	mu               sync.Mutex
	OrderCreated     []*models.OrderCreatedEvent
	StockReservation []*models.StockReservationEvent
	StockRelease     []*models.StockReleaseEvent
	ProductUpdated   []*models.ProductUpdatedEvent

	// Err, when set, fails every publish after recording the event
	Err error
}

func (p *Publisher) PublishOrderCreated(_ context.Context, event *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OrderCreated = append(p.OrderCreated, event)
	return p.Err
}

func (p *Publisher) PublishStockReservation(_ context.Context, event *models.StockReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StockReservation = append(p.StockReservation, event)
	return p.Err
}

func (p *Publisher) PublishStockRelease(_ context.Context, event *models.StockReleaseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StockRelease = append(p.StockRelease, event)
	return p.Err
}

func (p *Publisher) PublishProductUpdated(_ context.Context, event *models.ProductUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProductUpdated = append(p.ProductUpdated, event)
	return p.Err
}

// Cache is a JSON cache without expiry
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

func (c *Cache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, found := c.entries[key]
	if !found {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *Cache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

// Has reports whether key is cached
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, found := c.entries[key]
	return found
}

// KeyStore implements idempotency keys and locks in memory
type KeyStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewKeyStore creates an empty key store
func NewKeyStore() *KeyStore {
	return &KeyStore{values: make(map[string]string)}
}

func (k *KeyStore) GetIdempotencyKey(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	value, found := k.values["idempotency:"+key]
	return value, found, nil
}

func (k *KeyStore) SetIdempotencyKey(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	return k.setNX("idempotency:"+key, value), nil
}

func (k *KeyStore) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if !k.setNX("lock:"+key, token) {
		return "", false, nil
	}
	return token, true, nil
}

func (k *KeyStore) ReleaseLock(_ context.Context, key, token string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.values["lock:"+key] == token {
		delete(k.values, "lock:"+key)
	}
	return nil
}

func (k *KeyStore) setNX(key, value string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, taken := k.values[key]; taken {
		return false
	}
	k.values[key] = value
	return true
}
