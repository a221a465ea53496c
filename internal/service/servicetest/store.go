// Package servicetest provides in-memory implementations of the service ports.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"commerce-service/internal/models"

	"github.com/google/uuid"
)

// Store keeps users, products and orders in memory. Aggregates are stored as
// snapshots so callers never share state with the store.
type Store struct {
	mu        sync.Mutex
	users     map[uuid.UUID]models.User
	products  map[uuid.UUID]models.ProductSnapshot
	orders    map[uuid.UUID]models.OrderSnapshot
	processed map[string]bool

	// SaveErr, when set, fails every save
	SaveErr error
	// Saves counts successful order saves
	Saves int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]models.User),
		products:  make(map[uuid.UUID]models.ProductSnapshot),
		orders:    make(map[uuid.UUID]models.OrderSnapshot),
		processed: make(map[string]bool),
	}
}

// AddUser seeds a user
func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddProduct seeds a product
func (s *Store) AddProduct(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID()] = p.Snapshot()
}

// Product returns the stored state of a product, deleted or not
func (s *Store) Product(id uuid.UUID) *models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, found := s.products[id]
	if !found {
		return nil
	}
	return models.RestoreProduct(snap)
}

// Order returns the stored state of an order, deleted or not
func (s *Store) Order(id uuid.UUID) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, found := s.orders[id]
	if !found {
		return nil
	}
	return models.RestoreOrder(snap)
}

// OrderCount returns the number of stored orders
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found || u.DeletedAt != nil {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, found := s.products[id]
	if !found || snap.DeletedAt != nil {
		return nil, nil
	}
	return models.RestoreProduct(snap), nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku = strings.ToUpper(strings.TrimSpace(sku))
	for _, snap := range s.products {
		if snap.SKU == sku && snap.DeletedAt == nil {
			return models.RestoreProduct(snap), nil
		}
	}
	return nil, nil
}

func (s *Store) ListProducts(_ context.Context, page models.Page) ([]*models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.Product
	for _, snap := range s.products {
		if snap.DeletedAt == nil {
			all = append(all, models.RestoreProduct(snap))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return window(all, page), len(all), nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var low []*models.Product
	for _, snap := range s.products {
		p := models.RestoreProduct(snap)
		if !p.IsDeleted() && p.IsLowStock() {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].StockQuantity() < low[j].StockQuantity() })
	return low, nil
}

func (s *Store) SaveProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.products[p.ID()] = p.Snapshot()
	return nil
}

func (s *Store) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, found := s.orders[id]
	if !found || snap.DeletedAt != nil {
		return nil, nil
	}
	return models.RestoreOrder(snap), nil
}

func (s *Store) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.orders {
		if snap.OrderNumber == orderNumber && snap.DeletedAt == nil {
			return models.RestoreOrder(snap), nil
		}
	}
	return nil, nil
}

func (s *Store) GetOrdersByUserID(_ context.Context, userID uuid.UUID) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []*models.Order
	for _, snap := range s.orders {
		if snap.UserID == userID && snap.DeletedAt == nil {
			orders = append(orders, models.RestoreOrder(snap))
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *Store) ListOrders(_ context.Context, page models.Page) ([]*models.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.Order
	for _, snap := range s.orders {
		if snap.DeletedAt == nil {
			all = append(all, models.RestoreOrder(snap))
		}
	}
	sortNewestFirst(all)
	return window(all, page), len(all), nil
}

func (s *Store) SaveOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.orders[o.ID()] = o.Snapshot()
	s.Saves++
	return nil
}

func (s *Store) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

// ApplyStockEvent mutates copies of the products and only writes them back
// when every item succeeded
func (s *Store) ApplyStockEvent(_ context.Context, event models.BaseEvent, items []models.StockItem, mutate func(p *models.Product, quantity int) error) ([]*models.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return nil, false, s.SaveErr
	}
	if s.processed[event.EventID] {
		return nil, false, nil
	}

	working := make(map[uuid.UUID]*models.Product)
	var changed []*models.Product
	for _, item := range items {
		p, found := working[item.ProductID]
		if !found {
			snap, exists := s.products[item.ProductID]
			if !exists || snap.DeletedAt != nil {
				return nil, false, models.NotFound("Product not found: %s", item.ProductID)
			}
			p = models.RestoreProduct(snap)
			working[item.ProductID] = p
			changed = append(changed, p)
		}
		if err := mutate(p, item.Quantity); err != nil {
			return nil, false, err
		}
	}

	for _, p := range changed {
		s.products[p.ID()] = p.Snapshot()
	}
	s.processed[event.EventID] = true
	return changed, true, nil
}

func sortNewestFirst(orders []*models.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt().After(orders[j].CreatedAt()) })
}

func window[T any](items []T, page models.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
