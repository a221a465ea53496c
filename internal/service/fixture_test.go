package service

import (
	"context"
	"testing"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/service/servicetest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *servicetest.Store
	events     *servicetest.Publisher
	keys       *servicetest.KeyStore
	cache      *servicetest.Cache
	orders     *OrderService
	products   *ProductService
	reconciler *StockReconciler
	user       models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  servicetest.NewStore(),
		events: &servicetest.Publisher{},
		keys:   servicetest.NewKeyStore(),
		cache:  servicetest.NewCache(),
		user:   models.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", IsActive: true},
	}
	f.store.AddUser(f.user)

	productCache := NewProductCache(f.cache, f.store, time.Minute)
	f.orders = NewOrderService(f.store, f.store, f.store, f.events, f.keys, time.Hour)
	f.products = NewProductService(f.store, productCache, f.events)
	f.reconciler = NewStockReconciler(f.store, productCache, f.events)
	return f
}

// addProduct seeds an Active product, or a Draft one when stock is zero
func (f *fixture) addProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := models.NewProduct(name, "", "SKU-"+uuid.NewString()[:8], decimal.RequireFromString(price), stock, 1, "seed")
	require.NoError(t, err)
	if stock > 0 {
		require.NoError(t, p.Activate("seed"))
	}
	f.store.AddProduct(p)
	return p
}

func (f *fixture) createOrder(t *testing.T, items ...OrderItemRequest) *models.OrderSnapshot {
	t.Helper()
	res := f.orders.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          f.user.ID,
		ShippingAddress: "1 Main St",
		Items:           items,
	}, "ada")
	require.True(t, res.Success, res.Message)
	return res.Data
}

func (f *fixture) moveOrder(t *testing.T, orderID uuid.UUID, statuses ...string) {
	t.Helper()
	for _, status := range statuses {
		res := f.orders.UpdateOrderStatus(context.Background(), orderID, status, "admin", "")
		require.True(t, res.Success, res.Message)
	}
}

func (f *fixture) stockOf(productID uuid.UUID) int {
	return f.store.Product(productID).StockQuantity()
}
