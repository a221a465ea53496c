package service

import (
	"context"
	"testing"

	"commerce-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &CreateProductRequest{
		Name:          "Desk",
		SKU:           "desk-01",
		Price:         decimal.NewFromInt(150),
		StockQuantity: 4,
		MinStockLevel: 1,
	}

	res := f.products.CreateProduct(ctx, req, "admin")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "DESK-01", res.Data.SKU)
	assert.Equal(t, models.ProductStatusDraft, res.Data.Status)
	assert.Len(t, f.events.ProductUpdated, 1)

	dup := f.products.CreateProduct(ctx, req, "admin")
	assert.False(t, dup.Success)
	assert.Equal(t, models.KindBusinessRule, dup.Kind)
	assert.Equal(t, "Product with SKU 'DESK-01' already exists", dup.Message)

	invalid := f.products.CreateProduct(ctx, &CreateProductRequest{SKU: "x", Price: decimal.NewFromInt(1), StockQuantity: -1}, "admin")
	assert.Equal(t, models.KindValidation, invalid.Kind)
	assert.Len(t, invalid.Errors, 2)
}

func TestSetDiscountAboveRegularPrice(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Monitor", "100", 3)

	res := f.products.SetDiscount(context.Background(), p.ID(), decimal.NewFromInt(120), "admin")
	assert.False(t, res.Success)
	assert.Equal(t, models.KindBusinessRule, res.Kind)
	assert.Equal(t, "Discount price must be less than regular price", res.Message)

	res = f.products.SetDiscount(context.Background(), p.ID(), decimal.NewFromInt(80), "admin")
	require.True(t, res.Success)
	assert.True(t, res.Data.EffectivePrice.Equal(decimal.NewFromInt(80)))

	res = f.products.RemoveDiscount(context.Background(), p.ID(), "admin")
	require.True(t, res.Success)
	assert.True(t, res.Data.EffectivePrice.Equal(decimal.NewFromInt(100)))
}

func TestProductStockOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Mug", "7", 5)

	res := f.products.ReduceStock(ctx, p.ID(), 6, "admin")
	assert.Equal(t, "Insufficient stock", res.Message)
	assert.Equal(t, 5, f.stockOf(p.ID()))

	res = f.products.ReduceStock(ctx, p.ID(), 5, "admin")
	require.True(t, res.Success)
	assert.Equal(t, models.ProductStatusOutOfStock, res.Data.Status)

	res = f.products.AddStock(ctx, p.ID(), 2, "admin")
	require.True(t, res.Success)
	assert.Equal(t, models.ProductStatusActive, res.Data.Status)

	res = f.products.UpdateStock(ctx, p.ID(), -1, "admin")
	assert.Equal(t, models.KindBusinessRule, res.Kind)

	res = f.products.UpdateStock(ctx, p.ID(), 9, "admin")
	require.True(t, res.Success)
	assert.Equal(t, 9, res.Data.StockQuantity)

	assert.Equal(t, models.KindNotFound, f.products.AddStock(ctx, uuid.New(), 1, "admin").Kind)
}

func TestProductLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	empty := f.addProduct(t, "Vase", "30", 0)

	res := f.products.ActivateProduct(ctx, empty.ID(), "admin")
	assert.Equal(t, "Cannot activate product without stock", res.Message)

	require.True(t, f.products.AddStock(ctx, empty.ID(), 1, "admin").Success)
	require.True(t, f.products.ActivateProduct(ctx, empty.ID(), "admin").Success)

	res = f.products.DeactivateProduct(ctx, empty.ID(), "admin")
	require.True(t, res.Success)
	assert.Equal(t, models.ProductStatusInactive, res.Data.Status)

	res = f.products.UpdateProduct(ctx, empty.ID(), &UpdateProductRequest{Name: "Tall Vase", Price: decimal.NewFromInt(35), MinStockLevel: 2}, "admin")
	require.True(t, res.Success)
	assert.Equal(t, "Tall Vase", res.Data.Name)

	deleted := f.products.DeleteProduct(ctx, empty.ID(), "admin")
	require.True(t, deleted.Success)
	assert.True(t, deleted.Data)
	assert.Equal(t, models.KindNotFound, f.products.GetProduct(ctx, empty.ID()).Kind)
}

func TestGetProductIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Pen", "2", 50)

	require.True(t, f.products.GetProduct(ctx, p.ID()).Success)
	assert.True(t, f.cache.Has(productCacheKey(p.ID())))

	require.True(t, f.products.AddStock(ctx, p.ID(), 5, "admin").Success)
	assert.False(t, f.cache.Has(productCacheKey(p.ID())), "mutations drop the cached entry")

	res := f.products.GetProduct(ctx, p.ID())
	require.True(t, res.Success)
	assert.Equal(t, 55, res.Data.StockQuantity)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "B", "1", 10)
	f.addProduct(t, "A", "1", 1)

	page := f.products.ListProducts(context.Background(), models.NewPage(1, 10))
	require.True(t, page.Success)
	require.Len(t, page.Data.Items, 2)
	assert.Equal(t, "A", page.Data.Items[0].Name)

	low := f.products.GetLowStockProducts(context.Background())
	require.True(t, low.Success)
	require.Len(t, low.Data, 1)
	assert.Equal(t, "A", low.Data[0].Name)
}
