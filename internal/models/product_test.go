package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, price string, stock int) *Product {
	t.Helper()
	p, err := NewProduct("Keyboard", "mechanical", "kb-001", decimal.RequireFromString(price), stock, 2, "admin")
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	p := newTestProduct(t, "100", 5)

	assert.Equal(t, ProductStatusDraft, p.Status())
	assert.Equal(t, "KB-001", p.SKU())
	assert.Equal(t, 5, p.StockQuantity())
	assert.False(t, p.IsInStock(), "draft products are not sellable")

	_, err := NewProduct("", "", "", decimal.NewFromInt(1), -1, 0, "admin")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Len(t, err.(*Error).Details, 3)

	_, err = NewProduct("Mouse", "", "m-1", decimal.Zero, 1, 0, "admin")
	assert.ErrorIs(t, err, ErrNonPositivePrice)
}

func TestEffectivePrice(t *testing.T) {
	p := newTestProduct(t, "100", 5)
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(100)))

	require.NoError(t, p.SetDiscount(decimal.NewFromInt(80), "admin"))
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(80)))

	p.RemoveDiscount("admin")
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(100)))
}

func TestSetDiscount(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		wantErr error
	}{
		{name: "below price", price: "99.99"},
		{name: "zero", price: "0"},
		{name: "equal to price", price: "100", wantErr: ErrDiscountNotBelowPrice},
		{name: "above price", price: "120", wantErr: ErrDiscountNotBelowPrice},
		{name: "negative", price: "-1", wantErr: ErrNegativeDiscountPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProduct(t, "100", 5)
			err := p.SetDiscount(decimal.RequireFromString(tt.price), "admin")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, p.DiscountPrice().Valid)
				return
			}
			assert.NoError(t, err)
			assert.True(t, p.DiscountPrice().Valid)
		})
	}
}

func TestSetDiscountAboveRegularPriceMessage(t *testing.T) {
	p := newTestProduct(t, "100", 5)
	err := p.SetDiscount(decimal.NewFromInt(120), "admin")
	require.Error(t, err)
	assert.Equal(t, "Discount price must be less than regular price", err.Error())
	assert.Equal(t, KindBusinessRule, KindOf(err))
}

func TestReduceStock(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		quantity  int
		wantStock int
		wantErr   error
	}{
		{name: "partial", stock: 10, quantity: 3, wantStock: 7},
		{name: "all", stock: 10, quantity: 10, wantStock: 0},
		{name: "too many", stock: 3, quantity: 5, wantStock: 3, wantErr: ErrInsufficientStock},
		{name: "zero quantity", stock: 3, quantity: 0, wantStock: 3, wantErr: ErrNonPositiveQuantity},
		{name: "negative quantity", stock: 3, quantity: -2, wantStock: 3, wantErr: ErrNonPositiveQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProduct(t, "10", tt.stock)
			require.NoError(t, p.Activate("admin"))
			before := p.Snapshot()

			err := p.ReduceStock(tt.quantity, "worker")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, p.Snapshot(), "failed reduction must not mutate the product")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, p.StockQuantity())
		})
	}
}

func TestStockAutoStatus(t *testing.T) {
	p := newTestProduct(t, "10", 2)
	require.NoError(t, p.Activate("admin"))

	require.NoError(t, p.ReduceStock(2, "worker"))
	assert.Equal(t, ProductStatusOutOfStock, p.Status())
	assert.False(t, p.IsInStock())

	require.NoError(t, p.AddStock(4, "worker"))
	assert.Equal(t, ProductStatusActive, p.Status())
	assert.True(t, p.IsInStock())
	assert.Equal(t, 4, p.StockQuantity())
}

func TestStockChangesLeaveOtherStatusesAlone(t *testing.T) {
	p := newTestProduct(t, "10", 2)
	p.Deactivate("admin")

	require.NoError(t, p.UpdateStock(0, "admin"))
	assert.Equal(t, ProductStatusInactive, p.Status())

	require.NoError(t, p.AddStock(1, "admin"))
	assert.Equal(t, ProductStatusInactive, p.Status())
}

func TestUpdateStockRejectsNegative(t *testing.T) {
	p := newTestProduct(t, "10", 2)
	assert.ErrorIs(t, p.UpdateStock(-1, "admin"), ErrNegativeStock)
	assert.Equal(t, 2, p.StockQuantity())
}

func TestActivateRequiresStock(t *testing.T) {
	p := newTestProduct(t, "10", 0)
	assert.ErrorIs(t, p.Activate("admin"), ErrActivateWithoutStock)
	assert.Equal(t, ProductStatusDraft, p.Status())

	require.NoError(t, p.AddStock(1, "admin"))
	assert.NoError(t, p.Activate("admin"))
	assert.Equal(t, ProductStatusActive, p.Status())
}

func TestLowStock(t *testing.T) {
	p := newTestProduct(t, "10", 3)
	assert.False(t, p.IsLowStock())

	require.NoError(t, p.ReduceStock(1, "worker"))
	assert.True(t, p.IsLowStock(), "stock equal to the minimum level is low")
}

func TestUpdateDetailsKeepsDiscountBelowPrice(t *testing.T) {
	p := newTestProduct(t, "100", 3)
	require.NoError(t, p.SetDiscount(decimal.NewFromInt(90), "admin"))

	err := p.UpdateDetails("Keyboard", "", decimal.NewFromInt(80), 2, "admin")
	assert.ErrorIs(t, err, ErrDiscountNotBelowPrice)
	assert.True(t, p.Price().Equal(decimal.NewFromInt(100)))

	require.NoError(t, p.UpdateDetails("Keyboard Pro", "", decimal.NewFromInt(150), 1, "admin"))
	assert.Equal(t, "Keyboard Pro", p.Name())
	assert.Equal(t, 1, p.MinStockLevel())
}

func TestProductSoftDelete(t *testing.T) {
	p := newTestProduct(t, "10", 3)
	p.Delete("admin")

	assert.True(t, p.IsDeleted())
	assert.NotNil(t, p.Snapshot().DeletedAt)
	assert.ErrorIs(t, p.Activate("admin"), ErrProductDeleted)
}

func TestRestoreProductRoundTrip(t *testing.T) {
	p := newTestProduct(t, "10", 3)
	require.NoError(t, p.SetDiscount(decimal.NewFromInt(7), "admin"))

	restored := RestoreProduct(p.Snapshot())
	assert.Equal(t, p.Snapshot(), restored.Snapshot())
}

func TestDiscontinuedProductCannotBeActivated(t *testing.T) {
	p := newTestProduct(t, "10", 3)
	p.Discontinue("admin")

	assert.ErrorIs(t, p.Activate("admin"), ErrProductDiscontinued)
	assert.Equal(t, ProductStatusDiscontinued, p.Status())

	require.NoError(t, p.AddStock(2, "admin"))
	assert.Equal(t, ProductStatusDiscontinued, p.Status())
}
