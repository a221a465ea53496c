package service

import (
	"context"
	"errors"
	"testing"

	"commerce-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderTotals(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	gadget := f.addProduct(t, "Gadget", "5", 10)

	order := f.createOrder(t,
		OrderItemRequest{ProductID: widget.ID(), Quantity: 2},
		OrderItemRequest{ProductID: gadget.ID(), Quantity: 1},
	)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(25)), "got %s", order.TotalAmount)
	assert.True(t, order.GrandTotal.Equal(decimal.NewFromInt(25)), "got %s", order.GrandTotal)
	assert.Equal(t, "ada", order.CreatedBy)

	require.Len(t, f.events.OrderCreated, 1)
	event := f.events.OrderCreated[0]
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, order.OrderNumber, event.OrderNumber)
	assert.Equal(t, f.user.ID, event.UserID)
	assert.Len(t, event.Items, 2)
	assert.Equal(t, models.EventTypeOrderCreated, event.EventType)

	assert.Equal(t, 10, f.stockOf(widget.ID()), "stock is only deducted after payment")
}

func TestCreateOrderUsesEffectivePrice(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	require.NoError(t, widget.SetDiscount(decimal.NewFromInt(8), "seed"))
	f.store.AddProduct(widget)

	order := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 2})
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(8)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(16)))
}

func TestCreateOrderFeesAndDiscount(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)

	res := f.orders.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          f.user.ID,
		ShippingAddress: "1 Main St",
		Items:           []OrderItemRequest{{ProductID: widget.ID(), Quantity: 1}},
		ShippingFee:     decimal.NewFromInt(3),
		Discount:        decimal.NewFromInt(1),
	}, "ada")
	require.True(t, res.Success)
	assert.True(t, res.Data.GrandTotal.Equal(decimal.NewFromInt(12)))

	res = f.orders.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          f.user.ID,
		ShippingAddress: "1 Main St",
		Items:           []OrderItemRequest{{ProductID: widget.ID(), Quantity: 1}},
		ShippingFee:     decimal.NewFromInt(-3),
	}, "ada")
	assert.False(t, res.Success)
	assert.Equal(t, models.KindBusinessRule, res.Kind)
}

func TestCreateOrderFailures(t *testing.T) {
	f := newFixture(t)
	scarce := f.addProduct(t, "Lamp", "20", 3)
	draft := f.addProduct(t, "Chair", "50", 0)
	missing := uuid.New()

	tests := []struct {
		name     string
		userID   uuid.UUID
		items    []OrderItemRequest
		wantKind models.ErrorKind
		wantMsg  string
	}{
		{
			name:     "unknown user",
			userID:   uuid.New(),
			items:    []OrderItemRequest{{ProductID: scarce.ID(), Quantity: 1}},
			wantKind: models.KindNotFound,
			wantMsg:  "User not found",
		},
		{
			name:     "unknown product",
			userID:   f.user.ID,
			items:    []OrderItemRequest{{ProductID: missing, Quantity: 1}},
			wantKind: models.KindNotFound,
			wantMsg:  "Product not found: " + missing.String(),
		},
		{
			name:     "product not on sale",
			userID:   f.user.ID,
			items:    []OrderItemRequest{{ProductID: draft.ID(), Quantity: 1}},
			wantKind: models.KindBusinessRule,
			wantMsg:  "Product 'Chair' is not available",
		},
		{
			name:     "insufficient stock",
			userID:   f.user.ID,
			items:    []OrderItemRequest{{ProductID: scarce.ID(), Quantity: 5}},
			wantKind: models.KindBusinessRule,
			wantMsg:  "Insufficient stock for product 'Lamp'",
		},
		{
			name:     "no items",
			userID:   f.user.ID,
			wantKind: models.KindValidation,
			wantMsg:  "Order must contain at least one item",
		},
		{
			name:     "zero quantity",
			userID:   f.user.ID,
			items:    []OrderItemRequest{{ProductID: scarce.ID(), Quantity: 0}},
			wantKind: models.KindBusinessRule,
			wantMsg:  "Quantity must be greater than zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.orders.CreateOrder(context.Background(), &CreateOrderRequest{
				UserID:          tt.userID,
				ShippingAddress: "1 Main St",
				Items:           tt.items,
			}, "ada")

			assert.False(t, res.Success)
			assert.Nil(t, res.Data)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantMsg, res.Message)
			assert.NotEmpty(t, res.Errors)
		})
	}

	assert.Zero(t, f.store.OrderCount(), "failed orders are not persisted")
	assert.Empty(t, f.events.OrderCreated)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	req := &CreateOrderRequest{
		UserID:          f.user.ID,
		ShippingAddress: "1 Main St",
		Items:           []OrderItemRequest{{ProductID: widget.ID(), Quantity: 1}},
		IdempotencyKey:  "checkout-42",
	}

	first := f.orders.CreateOrder(context.Background(), req, "ada")
	second := f.orders.CreateOrder(context.Background(), req, "ada")

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Data.ID, second.Data.ID)
	assert.Equal(t, 1, f.store.OrderCount())
	assert.Len(t, f.events.OrderCreated, 1)
}

func TestCreateOrderSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	f.events.Err = errors.New("broker unavailable")

	order := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	assert.NotNil(t, f.store.Order(order.ID), "the order is kept when the event cannot be published")
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	f.store.SaveErr = errors.New("connection reset by peer")

	res := f.orders.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          f.user.ID,
		ShippingAddress: "1 Main St",
		Items:           []OrderItemRequest{{ProductID: widget.ID(), Quantity: 1}},
	}, "ada")

	assert.False(t, res.Success)
	assert.Equal(t, models.KindUnexpected, res.Kind)
	assert.Equal(t, "An error occurred while processing your request", res.Message)
	assert.NotContains(t, res.Errors[0], "connection reset")
}

func TestPayPublishesStockReservation(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	gadget := f.addProduct(t, "Gadget", "5", 10)
	order := f.createOrder(t,
		OrderItemRequest{ProductID: widget.ID(), Quantity: 2},
		OrderItemRequest{ProductID: gadget.ID(), Quantity: 1},
	)

	res := f.orders.UpdateOrderStatus(context.Background(), order.ID, "paid", "admin", "")
	assert.False(t, res.Success)
	assert.Equal(t, models.KindBusinessRule, res.Kind)
	assert.Equal(t, "Cannot change order status from PENDING to PAID", res.Message)
	assert.Empty(t, f.events.StockReservation)

	f.moveOrder(t, order.ID, "Confirmed", "PAID")

	require.Len(t, f.events.StockReservation, 1)
	event := f.events.StockReservation[0]
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, []models.StockItem{
		{ProductID: widget.ID(), Quantity: 2},
		{ProductID: gadget.ID(), Quantity: 1},
	}, event.Items)
	assert.NotNil(t, f.store.Order(order.ID).Snapshot().PaidAt)
}

func TestCancelPublishesStockRelease(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)

	paid := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 2})
	f.moveOrder(t, paid.ID, "confirmed", "paid")

	res := f.orders.UpdateOrderStatus(context.Background(), paid.ID, "cancelled", "admin", "customer request")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, models.OrderStatusCancelled, res.Data.Status)
	assert.Contains(t, res.Data.Notes, "Cancellation reason: customer request")

	require.Len(t, f.events.StockRelease, 1)
	assert.Equal(t, paid.ID, f.events.StockRelease[0].OrderID)
	assert.Equal(t, []models.StockItem{{ProductID: widget.ID(), Quantity: 2}}, f.events.StockRelease[0].Items)
}

func TestCancelUnpaidOrderReleasesNothing(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)

	pending := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	f.moveOrder(t, pending.ID, "cancelled")

	confirmed := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	f.moveOrder(t, confirmed.ID, "confirmed", "cancelled")

	assert.Empty(t, f.events.StockRelease, "stock was never deducted for unpaid orders")
}

func TestCancelRejected(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)

	delivered := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	f.moveOrder(t, delivered.ID, "confirmed", "paid", "shipped", "delivered")
	res := f.orders.UpdateOrderStatus(context.Background(), delivered.ID, "cancelled", "admin", "")
	assert.False(t, res.Success)
	assert.Equal(t, models.KindBusinessRule, res.Kind)

	cancelled := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	f.moveOrder(t, cancelled.ID, "confirmed", "paid", "cancelled")
	res = f.orders.UpdateOrderStatus(context.Background(), cancelled.ID, "cancelled", "admin", "")
	assert.False(t, res.Success)

	assert.Len(t, f.events.StockRelease, 1, "a second cancel must not release stock again")
}

func TestUpdateOrderStatusInvalid(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	order := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})

	for _, status := range []string{"refunded", "pending", ""} {
		res := f.orders.UpdateOrderStatus(context.Background(), order.ID, status, "admin", "")
		assert.False(t, res.Success)
		assert.Equal(t, models.KindValidation, res.Kind)
		assert.Equal(t, "Invalid status", res.Message)
	}

	res := f.orders.UpdateOrderStatus(context.Background(), uuid.New(), "confirmed", "admin", "")
	assert.Equal(t, models.KindNotFound, res.Kind)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)

	shipped := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	f.moveOrder(t, shipped.ID, "confirmed", "paid", "shipped")
	res := f.orders.DeleteOrder(context.Background(), shipped.ID, "admin")
	assert.False(t, res.Success)
	assert.Equal(t, models.KindBusinessRule, res.Kind)
	assert.Equal(t, "Only pending or cancelled orders can be deleted", res.Message)

	pending := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	res = f.orders.DeleteOrder(context.Background(), pending.ID, "admin")
	require.True(t, res.Success, res.Message)
	assert.True(t, res.Data)

	assert.Equal(t, models.KindNotFound, f.orders.GetOrder(context.Background(), pending.ID).Kind)
	assert.NotNil(t, f.store.Order(pending.ID).Snapshot().DeletedAt, "orders are soft-deleted")
}

func TestOrderItemOperations(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	gadget := f.addProduct(t, "Gadget", "5", 4)
	order := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	ctx := context.Background()

	res := f.orders.AddOrderItem(ctx, order.ID, &OrderItemRequest{ProductID: gadget.ID(), Quantity: 2}, "ada")
	require.True(t, res.Success, res.Message)
	require.Len(t, res.Data.Items, 2)
	assert.True(t, res.Data.GrandTotal.Equal(decimal.NewFromInt(20)))

	gadgetLine := res.Data.Items[1].ID
	res = f.orders.UpdateOrderItemQuantity(ctx, order.ID, &UpdateOrderItemQuantityRequest{ItemID: gadgetLine, Quantity: 5}, "ada")
	assert.False(t, res.Success)
	assert.Equal(t, "Insufficient stock for product 'Gadget'", res.Message)

	res = f.orders.UpdateOrderItemQuantity(ctx, order.ID, &UpdateOrderItemQuantityRequest{ItemID: gadgetLine, Quantity: 3}, "ada")
	require.True(t, res.Success, res.Message)
	assert.True(t, res.Data.GrandTotal.Equal(decimal.NewFromInt(25)))

	res = f.orders.UpdateOrderItemQuantity(ctx, order.ID, &UpdateOrderItemQuantityRequest{ItemID: uuid.New(), Quantity: 1}, "ada")
	assert.Equal(t, models.KindNotFound, res.Kind)

	res = f.orders.RemoveOrderItem(ctx, order.ID, gadgetLine, "ada")
	require.True(t, res.Success, res.Message)
	assert.Len(t, res.Data.Items, 1)
	assert.True(t, res.Data.GrandTotal.Equal(decimal.NewFromInt(10)))

	res = f.orders.AddOrderItem(ctx, order.ID, &OrderItemRequest{ProductID: uuid.New(), Quantity: 1}, "ada")
	assert.Equal(t, models.KindNotFound, res.Kind)

	f.moveOrder(t, order.ID, "confirmed")
	res = f.orders.AddOrderItem(ctx, order.ID, &OrderItemRequest{ProductID: gadget.ID(), Quantity: 1}, "ada")
	assert.False(t, res.Success)
	assert.Equal(t, models.KindBusinessRule, res.Kind)
	assert.Len(t, f.store.Order(order.ID).Items(), 1)
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t)
	widget := f.addProduct(t, "Widget", "10", 10)
	first := f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 1})
	f.createOrder(t, OrderItemRequest{ProductID: widget.ID(), Quantity: 2})
	ctx := context.Background()

	byNumber := f.orders.GetOrderByNumber(ctx, first.OrderNumber)
	require.True(t, byNumber.Success)
	assert.Equal(t, first.ID, byNumber.Data.ID)
	assert.Equal(t, models.KindNotFound, f.orders.GetOrderByNumber(ctx, "ORD-00000000-00000000").Kind)

	mine := f.orders.GetUserOrders(ctx, f.user.ID)
	require.True(t, mine.Success)
	assert.Len(t, mine.Data, 2)

	page := f.orders.ListOrders(ctx, models.NewPage(1, 1))
	require.True(t, page.Success)
	assert.Len(t, page.Data.Items, 1)
	assert.Equal(t, 2, page.Data.TotalCount)
	assert.Equal(t, 2, page.Data.TotalPages)
}
