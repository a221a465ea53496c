package service

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	users          UserStore
	products       ProductStore
	orders         OrderStore
	events         EventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service. idempotency may be nil, in
// which case idempotency keys are ignored.
func NewOrderService(
	users UserStore,
	products ProductStore,
	orders OrderStore,
	events EventPublisher,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
) *OrderService {
	return &OrderService{
		users:          users,
		products:       products,
		orders:         orders,
		events:         events,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID          uuid.UUID          `json:"user_id"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	Notes           string             `json:"notes"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingFee     decimal.Decimal    `json:"shipping_fee"`
	Discount        decimal.Decimal    `json:"discount"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CreateOrder validates the user and every requested product, prices the
// items at the current effective price and stores a Pending order. Stock is
// only checked here; it is deducted once the order is paid.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest, actor string) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if existing := s.replayIdempotent(ctx, req.IdempotencyKey); existing != nil {
		snap := existing.Snapshot()
		return ok(&snap, "Order already created")
	}

	if req.UserID == uuid.Nil {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", models.Validation("User ID is required", "user_id is required"))
	}
	if len(req.Items) == 0 {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", models.Validation("Order must contain at least one item", "items must not be empty"))
	}

	user, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", err)
	}
	if user == nil {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", models.NotFound("User not found"))
	}

	order := models.NewOrder(user.ID, req.ShippingAddress, req.Notes, actor)
	for _, item := range req.Items {
		product, err := s.sellableProduct(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return fail[*models.OrderSnapshot](s.logger, "CreateOrder", err)
		}
		if _, err := order.AddLineItem(product.ID(), product.Name(), product.EffectivePrice(), item.Quantity); err != nil {
			return fail[*models.OrderSnapshot](s.logger, "CreateOrder", err)
		}
	}
	if err := order.SetShippingFee(req.ShippingFee); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", err)
	}
	if err := order.ApplyDiscount(req.Discount); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", err)
	}

	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "CreateOrder", fmt.Errorf("failed to save order: %w", err))
	}
	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.String("order.id", order.ID().String()))

	s.rememberIdempotent(ctx, req.IdempotencyKey, order.ID())

	if err := s.events.PublishOrderCreated(ctx, models.NewOrderCreatedEvent(order)); err != nil {
		s.logger.Error("Failed to publish OrderCreated event",
			zap.String("order_id", order.ID().String()),
			zap.Error(err))
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID().String()),
		zap.String("order_number", order.OrderNumber()),
		zap.String("user_id", user.ID.String()),
		zap.String("grand_total", order.GrandTotal().String()))

	snap := order.Snapshot()
	return ok(&snap, "Order created successfully")
}

// sellableProduct loads a product that exists, is in stock and has at least quantity units
func (s *OrderService) sellableProduct(ctx context.Context, productID uuid.UUID, quantity int) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, models.NotFound("Product not found: %s", productID)
	}
	if !product.IsInStock() {
		util.OrdersRejectedTotal.WithLabelValues("product_unavailable").Inc()
		return nil, models.BusinessRule("Product '%s' is not available", product.Name())
	}
	if product.StockQuantity() < quantity {
		util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, models.BusinessRule("Insufficient stock for product '%s'", product.Name())
	}
	return product, nil
}

func (s *OrderService) replayIdempotent(ctx context.Context, key string) *models.Order {
	if key == "" || s.idempotency == nil {
		return nil
	}

	value, found, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	orderID, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil || order == nil {
		return nil
	}

	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", order.ID().String()))
	return order
}

func (s *OrderService) rememberIdempotent(ctx context.Context, key string, orderID uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.SetIdempotencyKey(ctx, key, orderID.String(), s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.String("idempotency_key", key), zap.Error(err))
	}
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "GetOrder", err)
	}
	snap := order.Snapshot()
	return ok(&snap, "")
}

// GetOrderByNumber retrieves an order by its order number
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrderByNumber")
	defer span.End()

	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "GetOrderByNumber", err)
	}
	if order == nil {
		return fail[*models.OrderSnapshot](s.logger, "GetOrderByNumber", models.NotFound("Order not found: %s", orderNumber))
	}
	snap := order.Snapshot()
	return ok(&snap, "")
}

// GetUserOrders lists the orders of a user, newest first
func (s *OrderService) GetUserOrders(ctx context.Context, userID uuid.UUID) Result[[]models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.GetUserOrders")
	defer span.End()

	orders, err := s.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return fail[[]models.OrderSnapshot](s.logger, "GetUserOrders", err)
	}
	return ok(snapshotOrders(orders), "")
}

// ListOrders returns one page of orders
func (s *OrderService) ListOrders(ctx context.Context, page models.Page) Result[models.PagedResult[models.OrderSnapshot]] {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, total, err := s.orders.ListOrders(ctx, page)
	if err != nil {
		return fail[models.PagedResult[models.OrderSnapshot]](s.logger, "ListOrders", err)
	}
	return ok(models.NewPagedResult(snapshotOrders(orders), total, page), "")
}

// UpdateOrderStatus moves the order to status. Paying an order publishes a
// StockReservation; cancelling an order whose stock was already deducted
// publishes a StockRelease.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status, actor, reason string) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	target, err := models.ParseTargetStatus(status)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderStatus", err)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderStatus", err)
	}

	previous := order.Status()
	if err := order.TransitionTo(target, actor, reason); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderStatus", err)
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderStatus", fmt.Errorf("failed to save order: %w", err))
	}
	util.OrderStatusTransitionsTotal.WithLabelValues(string(target)).Inc()

	switch {
	case target == models.OrderStatusPaid:
		if err := s.events.PublishStockReservation(ctx, models.NewStockReservationEvent(order)); err != nil {
			s.logger.Error("Failed to publish StockReservation event",
				zap.String("order_id", order.ID().String()),
				zap.Error(err))
		}
	case target == models.OrderStatusCancelled && previous.HoldsReservedStock():
		if err := s.events.PublishStockRelease(ctx, models.NewStockReleaseEvent(order)); err != nil {
			s.logger.Error("Failed to publish StockRelease event",
				zap.String("order_id", order.ID().String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID().String()),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.String("actor", actor))

	snap := order.Snapshot()
	return ok(&snap, fmt.Sprintf("Order status updated to %s", target))
}

// AddOrderItem adds a product to a Pending order
func (s *OrderService) AddOrderItem(ctx context.Context, orderID uuid.UUID, req *OrderItemRequest, actor string) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.AddOrderItem")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "AddOrderItem", err)
	}
	product, err := s.sellableProduct(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "AddOrderItem", err)
	}
	if _, err := order.AddLineItem(product.ID(), product.Name(), product.EffectivePrice(), req.Quantity); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "AddOrderItem", err)
	}
	return s.saveOrder(ctx, order, "AddOrderItem", actor, "Item added to order")
}

// UpdateOrderItemQuantityRequest changes the quantity of one order line
type UpdateOrderItemQuantityRequest struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

// UpdateOrderItemQuantity changes the quantity of an item of a Pending order
func (s *OrderService) UpdateOrderItemQuantity(ctx context.Context, orderID uuid.UUID, req *UpdateOrderItemQuantityRequest, actor string) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderItemQuantity")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderItemQuantity", err)
	}

	var item *models.OrderItem
	for _, candidate := range order.Items() {
		if candidate.ID() == req.ItemID {
			item = candidate
			break
		}
	}
	if item == nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderItemQuantity", models.ErrOrderItemNotFound)
	}
	if _, err := s.sellableProduct(ctx, item.ProductID(), req.Quantity); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderItemQuantity", err)
	}

	if err := order.UpdateLineItemQuantity(req.ItemID, req.Quantity); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "UpdateOrderItemQuantity", err)
	}
	return s.saveOrder(ctx, order, "UpdateOrderItemQuantity", actor, "Order item updated")
}

// RemoveOrderItem removes an item from a Pending order
func (s *OrderService) RemoveOrderItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) Result[*models.OrderSnapshot] {
	ctx, span := util.StartSpan(ctx, "OrderService.RemoveOrderItem")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return fail[*models.OrderSnapshot](s.logger, "RemoveOrderItem", err)
	}
	if err := order.RemoveLineItem(itemID); err != nil {
		return fail[*models.OrderSnapshot](s.logger, "RemoveOrderItem", err)
	}
	return s.saveOrder(ctx, order, "RemoveOrderItem", actor, "Item removed from order")
}

// DeleteOrder soft-deletes a Pending or Cancelled order
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) Result[bool] {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return fail[bool](s.logger, "DeleteOrder", err)
	}
	if err := order.Delete(actor); err != nil {
		return fail[bool](s.logger, "DeleteOrder", err)
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return fail[bool](s.logger, "DeleteOrder", fmt.Errorf("failed to delete order: %w", err))
	}

	s.logger.Info("Order deleted", zap.String("order_id", orderID.String()), zap.String("actor", actor))
	return ok(true, "Order deleted successfully")
}

func (s *OrderService) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, models.NotFound("Order not found: %s", orderID)
	}
	return order, nil
}

func (s *OrderService) saveOrder(ctx context.Context, order *models.Order, operation, actor, message string) Result[*models.OrderSnapshot] {
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return fail[*models.OrderSnapshot](s.logger, operation, fmt.Errorf("failed to save order: %w", err))
	}
	s.logger.Info(message,
		zap.String("order_id", order.ID().String()),
		zap.String("actor", actor))
	snap := order.Snapshot()
	return ok(&snap, message)
}

func snapshotOrders(orders []*models.Order) []models.OrderSnapshot {
	snaps := make([]models.OrderSnapshot, 0, len(orders))
	for _, o := range orders {
		snaps = append(snaps, o.Snapshot())
	}
	return snaps
}
