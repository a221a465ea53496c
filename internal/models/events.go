package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeStockReservation = "STOCK_RESERVATION"
	EventTypeStockRelease     = "STOCK_RELEASE"
	EventTypeProductUpdated   = "PRODUCT_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a new event of the given type
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: now(),
	}
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StockReservationEvent asks for stock to be deducted after payment
type StockReservationEvent struct {
	BaseEvent
	OrderID uuid.UUID   `json:"order_id"`
	Items   []StockItem `json:"items"`
}

// StockReleaseEvent asks for stock to be restored after cancellation
type StockReleaseEvent struct {
	BaseEvent
	OrderID uuid.UUID   `json:"order_id"`
	Items   []StockItem `json:"items"`
}

// ProductUpdatedEvent published whenever a product changes
type ProductUpdatedEvent struct {
	BaseEvent
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// StockItem is a product/quantity pair carried by stock events
type StockItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// NewOrderCreatedEvent builds the OrderCreated payload for o
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	items := make([]OrderItemData, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, OrderItemData{
			ProductID: item.productID,
			Quantity:  item.quantity,
			UnitPrice: item.unitPrice,
		})
	}
	return &OrderCreatedEvent{
		BaseEvent:   NewBaseEvent(EventTypeOrderCreated),
		OrderID:     o.id,
		OrderNumber: o.orderNumber,
		UserID:      o.userID,
		TotalAmount: o.totalAmount,
		Items:       items,
		CreatedAt:   o.createdAt,
	}
}

// NewStockReservationEvent builds the reservation payload for a paid order
func NewStockReservationEvent(o *Order) *StockReservationEvent {
	return &StockReservationEvent{
		BaseEvent: NewBaseEvent(EventTypeStockReservation),
		OrderID:   o.id,
		Items:     o.StockItems(),
	}
}

// NewStockReleaseEvent builds the release payload for a cancelled order
func NewStockReleaseEvent(o *Order) *StockReleaseEvent {
	return &StockReleaseEvent{
		BaseEvent: NewBaseEvent(EventTypeStockRelease),
		OrderID:   o.id,
		Items:     o.StockItems(),
	}
}

// NewProductUpdatedEvent builds the ProductUpdated payload for p
func NewProductUpdatedEvent(p *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventTypeProductUpdated),
		ProductID:     p.id,
		ProductName:   p.name,
		Price:         p.EffectivePrice(),
		StockQuantity: p.stockQuantity,
		UpdatedAt:     p.updatedAt,
	}
}
