package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a line of an order. Name and price are captured when the item is
// added and do not follow later product changes.
type OrderItem struct {
	id          uuid.UUID
	productID   uuid.UUID
	productName string
	unitPrice   decimal.Decimal
	quantity    int
	totalPrice  decimal.Decimal
}

// OrderItemSnapshot is the exported form of an OrderItem
type OrderItemSnapshot struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

func newOrderItem(productID uuid.UUID, productName string, unitPrice decimal.Decimal, quantity int) *OrderItem {
	item := &OrderItem{
		id:          uuid.New(),
		productID:   productID,
		productName: productName,
		unitPrice:   unitPrice,
	}
	item.setQuantity(quantity)
	return item
}

func (i *OrderItem) setQuantity(quantity int) {
	i.quantity = quantity
	i.totalPrice = i.unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (i *OrderItem) ID() uuid.UUID               { return i.id }
func (i *OrderItem) ProductID() uuid.UUID        { return i.productID }
func (i *OrderItem) ProductName() string         { return i.productName }
func (i *OrderItem) UnitPrice() decimal.Decimal  { return i.unitPrice }
func (i *OrderItem) Quantity() int               { return i.quantity }
func (i *OrderItem) TotalPrice() decimal.Decimal { return i.totalPrice }

// Snapshot returns a copy of the item state
func (i *OrderItem) Snapshot() OrderItemSnapshot {
	return OrderItemSnapshot{
		ID:          i.id,
		ProductID:   i.productID,
		ProductName: i.productName,
		UnitPrice:   i.unitPrice,
		Quantity:    i.quantity,
		TotalPrice:  i.totalPrice,
	}
}

func restoreOrderItem(s OrderItemSnapshot) *OrderItem {
	item := &OrderItem{
		id:          s.ID,
		productID:   s.ProductID,
		productName: s.ProductName,
		unitPrice:   s.UnitPrice,
	}
	item.setQuantity(s.Quantity)
	return item
}
