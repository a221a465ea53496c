package models

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// HoldsReservedStock reports whether stock has been deducted for orders in
// this status, which is the case once payment went through.
func (s OrderStatus) HoldsReservedStock() bool {
	return s == OrderStatusPaid || s == OrderStatusShipped || s == OrderStatusDelivered
}

// ParseTargetStatus maps a requested status (any case) to the status an order
// can be moved to. Pending is never a target.
func ParseTargetStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed":
		return OrderStatusConfirmed, nil
	case "paid":
		return OrderStatusPaid, nil
	case "shipped":
		return OrderStatusShipped, nil
	case "delivered":
		return OrderStatusDelivered, nil
	case "cancelled":
		return OrderStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Order is the aggregate root of the ordering workflow. It owns its items and
// keeps the totals consistent with them.
type Order struct {
	id              uuid.UUID
	orderNumber     string
	userID          uuid.UUID
	status          OrderStatus
	items           []*OrderItem
	shippingFee     decimal.Decimal
	totalDiscount   decimal.Decimal
	totalAmount     decimal.Decimal
	grandTotal      decimal.Decimal
	shippingAddress string
	notes           string
	paidAt          *time.Time
	shippedAt       *time.Time
	deliveredAt     *time.Time
	cancelledAt     *time.Time
	createdAt       time.Time
	updatedAt       time.Time
	createdBy       string
	updatedBy       string
	deletedAt       *time.Time
}

// OrderSnapshot is the exported form of an Order used for storage and transport.
type OrderSnapshot struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          OrderStatus         `json:"status"`
	Items           []OrderItemSnapshot `json:"items"`
	ShippingFee     decimal.Decimal     `json:"shipping_fee"`
	TotalDiscount   decimal.Decimal     `json:"total_discount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	GrandTotal      decimal.Decimal     `json:"grand_total"`
	ShippingAddress string              `json:"shipping_address"`
	Notes           string              `json:"notes,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CreatedBy       string              `json:"created_by"`
	UpdatedBy       string              `json:"updated_by,omitempty"`
	DeletedAt       *time.Time          `json:"deleted_at,omitempty"`
}

// NewOrder creates an empty Pending order with a fresh order number
func NewOrder(userID uuid.UUID, shippingAddress, notes, createdBy string) *Order {
	ts := now()
	return &Order{
		id:              uuid.New(),
		orderNumber:     GenerateOrderNumber(ts),
		userID:          userID,
		status:          OrderStatusPending,
		shippingFee:     decimal.Zero,
		totalDiscount:   decimal.Zero,
		totalAmount:     decimal.Zero,
		grandTotal:      decimal.Zero,
		shippingAddress: shippingAddress,
		notes:           notes,
		createdAt:       ts,
		updatedAt:       ts,
		createdBy:       createdBy,
	}
}

// GenerateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX where the suffix is 8
// random upper-case hex characters.
func GenerateOrderNumber(ts time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("ORD-%s-%s", ts.Format("20060102"), strings.ToUpper(hex.EncodeToString(id[:4])))
}

// RestoreOrder rebuilds an order from persisted state. Totals are recomputed
// from the items.
func RestoreOrder(s OrderSnapshot) *Order {
	o := &Order{
		id:              s.ID,
		orderNumber:     s.OrderNumber,
		userID:          s.UserID,
		status:          s.Status,
		shippingFee:     s.ShippingFee,
		totalDiscount:   s.TotalDiscount,
		shippingAddress: s.ShippingAddress,
		notes:           s.Notes,
		paidAt:          s.PaidAt,
		shippedAt:       s.ShippedAt,
		deliveredAt:     s.DeliveredAt,
		cancelledAt:     s.CancelledAt,
		createdAt:       s.CreatedAt,
		updatedAt:       s.UpdatedAt,
		createdBy:       s.CreatedBy,
		updatedBy:       s.UpdatedBy,
		deletedAt:       s.DeletedAt,
	}
	o.items = make([]*OrderItem, 0, len(s.Items))
	for _, item := range s.Items {
		o.items = append(o.items, restoreOrderItem(item))
	}
	o.recalculate()
	return o
}

// Snapshot returns a copy of the order state including its items
func (o *Order) Snapshot() OrderSnapshot {
	items := make([]OrderItemSnapshot, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, item.Snapshot())
	}
	return OrderSnapshot{
		ID:              o.id,
		OrderNumber:     o.orderNumber,
		UserID:          o.userID,
		Status:          o.status,
		Items:           items,
		ShippingFee:     o.shippingFee,
		TotalDiscount:   o.totalDiscount,
		TotalAmount:     o.totalAmount,
		GrandTotal:      o.grandTotal,
		ShippingAddress: o.shippingAddress,
		Notes:           o.notes,
		PaidAt:          o.paidAt,
		ShippedAt:       o.shippedAt,
		DeliveredAt:     o.deliveredAt,
		CancelledAt:     o.cancelledAt,
		CreatedAt:       o.createdAt,
		UpdatedAt:       o.updatedAt,
		CreatedBy:       o.createdBy,
		UpdatedBy:       o.updatedBy,
		DeletedAt:       o.deletedAt,
	}
}

func (o *Order) ID() uuid.UUID                  { return o.id }
func (o *Order) OrderNumber() string            { return o.orderNumber }
func (o *Order) UserID() uuid.UUID              { return o.userID }
func (o *Order) Status() OrderStatus            { return o.status }
func (o *Order) ShippingFee() decimal.Decimal   { return o.shippingFee }
func (o *Order) TotalDiscount() decimal.Decimal { return o.totalDiscount }
func (o *Order) TotalAmount() decimal.Decimal   { return o.totalAmount }
func (o *Order) GrandTotal() decimal.Decimal    { return o.grandTotal }
func (o *Order) Notes() string                  { return o.notes }
func (o *Order) CreatedAt() time.Time           { return o.createdAt }
func (o *Order) IsDeleted() bool                { return o.deletedAt != nil }

// Items returns the order lines in insertion order
func (o *Order) Items() []*OrderItem {
	items := make([]*OrderItem, len(o.items))
	copy(items, o.items)
	return items
}

// AddLineItem appends a line priced at unitPrice
func (o *Order) AddLineItem(productID uuid.UUID, productName string, unitPrice decimal.Decimal, quantity int) (*OrderItem, error) {
	if o.status != OrderStatusPending {
		return nil, ErrOrderNotPending
	}
	if quantity <= 0 {
		return nil, ErrNonPositiveQuantity
	}
	if unitPrice.IsNegative() {
		return nil, Validation("Unit price cannot be negative")
	}

	item := newOrderItem(productID, productName, unitPrice, quantity)
	o.items = append(o.items, item)
	o.recalculate()
	o.updatedAt = now()
	return item, nil
}

// RemoveLineItem drops the item if present
func (o *Order) RemoveLineItem(itemID uuid.UUID) error {
	if o.status != OrderStatusPending {
		return ErrOrderNotPending
	}

	for i, item := range o.items {
		if item.id == itemID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			break
		}
	}
	o.recalculate()
	o.updatedAt = now()
	return nil
}

// UpdateLineItemQuantity changes the quantity of an existing item
func (o *Order) UpdateLineItemQuantity(itemID uuid.UUID, quantity int) error {
	if o.status != OrderStatusPending {
		return ErrOrderNotPending
	}
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}

	item := o.findItem(itemID)
	if item == nil {
		return ErrOrderItemNotFound
	}
	item.setQuantity(quantity)
	o.recalculate()
	o.updatedAt = now()
	return nil
}

// SetShippingFee sets the shipping fee
func (o *Order) SetShippingFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return ErrNegativeShippingFee
	}
	o.shippingFee = fee
	o.recalculate()
	o.updatedAt = now()
	return nil
}

// ApplyDiscount sets the order level discount
func (o *Order) ApplyDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeDiscount
	}
	o.totalDiscount = amount
	o.recalculate()
	o.updatedAt = now()
	return nil
}

// Confirm moves a Pending order with at least one item to Confirmed
func (o *Order) Confirm(actor string) error {
	if o.status != OrderStatusPending {
		return o.invalidTransition(OrderStatusConfirmed)
	}
	if len(o.items) == 0 {
		return ErrOrderWithoutItems
	}
	o.status = OrderStatusConfirmed
	o.touch(actor)
	return nil
}

// Pay moves a Confirmed order to Paid
func (o *Order) Pay(actor string) error {
	if o.status != OrderStatusConfirmed {
		return o.invalidTransition(OrderStatusPaid)
	}
	ts := o.touch(actor)
	o.status = OrderStatusPaid
	o.paidAt = &ts
	return nil
}

// Ship moves a Paid order to Shipped
func (o *Order) Ship(actor string) error {
	if o.status != OrderStatusPaid {
		return o.invalidTransition(OrderStatusShipped)
	}
	ts := o.touch(actor)
	o.status = OrderStatusShipped
	o.shippedAt = &ts
	return nil
}

// Deliver moves a Shipped order to Delivered
func (o *Order) Deliver(actor string) error {
	if o.status != OrderStatusShipped {
		return o.invalidTransition(OrderStatusDelivered)
	}
	ts := o.touch(actor)
	o.status = OrderStatusDelivered
	o.deliveredAt = &ts
	return nil
}

// Cancel cancels the order from any state but Delivered. The reason is
// appended to the existing notes.
func (o *Order) Cancel(actor, reason string) error {
	switch o.status {
	case OrderStatusDelivered:
		return ErrCancelDeliveredOrder
	case OrderStatusCancelled:
		return ErrOrderAlreadyCancelled
	}

	ts := o.touch(actor)
	o.status = OrderStatusCancelled
	o.cancelledAt = &ts
	if reason = strings.TrimSpace(reason); reason != "" {
		line := "Cancellation reason: " + reason
		if o.notes == "" {
			o.notes = line
		} else {
			o.notes = o.notes + "\n" + line
		}
	}
	return nil
}

// TransitionTo dispatches to the transition that leads to target.
func (o *Order) TransitionTo(target OrderStatus, actor, reason string) error {
	switch target {
	case OrderStatusConfirmed:
		return o.Confirm(actor)
	case OrderStatusPaid:
		return o.Pay(actor)
	case OrderStatusShipped:
		return o.Ship(actor)
	case OrderStatusDelivered:
		return o.Deliver(actor)
	case OrderStatusCancelled:
		return o.Cancel(actor, reason)
	default:
		return ErrInvalidStatus
	}
}

// Delete soft-deletes the order. Only Pending and Cancelled orders qualify.
func (o *Order) Delete(actor string) error {
	if o.status != OrderStatusPending && o.status != OrderStatusCancelled {
		return ErrOrderNotDeletable
	}
	ts := o.touch(actor)
	o.deletedAt = &ts
	return nil
}

// StockItems returns the product/quantity pairs of the order
func (o *Order) StockItems() []StockItem {
	items := make([]StockItem, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, StockItem{ProductID: item.productID, Quantity: item.quantity})
	}
	return items
}

func (o *Order) findItem(itemID uuid.UUID) *OrderItem {
	for _, item := range o.items {
		if item.id == itemID {
			return item
		}
	}
	return nil
}

func (o *Order) recalculate() {
	total := decimal.Zero
	for _, item := range o.items {
		total = total.Add(item.totalPrice)
	}
	o.totalAmount = total
	o.grandTotal = total.Add(o.shippingFee).Sub(o.totalDiscount)
}

func (o *Order) touch(actor string) time.Time {
	ts := now()
	o.updatedAt = ts
	o.updatedBy = actor
	return ts
}

func (o *Order) invalidTransition(target OrderStatus) error {
	return BusinessRule("Cannot change order status from %s to %s", o.status, target)
}
