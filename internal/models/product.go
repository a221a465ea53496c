package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the sale status of a product
type ProductStatus string

const (
	ProductStatusDraft        ProductStatus = "DRAFT"
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusInactive     ProductStatus = "INACTIVE"
	ProductStatusOutOfStock   ProductStatus = "OUT_OF_STOCK"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

var now = func() time.Time { return time.Now().UTC() }

// Product is a catalog entry and owns its stock ledger. State changes only go
// through its methods; persistence rebuilds it with RestoreProduct.
type Product struct {
	id            uuid.UUID
	name          string
	description   string
	sku           string
	price         decimal.Decimal
	discountPrice decimal.NullDecimal
	stockQuantity int
	minStockLevel int
	status        ProductStatus
	createdAt     time.Time
	updatedAt     time.Time
	createdBy     string
	updatedBy     string
	deletedAt     *time.Time
}

// ProductSnapshot is the flat, exported form of a Product used for storage and transport.
type ProductSnapshot struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	SKU            string              `json:"sku"`
	Price          decimal.Decimal     `json:"price"`
	DiscountPrice  decimal.NullDecimal `json:"discount_price"`
	EffectivePrice decimal.Decimal     `json:"effective_price"`
	StockQuantity  int                 `json:"stock_quantity"`
	MinStockLevel  int                 `json:"min_stock_level"`
	Status         ProductStatus       `json:"status"`
	IsLowStock     bool                `json:"is_low_stock"`
	IsInStock      bool                `json:"is_in_stock"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	CreatedBy      string              `json:"created_by"`
	UpdatedBy      string              `json:"updated_by,omitempty"`
	DeletedAt      *time.Time          `json:"deleted_at,omitempty"`
}

// NewProduct creates a Draft product
func NewProduct(name, description, sku string, price decimal.Decimal, stockQuantity, minStockLevel int, createdBy string) (*Product, error) {
	var details []string
	if strings.TrimSpace(name) == "" {
		details = append(details, "name is required")
	}
	if strings.TrimSpace(sku) == "" {
		details = append(details, "sku is required")
	}
	if stockQuantity < 0 {
		details = append(details, "stock quantity cannot be negative")
	}
	if minStockLevel < 0 {
		details = append(details, "minimum stock level cannot be negative")
	}
	if len(details) > 0 {
		return nil, Validation("Invalid product", details...)
	}
	if !price.IsPositive() {
		return nil, ErrNonPositivePrice
	}

	ts := now()
	return &Product{
		id:            uuid.New(),
		name:          strings.TrimSpace(name),
		description:   description,
		sku:           strings.ToUpper(strings.TrimSpace(sku)),
		price:         price,
		stockQuantity: stockQuantity,
		minStockLevel: minStockLevel,
		status:        ProductStatusDraft,
		createdAt:     ts,
		updatedAt:     ts,
		createdBy:     createdBy,
	}, nil
}

// RestoreProduct rebuilds a product from its persisted snapshot without validation.
func RestoreProduct(s ProductSnapshot) *Product {
	return &Product{
		id:            s.ID,
		name:          s.Name,
		description:   s.Description,
		sku:           s.SKU,
		price:         s.Price,
		discountPrice: s.DiscountPrice,
		stockQuantity: s.StockQuantity,
		minStockLevel: s.MinStockLevel,
		status:        s.Status,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
		createdBy:     s.CreatedBy,
		updatedBy:     s.UpdatedBy,
		deletedAt:     s.DeletedAt,
	}
}

// Snapshot returns a copy of the product state
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:             p.id,
		Name:           p.name,
		Description:    p.description,
		SKU:            p.sku,
		Price:          p.price,
		DiscountPrice:  p.discountPrice,
		EffectivePrice: p.EffectivePrice(),
		StockQuantity:  p.stockQuantity,
		MinStockLevel:  p.minStockLevel,
		Status:         p.status,
		IsLowStock:     p.IsLowStock(),
		IsInStock:      p.IsInStock(),
		CreatedAt:      p.createdAt,
		UpdatedAt:      p.updatedAt,
		CreatedBy:      p.createdBy,
		UpdatedBy:      p.updatedBy,
		DeletedAt:      p.deletedAt,
	}
}

func (p *Product) ID() uuid.UUID                      { return p.id }
func (p *Product) Name() string                       { return p.name }
func (p *Product) Description() string                { return p.description }
func (p *Product) SKU() string                        { return p.sku }
func (p *Product) Price() decimal.Decimal             { return p.price }
func (p *Product) DiscountPrice() decimal.NullDecimal { return p.discountPrice }
func (p *Product) StockQuantity() int                 { return p.stockQuantity }
func (p *Product) MinStockLevel() int                 { return p.minStockLevel }
func (p *Product) Status() ProductStatus              { return p.status }
func (p *Product) UpdatedAt() time.Time               { return p.updatedAt }
func (p *Product) IsDeleted() bool                    { return p.deletedAt != nil }

// EffectivePrice is the discount price when one is set, the regular price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.discountPrice.Valid {
		return p.discountPrice.Decimal
	}
	return p.price
}

// IsLowStock reports whether stock is at or below the minimum level
func (p *Product) IsLowStock() bool {
	return p.stockQuantity <= p.minStockLevel
}

// IsInStock reports whether the product can be sold right now
func (p *Product) IsInStock() bool {
	return p.stockQuantity > 0 && p.status == ProductStatusActive
}

// UpdateStock sets the stock quantity and flips Active/OutOfStock as needed.
func (p *Product) UpdateStock(newQuantity int, actor string) error {
	if newQuantity < 0 {
		return ErrNegativeStock
	}

	p.stockQuantity = newQuantity
	switch {
	case newQuantity == 0 && p.status == ProductStatusActive:
		p.status = ProductStatusOutOfStock
	case newQuantity > 0 && p.status == ProductStatusOutOfStock:
		p.status = ProductStatusActive
	}
	p.touch(actor)
	return nil
}

// AddStock increases stock by quantity
func (p *Product) AddStock(quantity int, actor string) error {
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	return p.UpdateStock(p.stockQuantity+quantity, actor)
}

// ReduceStock decreases stock by quantity. Nothing changes when it fails.
func (p *Product) ReduceStock(quantity int, actor string) error {
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	if quantity > p.stockQuantity {
		return ErrInsufficientStock
	}
	return p.UpdateStock(p.stockQuantity-quantity, actor)
}

// Activate puts the product on sale
func (p *Product) Activate(actor string) error {
	if p.IsDeleted() {
		return ErrProductDeleted
	}
	if p.status == ProductStatusDiscontinued {
		return ErrProductDiscontinued
	}
	if p.stockQuantity == 0 {
		return ErrActivateWithoutStock
	}
	p.status = ProductStatusActive
	p.touch(actor)
	return nil
}

// Deactivate takes the product off sale
func (p *Product) Deactivate(actor string) {
	p.status = ProductStatusInactive
	p.touch(actor)
}

// Discontinue retires the product; it can no longer be activated
func (p *Product) Discontinue(actor string) {
	p.status = ProductStatusDiscontinued
	p.touch(actor)
}

// SetDiscount sets a discount price below the regular price
func (p *Product) SetDiscount(price decimal.Decimal, actor string) error {
	if price.IsNegative() {
		return ErrNegativeDiscountPrice
	}
	if price.GreaterThanOrEqual(p.price) {
		return ErrDiscountNotBelowPrice
	}
	p.discountPrice = decimal.NullDecimal{Decimal: price, Valid: true}
	p.touch(actor)
	return nil
}

// RemoveDiscount clears the discount price
func (p *Product) RemoveDiscount(actor string) {
	p.discountPrice = decimal.NullDecimal{}
	p.touch(actor)
}

// UpdateDetails changes the descriptive fields and the regular price.
func (p *Product) UpdateDetails(name, description string, price decimal.Decimal, minStockLevel int, actor string) error {
	if strings.TrimSpace(name) == "" {
		return Validation("Invalid product", "name is required")
	}
	if minStockLevel < 0 {
		return Validation("Invalid product", "minimum stock level cannot be negative")
	}
	if !price.IsPositive() {
		return ErrNonPositivePrice
	}
	if p.discountPrice.Valid && p.discountPrice.Decimal.GreaterThanOrEqual(price) {
		return ErrDiscountNotBelowPrice
	}

	p.name = strings.TrimSpace(name)
	p.description = description
	p.price = price
	p.minStockLevel = minStockLevel
	p.touch(actor)
	return nil
}

// Delete soft-deletes the product
func (p *Product) Delete(actor string) {
	ts := now()
	p.deletedAt = &ts
	p.touch(actor)
}

func (p *Product) touch(actor string) {
	p.updatedAt = now()
	p.updatedBy = actor
}
