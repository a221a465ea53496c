package service

import (
	"context"
	"fmt"
	"strings"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductService handles catalog and stock administration
type ProductService struct {
	products ProductStore
	cache    *ProductCache
	events   EventPublisher
	logger   *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(products ProductStore, cache *ProductCache, events EventPublisher) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" binding:"min=0"`
	MinStockLevel int             `json:"min_stock_level" binding:"min=0"`
}

// UpdateProductRequest represents a request to change product details
type UpdateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	MinStockLevel int             `json:"min_stock_level" binding:"min=0"`
}

// CreateProduct adds a Draft product to the catalog
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest, actor string) Result[*models.ProductSnapshot] {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	existing, err := s.products.GetProductBySKU(ctx, req.SKU)
	if err != nil {
		return fail[*models.ProductSnapshot](s.logger, "CreateProduct", err)
	}
	if existing != nil {
		return fail[*models.ProductSnapshot](s.logger, "CreateProduct",
			models.BusinessRule("Product with SKU '%s' already exists", strings.ToUpper(strings.TrimSpace(req.SKU))))
	}

	product, err := models.NewProduct(req.Name, req.Description, req.SKU, req.Price, req.StockQuantity, req.MinStockLevel, actor)
	if err != nil {
		return fail[*models.ProductSnapshot](s.logger, "CreateProduct", err)
	}
	return s.save(ctx, product, "CreateProduct", "Product created successfully")
}

// GetProduct retrieves a product through the cache
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) Result[*models.ProductSnapshot] {
	ctx, span := util.StartSpan(ctx, "ProductService.GetProduct")
	defer span.End()

	product, err := s.load(ctx, id)
	if err != nil {
		return fail[*models.ProductSnapshot](s.logger, "GetProduct", err)
	}
	snap := product.Snapshot()
	return ok(&snap, "")
}

// ListProducts returns one page of products
func (s *ProductService) ListProducts(ctx context.Context, page models.Page) Result[models.PagedResult[models.ProductSnapshot]] {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	products, total, err := s.products.ListProducts(ctx, page)
	if err != nil {
		return fail[models.PagedResult[models.ProductSnapshot]](s.logger, "ListProducts", err)
	}
	return ok(models.NewPagedResult(snapshotProducts(products), total, page), "")
}

// GetLowStockProducts lists products at or below their minimum stock level
func (s *ProductService) GetLowStockProducts(ctx context.Context) Result[[]models.ProductSnapshot] {
	ctx, span := util.StartSpan(ctx, "ProductService.GetLowStockProducts")
	defer span.End()

	products, err := s.products.ListLowStockProducts(ctx)
	if err != nil {
		return fail[[]models.ProductSnapshot](s.logger, "GetLowStockProducts", err)
	}
	return ok(snapshotProducts(products), "")
}

// UpdateProduct changes name, description, price and minimum stock level
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "UpdateProduct", "Product updated successfully", func(p *models.Product) error {
		return p.UpdateDetails(req.Name, req.Description, req.Price, req.MinStockLevel, actor)
	})
}

// UpdateStock sets the stock quantity
func (s *ProductService) UpdateStock(ctx context.Context, id uuid.UUID, quantity int, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "UpdateStock", "Stock updated successfully", func(p *models.Product) error {
		return p.UpdateStock(quantity, actor)
	})
}

// AddStock increases the stock quantity
func (s *ProductService) AddStock(ctx context.Context, id uuid.UUID, quantity int, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "AddStock", "Stock added successfully", func(p *models.Product) error {
		return p.AddStock(quantity, actor)
	})
}

// ReduceStock decreases the stock quantity
func (s *ProductService) ReduceStock(ctx context.Context, id uuid.UUID, quantity int, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "ReduceStock", "Stock reduced successfully", func(p *models.Product) error {
		return p.ReduceStock(quantity, actor)
	})
}

// ActivateProduct puts a product on sale
func (s *ProductService) ActivateProduct(ctx context.Context, id uuid.UUID, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "ActivateProduct", "Product activated successfully", func(p *models.Product) error {
		return p.Activate(actor)
	})
}

// DeactivateProduct takes a product off sale
func (s *ProductService) DeactivateProduct(ctx context.Context, id uuid.UUID, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "DeactivateProduct", "Product deactivated successfully", func(p *models.Product) error {
		p.Deactivate(actor)
		return nil
	})
}

// DiscontinueProduct retires a product from the catalog
func (s *ProductService) DiscontinueProduct(ctx context.Context, id uuid.UUID, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "DiscontinueProduct", "Product discontinued successfully", func(p *models.Product) error {
		p.Discontinue(actor)
		return nil
	})
}

// SetDiscount sets a discount price below the regular price
func (s *ProductService) SetDiscount(ctx context.Context, id uuid.UUID, price decimal.Decimal, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "SetDiscount", "Discount applied successfully", func(p *models.Product) error {
		return p.SetDiscount(price, actor)
	})
}

// RemoveDiscount clears the discount price
func (s *ProductService) RemoveDiscount(ctx context.Context, id uuid.UUID, actor string) Result[*models.ProductSnapshot] {
	return s.mutate(ctx, id, "RemoveDiscount", "Discount removed successfully", func(p *models.Product) error {
		p.RemoveDiscount(actor)
		return nil
	})
}

// DeleteProduct soft-deletes a product
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID, actor string) Result[bool] {
	res := s.mutate(ctx, id, "DeleteProduct", "Product deleted successfully", func(p *models.Product) error {
		p.Delete(actor)
		return nil
	})
	return Result[bool]{Success: res.Success, Data: res.Success, Message: res.Message, Errors: res.Errors, Kind: res.Kind}
}

func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, operation, message string, change func(p *models.Product) error) Result[*models.ProductSnapshot] {
	ctx, span := util.StartSpan(ctx, "ProductService."+operation)
	defer span.End()

	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return fail[*models.ProductSnapshot](s.logger, operation, err)
	}
	if product == nil {
		return fail[*models.ProductSnapshot](s.logger, operation, models.NotFound("Product not found: %s", id))
	}
	if err := change(product); err != nil {
		return fail[*models.ProductSnapshot](s.logger, operation, err)
	}
	return s.save(ctx, product, operation, message)
}

// save persists the product, drops its cache entry and announces the change
func (s *ProductService) save(ctx context.Context, product *models.Product, operation, message string) Result[*models.ProductSnapshot] {
	if err := s.products.SaveProduct(ctx, product); err != nil {
		return fail[*models.ProductSnapshot](s.logger, operation, fmt.Errorf("failed to save product: %w", err))
	}
	s.cache.Invalidate(ctx, product.ID())

	if err := s.events.PublishProductUpdated(ctx, models.NewProductUpdatedEvent(product)); err != nil {
		s.logger.Error("Failed to publish ProductUpdated event",
			zap.String("product_id", product.ID().String()),
			zap.Error(err))
	}

	s.logger.Info(message,
		zap.String("operation", operation),
		zap.String("product_id", product.ID().String()),
		zap.Int("stock_quantity", product.StockQuantity()),
		zap.String("status", string(product.Status())))

	snap := product.Snapshot()
	return ok(&snap, message)
}

func (s *ProductService) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, models.NotFound("Product not found: %s", id)
	}
	return product, nil
}

func snapshotProducts(products []*models.Product) []models.ProductSnapshot {
	snaps := make([]models.ProductSnapshot, 0, len(products))
	for _, p := range products {
		snaps = append(snaps, p.Snapshot())
	}
	return snaps
}
