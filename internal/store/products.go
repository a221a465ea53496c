package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"commerce-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, sku, price, discount_price, stock_quantity,
	min_stock_level, status, created_at, updated_at, created_by, updated_by, deleted_at`

type productRow struct {
	ID            uuid.UUID           `db:"id"`
	Name          string              `db:"name"`
	Description   string              `db:"description"`
	SKU           string              `db:"sku"`
	Price         decimal.Decimal     `db:"price"`
	DiscountPrice decimal.NullDecimal `db:"discount_price"`
	StockQuantity int                 `db:"stock_quantity"`
	MinStockLevel int                 `db:"min_stock_level"`
	Status        string              `db:"status"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at"`
	CreatedBy     string              `db:"created_by"`
	UpdatedBy     string              `db:"updated_by"`
	DeletedAt     *time.Time          `db:"deleted_at"`
}

func (r productRow) toModel() *models.Product {
	return models.RestoreProduct(models.ProductSnapshot{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		SKU:           r.SKU,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		StockQuantity: r.StockQuantity,
		MinStockLevel: r.MinStockLevel,
		Status:        models.ProductStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		CreatedBy:     r.CreatedBy,
		UpdatedBy:     r.UpdatedBy,
		DeletedAt:     r.DeletedAt,
	})
}

func rowsToProducts(rows []productRow) []*models.Product {
	products := make([]*models.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toModel())
	}
	return products
}

// GetProductByID retrieves a live product by ID, nil when absent
func (s *Store) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND deleted_at IS NULL", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return row.toModel(), nil
}

// GetProductBySKU retrieves a live product by SKU, nil when absent
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+productColumns+" FROM products WHERE sku = $1 AND deleted_at IS NULL",
		strings.ToUpper(strings.TrimSpace(sku)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by sku: %w", err)
	}
	return row.toModel(), nil
}

// ListProducts returns one page of live products ordered by name
func (s *Store) ListProducts(ctx context.Context, page models.Page) ([]*models.Product, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products WHERE deleted_at IS NULL"); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var rows []productRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+productColumns+" FROM products WHERE deleted_at IS NULL ORDER BY name, id LIMIT $1 OFFSET $2",
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return rowsToProducts(rows), total, nil
}

// ListLowStockProducts returns live products whose stock is at or below their minimum level
func (s *Store) ListLowStockProducts(ctx context.Context) ([]*models.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+productColumns+` FROM products
		WHERE deleted_at IS NULL AND stock_quantity <= min_stock_level
		ORDER BY stock_quantity, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return rowsToProducts(rows), nil
}

// SaveProduct inserts or updates the product. A SKU already used by another
// live product is reported as a Duplicate error.
func (s *Store) SaveProduct(ctx context.Context, p *models.Product) error {
	err := saveProduct(ctx, s.db, p)
	if isUniqueViolation(err) {
		return models.Duplicate("Product with SKU '%s' already exists", p.SKU())
	}
	return err
}

func saveProduct(ctx context.Context, db sqlx.ExecerContext, p *models.Product) error {
	snap := p.Snapshot()
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			sku = EXCLUDED.sku,
			price = EXCLUDED.price,
			discount_price = EXCLUDED.discount_price,
			stock_quantity = EXCLUDED.stock_quantity,
			min_stock_level = EXCLUDED.min_stock_level,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by,
			deleted_at = EXCLUDED.deleted_at`,
		snap.ID, snap.Name, snap.Description, snap.SKU, snap.Price, snap.DiscountPrice,
		snap.StockQuantity, snap.MinStockLevel, string(snap.Status), snap.CreatedAt,
		snap.UpdatedAt, snap.CreatedBy, snap.UpdatedBy, snap.DeletedAt)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", snap.ID, err)
	}
	return nil
}
