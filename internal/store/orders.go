package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"commerce-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, user_id, status, shipping_fee, total_discount, total_amount,
	grand_total, shipping_address, notes, paid_at, shipped_at, delivered_at, cancelled_at,
	created_at, updated_at, created_by, updated_by, deleted_at`

type orderRow struct {
	ID              uuid.UUID       `db:"id"`
	OrderNumber     string          `db:"order_number"`
	UserID          uuid.UUID       `db:"user_id"`
	Status          string          `db:"status"`
	ShippingFee     decimal.Decimal `db:"shipping_fee"`
	TotalDiscount   decimal.Decimal `db:"total_discount"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	GrandTotal      decimal.Decimal `db:"grand_total"`
	ShippingAddress string          `db:"shipping_address"`
	Notes           string          `db:"notes"`
	PaidAt          *time.Time      `db:"paid_at"`
	ShippedAt       *time.Time      `db:"shipped_at"`
	DeliveredAt     *time.Time      `db:"delivered_at"`
	CancelledAt     *time.Time      `db:"cancelled_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
	CreatedBy       string          `db:"created_by"`
	UpdatedBy       string          `db:"updated_by"`
	DeletedAt       *time.Time      `db:"deleted_at"`
}

type orderItemRow struct {
	ID          uuid.UUID       `db:"id"`
	OrderID     uuid.UUID       `db:"order_id"`
	ProductID   uuid.UUID       `db:"product_id"`
	ProductName string          `db:"product_name"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Quantity    int             `db:"quantity"`
	TotalPrice  decimal.Decimal `db:"total_price"`
}

func (r orderRow) toModel(items []orderItemRow) *models.Order {
	snaps := make([]models.OrderItemSnapshot, 0, len(items))
	for _, item := range items {
		snaps = append(snaps, models.OrderItemSnapshot{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		})
	}
	return models.RestoreOrder(models.OrderSnapshot{
		ID:              r.ID,
		OrderNumber:     r.OrderNumber,
		UserID:          r.UserID,
		Status:          models.OrderStatus(r.Status),
		Items:           snaps,
		ShippingFee:     r.ShippingFee,
		TotalDiscount:   r.TotalDiscount,
		TotalAmount:     r.TotalAmount,
		GrandTotal:      r.GrandTotal,
		ShippingAddress: r.ShippingAddress,
		Notes:           r.Notes,
		PaidAt:          r.PaidAt,
		ShippedAt:       r.ShippedAt,
		DeliveredAt:     r.DeliveredAt,
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		CreatedBy:       r.CreatedBy,
		UpdatedBy:       r.UpdatedBy,
		DeletedAt:       r.DeletedAt,
	})
}

// GetOrderByID retrieves a live order with its items, nil when absent
func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.getOrder(ctx, "id = $1", id)
}

// GetOrderByNumber retrieves a live order by its order number, nil when absent
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.getOrder(ctx, "order_number = $1", orderNumber)
}

func (s *Store) getOrder(ctx context.Context, where string, arg interface{}) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+orderColumns+" FROM orders WHERE "+where+" AND deleted_at IS NULL", arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders, err := s.attachItems(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

// GetOrdersByUserID retrieves the live orders of a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for user %s: %w", userID, err)
	}
	return s.attachItems(ctx, rows)
}

// ListOrders returns one page of live orders, newest first
func (s *Store) ListOrders(ctx context.Context, page models.Page) ([]*models.Order, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders WHERE deleted_at IS NULL"); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+orderColumns+" FROM orders WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders, err := s.attachItems(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Store) attachItems(ctx context.Context, rows []orderRow) ([]*models.Order, error) {
	if len(rows) == 0 {
		return []*models.Order{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID.String())
	}

	var items []orderItemRow
	err := s.db.SelectContext(ctx, &items, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, total_price
		FROM order_items
		WHERE order_id = ANY($1::uuid[]) AND deleted_at IS NULL
		ORDER BY position`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	byOrder := make(map[uuid.UUID][]orderItemRow, len(rows))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	orders := make([]*models.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toModel(byOrder[r.ID]))
	}
	return orders, nil
}

// SaveOrder writes the order and its items in one transaction. Items no longer
// on the order are removed; a soft-deleted order soft-deletes its items too.
func (s *Store) SaveOrder(ctx context.Context, o *models.Order) error {
	snap := o.Snapshot()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				shipping_fee = EXCLUDED.shipping_fee,
				total_discount = EXCLUDED.total_discount,
				total_amount = EXCLUDED.total_amount,
				grand_total = EXCLUDED.grand_total,
				shipping_address = EXCLUDED.shipping_address,
				notes = EXCLUDED.notes,
				paid_at = EXCLUDED.paid_at,
				shipped_at = EXCLUDED.shipped_at,
				delivered_at = EXCLUDED.delivered_at,
				cancelled_at = EXCLUDED.cancelled_at,
				updated_at = EXCLUDED.updated_at,
				updated_by = EXCLUDED.updated_by,
				deleted_at = EXCLUDED.deleted_at`,
			snap.ID, snap.OrderNumber, snap.UserID, string(snap.Status), snap.ShippingFee,
			snap.TotalDiscount, snap.TotalAmount, snap.GrandTotal, snap.ShippingAddress, snap.Notes,
			snap.PaidAt, snap.ShippedAt, snap.DeliveredAt, snap.CancelledAt, snap.CreatedAt,
			snap.UpdatedAt, snap.CreatedBy, snap.UpdatedBy, snap.DeletedAt)
		if err != nil {
			return fmt.Errorf("failed to save order %s: %w", snap.ID, err)
		}

		keep := make([]string, 0, len(snap.Items))
		for _, item := range snap.Items {
			keep = append(keep, item.ID.String())
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM order_items WHERE order_id = $1 AND NOT (id = ANY($2::uuid[]))",
			snap.ID, pq.Array(keep))
		if err != nil {
			return fmt.Errorf("failed to remove order items: %w", err)
		}

		for i, item := range snap.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity, total_price, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET
					quantity = EXCLUDED.quantity,
					total_price = EXCLUDED.total_price,
					position = EXCLUDED.position`,
				item.ID, snap.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.TotalPrice, i)
			if err != nil {
				return fmt.Errorf("failed to save order item %s: %w", item.ID, err)
			}
		}

		if snap.DeletedAt != nil {
			_, err = tx.ExecContext(ctx,
				"UPDATE order_items SET deleted_at = $2 WHERE order_id = $1 AND deleted_at IS NULL",
				snap.ID, snap.DeletedAt)
			if err != nil {
				return fmt.Errorf("failed to delete order items: %w", err)
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return models.Duplicate("Order number '%s' already exists", snap.OrderNumber)
	}
	return err
}
