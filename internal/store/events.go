package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"commerce-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ApplyStockEvent applies mutate to every item of a stock event as one unit of
// work. The event id is recorded in processed_events within the same
// transaction; an event seen before is skipped and reported with applied=false.
// Any failing item rolls back every item.
func (s *Store) ApplyStockEvent(ctx context.Context, event models.BaseEvent, items []models.StockItem, mutate func(p *models.Product, quantity int) error) ([]*models.Product, bool, error) {
	var changed []*models.Product
	applied := false

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
			event.EventID, event.EventType)
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if n == 0 {
			return nil
		}

		// lock rows in a stable order so concurrent events cannot deadlock
		ordered := make([]models.StockItem, len(items))
		copy(ordered, items)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].ProductID.String() < ordered[j].ProductID.String()
		})

		locked := make(map[uuid.UUID]*models.Product)
		for _, item := range ordered {
			p, ok := locked[item.ProductID]
			if !ok {
				p, err = lockProduct(ctx, tx, item.ProductID)
				if err != nil {
					return err
				}
				locked[item.ProductID] = p
				changed = append(changed, p)
			}
			if err := mutate(p, item.Quantity); err != nil {
				return fmt.Errorf("product %s: %w", item.ProductID, err)
			}
		}

		for _, p := range changed {
			if err := saveProduct(ctx, tx, p); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return changed, applied, nil
}

func lockProduct(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Product, error) {
	var row productRow
	err := tx.GetContext(ctx, &row,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("Product not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %s: %w", id, err)
	}
	return row.toModel(), nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}
