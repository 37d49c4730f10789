package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

const inventoryOptimizationColumns = `id, tenant_id, sku_number, inventory_record_id, order_quantity_q, reorder_point_r,
		holding_cost, setup_transportation_cost, stockout_cost, total_cost, order_frequency, cycle_time,
		is_custom, updated_at`

type inventoryOptimizationRepository struct {
	db  *DB
	now func() time.Time
}

func NewInventoryOptimizationRepository(db *DB) *inventoryOptimizationRepository {
	return &inventoryOptimizationRepository{db: db, now: time.Now}
}

func (r *inventoryOptimizationRepository) Store(ctx context.Context, rec *domain.InventoryOptimization, window time.Duration) error {
	threshold := r.now().Add(-window)

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var existingID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id
			FROM inventory_optimization
			WHERE inventory_record_id IS NOT DISTINCT FROM $1
			  AND tenant_id = $2
			  AND sku_number = $3
			  AND updated_at >= $4
			ORDER BY updated_at DESC
			LIMIT 1
			FOR UPDATE
		`, rec.InventoryRecordID, rec.TenantID, rec.SKUNumber, threshold).Scan(&existingID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			err = tx.QueryRowContext(ctx, `
				INSERT INTO inventory_optimization
					(tenant_id, sku_number, inventory_record_id, order_quantity_q, reorder_point_r,
					 holding_cost, setup_transportation_cost, stockout_cost, total_cost,
					 order_frequency, cycle_time, is_custom, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
				RETURNING id, updated_at
			`, rec.TenantID, rec.SKUNumber, rec.InventoryRecordID, rec.OrderQuantityQ, rec.ReorderPointR,
				rec.HoldingCost, rec.SetupTransportationCost, rec.StockoutCost, rec.TotalCost,
				rec.OrderFrequency, rec.CycleTime, rec.IsCustom,
			).Scan(&rec.ID, &rec.UpdatedAt)
			if err != nil {
				return fmt.Errorf("error inserting inventory optimization: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("error looking up recent inventory optimization: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE inventory_optimization
			SET order_quantity_q = $2, reorder_point_r = $3, holding_cost = $4,
			    setup_transportation_cost = $5, stockout_cost = $6, total_cost = $7,
			    order_frequency = $8, cycle_time = $9, is_custom = $10, updated_at = NOW()
			WHERE id = $1
			RETURNING id, updated_at
		`, existingID, rec.OrderQuantityQ, rec.ReorderPointR, rec.HoldingCost,
			rec.SetupTransportationCost, rec.StockoutCost, rec.TotalCost,
			rec.OrderFrequency, rec.CycleTime, rec.IsCustom,
		).Scan(&rec.ID, &rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error updating inventory optimization %d: %w", existingID, err)
		}
		return nil
	})
}

func (r *inventoryOptimizationRepository) List(ctx context.Context, filter domain.InventoryOptimizationFilter) ([]domain.InventoryOptimization, error) {
	clause, args := buildInventoryOptimizationFilter(filter)
	query := "SELECT " + inventoryOptimizationColumns + " FROM inventory_optimization" + clause

	records := make([]domain.InventoryOptimization, 0)
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("error listing inventory optimizations: %w", err)
	}

	return records, nil
}
