package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type distributionOptimizationRepository struct {
	db *DB
}

func NewDistributionOptimizationRepository(db *DB) *distributionOptimizationRepository {
	return &distributionOptimizationRepository{db: db}
}

func (r *distributionOptimizationRepository) StoreAll(ctx context.Context, records []domain.DistributionOptimization) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range records {
			rec := &records[i]

			err := tx.QueryRowContext(ctx, `
				UPDATE distribution_optimization
				SET total_cost = $5, units = $6, updated_at = NOW()
				WHERE tenant_id = $1 AND vehicle_id = $2
				  AND start_location_name = $3 AND destination_location_name = $4
				RETURNING id, updated_at
			`, rec.TenantID, rec.VehicleID, rec.StartLocationName, rec.DestinationLocationName,
				rec.TotalCost, rec.Units,
			).Scan(&rec.ID, &rec.UpdatedAt)
			if err == nil {
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("error updating distribution optimization: %w", err)
			}

			err = tx.QueryRowContext(ctx, `
				INSERT INTO distribution_optimization
					(tenant_id, vehicle_id, start_location_name, destination_location_name, total_cost, units, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
				RETURNING id, updated_at
			`, rec.TenantID, rec.VehicleID, rec.StartLocationName, rec.DestinationLocationName,
				rec.TotalCost, rec.Units,
			).Scan(&rec.ID, &rec.UpdatedAt)
			if err != nil {
				return fmt.Errorf("error inserting distribution optimization: %w", err)
			}
		}
		return nil
	})
}

func (r *distributionOptimizationRepository) List(ctx context.Context, filter domain.DistributionOptimizationFilter) ([]domain.DistributionOptimization, error) {
	clause, args := buildDistributionOptimizationFilter(filter)
	query := `SELECT id, tenant_id, total_cost, vehicle_id, start_location_name, destination_location_name, units, updated_at
		FROM distribution_optimization` + clause

	records := make([]domain.DistributionOptimization, 0)
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("error listing distribution optimizations: %w", err)
	}

	return records, nil
}
