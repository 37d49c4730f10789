package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type masterDataRepository struct {
	db *DB
}

func NewMasterDataRepository(db *DB) *masterDataRepository {
	return &masterDataRepository{db: db}
}

// ListLocations returns rows in storage order; depot placement and sorting
// happen when the routing model is built.
func (r *masterDataRepository) ListLocations(ctx context.Context, tenantID int64) ([]domain.Location, error) {
	query := `
		SELECT location_id, location_name, demand, is_depot
		FROM location
		WHERE tenant_id = $1
		ORDER BY id
	`

	var locations []domain.Location
	if err := sqlx.SelectContext(ctx, r.db, &locations, query, tenantID); err != nil {
		return nil, fmt.Errorf("error listing locations: %w", err)
	}
	return locations, nil
}

func (r *masterDataRepository) ListRoutes(ctx context.Context, tenantID int64) ([]domain.Route, error) {
	query := `
		SELECT route_id, source_location_id, destination_location_id, distance, traffic_factor
		FROM route
		WHERE tenant_id = $1
		ORDER BY route_id
	`

	var routes []domain.Route
	if err := sqlx.SelectContext(ctx, r.db, &routes, query, tenantID); err != nil {
		return nil, fmt.Errorf("error listing routes: %w", err)
	}
	return routes, nil
}

func (r *masterDataRepository) ListVehicles(ctx context.Context, tenantID int64) ([]domain.Vehicle, error) {
	query := `
		SELECT vehicle_id, capacity, cost_per_trip
		FROM vehicle
		WHERE tenant_id = $1
		ORDER BY vehicle_id
	`

	var vehicles []domain.Vehicle
	if err := sqlx.SelectContext(ctx, r.db, &vehicles, query, tenantID); err != nil {
		return nil, fmt.Errorf("error listing vehicles: %w", err)
	}
	return vehicles, nil
}
