package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// runSeed replaces a tenant's network master data in one transaction.
func runSeed(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	dataDir := c.String("data-dir")
	tenantID := c.Int64("tenant")

	nw, err := loadNetwork(
		filepath.Join(dataDir, "locations.csv"),
		filepath.Join(dataDir, "routes.csv"),
		filepath.Join(dataDir, "vehicles.csv"),
	)
	if err != nil {
		return err
	}

	log.Info().
		Int64("tenant_id", tenantID).
		Int("locations", len(nw.locations)).
		Int("routes", len(nw.routes)).
		Int("vehicles", len(nw.vehicles)).
		Msg("Starting network seeding...")

	err = db.WithTx(c.Context, func(tx *sql.Tx) error {
		return seedNetwork(c.Context, tx, tenantID, nw)
	})
	if err != nil {
		return err
	}

	log.Info().Int64("tenant_id", tenantID).Msg("Network seeding completed successfully!")
	return nil
}

func seedNetwork(ctx context.Context, tx *sql.Tx, tenantID int64, nw *network) error {
	for _, table := range []string{"route", "vehicle", "location"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE tenant_id = $1", table), tenantID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, l := range nw.locations {
		if err := insertLocation(ctx, tx, tenantID, l); err != nil {
			return err
		}
	}
	for _, r := range nw.routes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO route (tenant_id, route_id, source_location_id, destination_location_id, distance, traffic_factor)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, tenantID, r.RouteID, r.SourceLocationID, r.DestinationLocationID, r.Distance, r.TrafficFactor)
		if err != nil {
			return fmt.Errorf("failed to insert route %d: %w", r.RouteID, err)
		}
	}
	for _, v := range nw.vehicles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vehicle (tenant_id, vehicle_id, capacity, cost_per_trip)
			VALUES ($1, $2, $3, $4)
		`, tenantID, v.VehicleID, v.Capacity, v.CostPerTrip)
		if err != nil {
			return fmt.Errorf("failed to insert vehicle %d: %w", v.VehicleID, err)
		}
	}
	return nil
}

func insertLocation(ctx context.Context, tx *sql.Tx, tenantID int64, l domain.Location) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO location (tenant_id, location_id, location_name, demand, is_depot)
		VALUES ($1, $2, $3, $4, $5)
	`, tenantID, l.LocationID, l.LocationName, l.Demand, l.IsDepot)
	if err != nil {
		return fmt.Errorf("failed to insert location %q: %w", l.LocationName, err)
	}
	return nil
}
