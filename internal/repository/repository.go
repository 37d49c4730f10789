// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type PredictionRepository interface {
	ListBySKU(ctx context.Context, tenantID, skuNumber int64) ([]domain.Prediction, error)
	Create(ctx context.Context, prediction *domain.Prediction) error
}

type InventoryOptimizationRepository interface {
	// Store updates the latest row for the same (inventory_record_id, tenant,
	// sku) when it was touched within window, otherwise inserts a new row.
	Store(ctx context.Context, record *domain.InventoryOptimization, window time.Duration) error
	List(ctx context.Context, filter domain.InventoryOptimizationFilter) ([]domain.InventoryOptimization, error)
}

type DistributionOptimizationRepository interface {
	// StoreAll upserts every leg keyed by (tenant, vehicle, start, destination)
	// in a single transaction.
	StoreAll(ctx context.Context, records []domain.DistributionOptimization) error
	List(ctx context.Context, filter domain.DistributionOptimizationFilter) ([]domain.DistributionOptimization, error)
}

type MasterDataRepository interface {
	ListLocations(ctx context.Context, tenantID int64) ([]domain.Location, error)
	ListRoutes(ctx context.Context, tenantID int64) ([]domain.Route, error)
	ListVehicles(ctx context.Context, tenantID int64) ([]domain.Vehicle, error)
}
