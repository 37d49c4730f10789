package service

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/storage"
)

type fakeERP struct {
	record *domain.InventoryParamsRecord
	model  *optimizer.RoutingDataModel
	err    error
	calls  int
}

func (f *fakeERP) LatestInventoryParams(ctx context.Context, tenantID, skuNumber int64) (*domain.InventoryParamsRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.record
	rec.SKUNumber = skuNumber
	return &rec, nil
}

func (f *fakeERP) RoutingDataModel(ctx context.Context, tenantID int64) (*optimizer.RoutingDataModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type fakeForecaster struct {
	value float64
	err   error
	calls int
}

func (f *fakeForecaster) Forecast(ctx context.Context, tenantID, skuNumber int64) (*domain.Prediction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Prediction{ModelName: "fake", PredictedValue: f.value}, nil
}

type fakePredictionRepo struct {
	mu    sync.Mutex
	items []domain.Prediction
	lists int
}

func (r *fakePredictionRepo) ListBySKU(ctx context.Context, tenantID, skuNumber int64) ([]domain.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	var out []domain.Prediction
	for _, p := range r.items {
		if p.TenantID == tenantID && p.SKUNumber == skuNumber {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePredictionRepo) Create(ctx context.Context, prediction *domain.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prediction.ID = int64(len(r.items) + 1)
	r.items = append(r.items, *prediction)
	return nil
}

type fakeInventoryRepo struct {
	mu     sync.Mutex
	stored []domain.InventoryOptimization
	window time.Duration
	err    error
}

func (r *fakeInventoryRepo) Store(ctx context.Context, record *domain.InventoryOptimization, window time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.window = window
	record.ID = int64(len(r.stored) + 1)
	r.stored = append(r.stored, *record)
	return nil
}

func (r *fakeInventoryRepo) List(ctx context.Context, filter domain.InventoryOptimizationFilter) ([]domain.InventoryOptimization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InventoryOptimization
	for _, rec := range r.stored {
		if rec.TenantID == filter.TenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeDistributionRepo struct {
	stored [][]domain.DistributionOptimization
}

func (r *fakeDistributionRepo) StoreAll(ctx context.Context, records []domain.DistributionOptimization) error {
	r.stored = append(r.stored, records)
	return nil
}

func (r *fakeDistributionRepo) List(ctx context.Context, filter domain.DistributionOptimizationFilter) ([]domain.DistributionOptimization, error) {
	var out []domain.DistributionOptimization
	for _, batch := range r.stored {
		for _, rec := range batch {
			if rec.TenantID == filter.TenantID {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

type fakeMasterData struct {
	locations []domain.Location
	routes    []domain.Route
	vehicles  []domain.Vehicle
}

func (m *fakeMasterData) ListLocations(ctx context.Context, tenantID int64) ([]domain.Location, error) {
	return m.locations, nil
}

func (m *fakeMasterData) ListRoutes(ctx context.Context, tenantID int64) ([]domain.Route, error) {
	return m.routes, nil
}

func (m *fakeMasterData) ListVehicles(ctx context.Context, tenantID int64) ([]domain.Vehicle, error) {
	return m.vehicles, nil
}

type fakeStorage struct {
	objects map[string][]byte
	err     error
}

func (s *fakeStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range s.objects {
		out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

func (s *fakeStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if s.err != nil {
		return s.err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return nil
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }
func intp(v int) *int        { return &v }

func erpRecord() *domain.InventoryParamsRecord {
	return &domain.InventoryParamsRecord{
		ID:                   42,
		StockLevel:           f64(120),
		TimePeriodT:          f64(1),
		FixedOrderCostK:      f64(50),
		PenaltyCostP:         f64(20),
		HoldingCostRateI:     f64(0.02),
		UnitCostC:            f64(30),
		TruckloadCapacityFTL: f64(40),
		TransportationCostTR: f64(100),
	}
}
