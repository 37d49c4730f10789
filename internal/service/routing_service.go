package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/report"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	"github.com/andresuchdata/replenish/backend-go/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const distributionReportKind = "distribution"

// RoutingDataSource yields the routing model for a tenant.
type RoutingDataSource interface {
	LoadRoutingDataModel(ctx context.Context, tenantID int64) (*optimizer.RoutingDataModel, error)
}

// MasterDataSource builds the model from locally stored master data.
type MasterDataSource struct {
	Repo repository.MasterDataRepository
}

func (m MasterDataSource) LoadRoutingDataModel(ctx context.Context, tenantID int64) (*optimizer.RoutingDataModel, error) {
	locations, err := m.Repo.ListLocations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	routes, err := m.Repo.ListRoutes(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	vehicles, err := m.Repo.ListVehicles(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return optimizer.BuildRoutingDataModel(ToOptimizerLocations(locations), ToOptimizerRoutes(routes), ToOptimizerVehicles(vehicles))
}

// ERPRoutingSource takes the model the ERP has already assembled.
type ERPRoutingSource struct {
	Client interface {
		RoutingDataModel(ctx context.Context, tenantID int64) (*optimizer.RoutingDataModel, error)
	}
}

func (e ERPRoutingSource) LoadRoutingDataModel(ctx context.Context, tenantID int64) (*optimizer.RoutingDataModel, error) {
	if e.Client == nil {
		return nil, ErrERPUnavailable
	}
	return e.Client.RoutingDataModel(ctx, tenantID)
}

type RoutingServiceDeps struct {
	Source  RoutingDataSource
	Repo    repository.DistributionOptimizationRepository
	Reports storage.ObjectStorage
	Metrics *metrics.Metrics
}

type RoutingService struct {
	source    RoutingDataSource
	repo      repository.DistributionOptimizationRepository
	reports   storage.ObjectStorage
	metrics   *metrics.Metrics
	optimizer *optimizer.RoutingOptimizer
	timeout   time.Duration
	now       func() time.Time
}

func NewRoutingService(deps RoutingServiceDeps, cfg config.OptimizerConfig) *RoutingService {
	return &RoutingService{
		source:    deps.Source,
		repo:      deps.Repo,
		reports:   deps.Reports,
		metrics:   deps.Metrics,
		optimizer: &optimizer.RoutingOptimizer{MaxNodes: cfg.MaxNodes, MaxVariables: cfg.MaxVariables},
		timeout:   cfg.Timeout(),
		now:       time.Now,
	}
}

type DistributionOptimizationResponse struct {
	TotalCost float64                           `json:"total_cost"`
	Results   []optimizer.RouteLeg              `json:"results"`
	Records   []domain.DistributionOptimization `json:"records"`
	ReportKey string                            `json:"report_key,omitempty"`
}

// RunDistributionOptimization loads the tenant's network, solves the routing
// program and stores one record per leg. An infeasible program stores
// nothing and returns optimizer.ErrInfeasible.
func (s *RoutingService) RunDistributionOptimization(ctx context.Context, tenantID int64) (*DistributionOptimizationResponse, error) {
	model, err := s.source.LoadRoutingDataModel(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load routing data: %w", err)
	}

	log.Info().
		Int64("tenant_id", tenantID).
		Int("locations", len(model.Demands)).
		Int("vehicles", model.NumVehicles).
		Msg("routing: optimizing distribution")

	start := time.Now()
	result, err := solveWithTimeout(ctx, s.timeout, func(ctx context.Context) (*optimizer.RoutingResult, error) {
		return s.optimizer.Optimize(ctx, model)
	})
	cost := 0.0
	if result != nil {
		cost = result.TotalCost
	}
	s.metrics.RecordOptimization(metrics.KindRouting, outcomeFor(err), time.Since(start), cost)
	if err != nil {
		if errors.Is(err, optimizer.ErrInfeasible) {
			log.Warn().Int64("tenant_id", tenantID).Msg("routing: no feasible plan, nothing stored")
		}
		return nil, err
	}

	records := ToDistributionRecords(tenantID, model, result)
	if err := s.repo.StoreAll(ctx, records); err != nil {
		return nil, fmt.Errorf("store distribution optimization: %w", err)
	}

	resp := &DistributionOptimizationResponse{
		TotalCost: result.TotalCost,
		Results:   result.Results,
		Records:   records,
	}

	if s.reports != nil {
		key, err := s.uploadReport(ctx, tenantID, model, result)
		if err != nil {
			log.Warn().Err(err).Int64("tenant_id", tenantID).Msg("routing: report upload failed")
		} else {
			resp.ReportKey = key
		}
	}

	log.Info().
		Int64("tenant_id", tenantID).
		Float64("total_cost", result.TotalCost).
		Int("legs", len(result.Results)).
		Msg("routing: plan stored")

	return resp, nil
}

func (s *RoutingService) uploadReport(ctx context.Context, tenantID int64, model *optimizer.RoutingDataModel, result *optimizer.RoutingResult) (string, error) {
	var buf bytes.Buffer
	if err := report.NewPlan(model, result).WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	key := storage.ReportKey(distributionReportKind, tenantID, s.now(), uuid.NewString(), "csv")
	if err := s.reports.UploadObject(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RoutingService) ListDistributionOptimizations(ctx context.Context, filter domain.DistributionOptimizationFilter) ([]domain.DistributionOptimization, error) {
	return s.repo.List(ctx, filter)
}

// ListReports returns the stored plan reports of a tenant.
func (s *RoutingService) ListReports(ctx context.Context, tenantID int64) ([]storage.ObjectInfo, error) {
	if s.reports == nil {
		return []storage.ObjectInfo{}, nil
	}
	return s.reports.ListObjects(ctx, storage.TenantPrefix(distributionReportKind, tenantID))
}

// ToDistributionRecords resolves leg endpoints by matrix index. Every record
// carries the plan's total cost.
func ToDistributionRecords(tenantID int64, model *optimizer.RoutingDataModel, result *optimizer.RoutingResult) []domain.DistributionOptimization {
	records := make([]domain.DistributionOptimization, 0, len(result.Results))
	for _, leg := range result.Results {
		records = append(records, domain.DistributionOptimization{
			TenantID:                tenantID,
			TotalCost:               result.TotalCost,
			VehicleID:               leg.Vehicle,
			StartLocationName:       model.LocationName(leg.From),
			DestinationLocationName: model.LocationName(leg.To),
			Units:                   leg.Units,
		})
	}
	return records
}

func ToOptimizerLocations(locations []domain.Location) []optimizer.Location {
	out := make([]optimizer.Location, len(locations))
	for i, l := range locations {
		out[i] = optimizer.Location{ID: l.LocationID, Name: l.LocationName, Demand: l.Demand, IsDepot: l.IsDepot}
	}
	return out
}

func ToOptimizerRoutes(routes []domain.Route) []optimizer.Route {
	out := make([]optimizer.Route, len(routes))
	for i, r := range routes {
		out[i] = optimizer.Route{
			SourceLocationID:      r.SourceLocationID,
			DestinationLocationID: r.DestinationLocationID,
			Distance:              r.Distance,
			TrafficFactor:         r.TrafficFactor,
		}
	}
	return out
}

// ToOptimizerVehicles treats a missing capacity or cost as zero.
func ToOptimizerVehicles(vehicles []domain.Vehicle) []optimizer.Vehicle {
	out := make([]optimizer.Vehicle, len(vehicles))
	for i, v := range vehicles {
		if v.Capacity != nil {
			out[i].Capacity = *v.Capacity
		}
		if v.CostPerTrip != nil {
			out[i].CostPerTrip = *v.CostPerTrip
		}
	}
	return out
}
