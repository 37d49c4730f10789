package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/erp"
	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// InventoryParamsSource supplies the ERP's cost parameters for a SKU.
type InventoryParamsSource interface {
	LatestInventoryParams(ctx context.Context, tenantID, skuNumber int64) (*domain.InventoryParamsRecord, error)
}

// Forecaster produces a fresh demand prediction when none is stored.
type Forecaster interface {
	Forecast(ctx context.Context, tenantID, skuNumber int64) (*domain.Prediction, error)
}

type InventoryServiceDeps struct {
	ERP           InventoryParamsSource
	Forecaster    Forecaster
	Predictions   repository.PredictionRepository
	Optimizations repository.InventoryOptimizationRepository
	Cache         cache.DemandCache
	Metrics       *metrics.Metrics
}

type InventoryService struct {
	erp           InventoryParamsSource
	forecaster    Forecaster
	predictions   repository.PredictionRepository
	optimizations repository.InventoryOptimizationRepository
	cache         cache.DemandCache
	metrics       *metrics.Metrics
	optimizer     *optimizer.InventoryOptimizer
	timeout       time.Duration
	recentWindow  time.Duration
}

func NewInventoryService(deps InventoryServiceDeps, cfg config.OptimizerConfig) *InventoryService {
	cacheImpl := deps.Cache
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDemandCache()
	}
	window := cfg.RecentWindow()
	if window <= 0 {
		window = 10 * time.Hour
	}
	return &InventoryService{
		erp:           deps.ERP,
		forecaster:    deps.Forecaster,
		predictions:   deps.Predictions,
		optimizations: deps.Optimizations,
		cache:         cacheImpl,
		metrics:       deps.Metrics,
		optimizer:     &optimizer.InventoryOptimizer{MaxEvaluations: cfg.MaxEvaluations},
		timeout:       cfg.Timeout(),
		recentWindow:  window,
	}
}

type InventoryOptimizationRequest struct {
	TenantID  int64
	SKUNumber int64
	// Params, when set, are used verbatim and the run is marked custom.
	Params *optimizer.InventoryParams
}

type InventoryOptimizationResponse struct {
	InventoryParams       optimizer.InventoryParams     `json:"inventory_params"`
	InventoryOptimization *domain.InventoryOptimization `json:"inventory_optimization"`
	Result                *optimizer.InventoryResult    `json:"result"`
}

// RunInventoryOptimization resolves parameters, solves for (Q, R), and stores
// the outcome.
func (s *InventoryService) RunInventoryOptimization(ctx context.Context, req InventoryOptimizationRequest) (*InventoryOptimizationResponse, error) {
	var (
		params   optimizer.InventoryParams
		recordID *int64
	)

	if req.Params != nil {
		params = *req.Params
		params.Source = optimizer.SourceCustom
	} else {
		record, err := s.GetInventoryParams(ctx, req.TenantID, req.SKUNumber)
		if err != nil {
			return nil, err
		}
		params, err = paramsFromRecord(record)
		if err != nil {
			return nil, err
		}
		recordID = &record.ID
	}

	log.Info().
		Int64("tenant_id", req.TenantID).
		Int64("sku_number", req.SKUNumber).
		Str("source", string(params.Source)).
		Float64("lambda", params.Lambda).
		Float64("sigma", params.Sigma).
		Msg("inventory: optimizing reorder policy")

	start := time.Now()
	result, err := solveWithTimeout(ctx, s.timeout, func(ctx context.Context) (*optimizer.InventoryResult, error) {
		return s.optimizer.Optimize(ctx, params)
	})
	cost := 0.0
	if result != nil {
		cost = result.TotalCost
	}
	s.metrics.RecordOptimization(metrics.KindInventory, outcomeFor(err), time.Since(start), cost)
	if err != nil {
		log.Warn().Err(err).Int64("sku_number", req.SKUNumber).Msg("inventory: optimization failed")
		return nil, err
	}

	record := &domain.InventoryOptimization{
		TenantID:                req.TenantID,
		SKUNumber:               req.SKUNumber,
		InventoryRecordID:       recordID,
		OrderQuantityQ:          result.OptimizedValues.Q,
		ReorderPointR:           result.OptimizedValues.R,
		HoldingCost:             result.CostDetails.HoldingCost,
		SetupTransportationCost: result.CostDetails.SetupAndTransportationCost,
		StockoutCost:            result.CostDetails.StockoutCost,
		TotalCost:               result.TotalCost,
		OrderFrequency:          result.OrderFrequency(),
		CycleTime:               result.CycleTime(),
		IsCustom:                params.Source == optimizer.SourceCustom,
	}
	if err := s.optimizations.Store(ctx, record, s.recentWindow); err != nil {
		return nil, fmt.Errorf("store inventory optimization: %w", err)
	}

	log.Info().
		Int64("sku_number", req.SKUNumber).
		Float64("Q", record.OrderQuantityQ).
		Float64("R", record.ReorderPointR).
		Float64("total_cost", record.TotalCost).
		Msg("inventory: optimization stored")

	return &InventoryOptimizationResponse{
		InventoryParams:       params,
		InventoryOptimization: record,
		Result:                result,
	}, nil
}

// GetInventoryParams returns the ERP parameters for a SKU augmented with the
// estimated demand rate and deviation.
func (s *InventoryService) GetInventoryParams(ctx context.Context, tenantID, skuNumber int64) (*domain.InventoryParamsRecord, error) {
	if s.erp == nil {
		return nil, ErrERPUnavailable
	}

	record, err := s.erp.LatestInventoryParams(ctx, tenantID, skuNumber)
	if err != nil {
		return nil, err
	}

	demand, err := s.DemandParameters(ctx, tenantID, skuNumber)
	if err != nil {
		return nil, err
	}
	record.Lambda = &demand.Lambda
	record.Sigma = &demand.Sigma

	return record, nil
}

// DemandParameters estimates (lambda, sigma) from stored predictions, asking
// the forecaster for one when none exist.
func (s *InventoryService) DemandParameters(ctx context.Context, tenantID, skuNumber int64) (optimizer.DemandParameters, error) {
	if params, ok, err := s.cache.Get(ctx, tenantID, skuNumber); err == nil && ok {
		s.metrics.RecordCacheLookup(true)
		return params, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get demand params failed")
	}
	s.metrics.RecordCacheLookup(false)

	params, ok, err := s.estimate(ctx, tenantID, skuNumber)
	if err != nil {
		return optimizer.DemandParameters{}, err
	}

	if !ok {
		if s.forecaster == nil {
			return optimizer.DemandParameters{}, ErrNoDemandData
		}
		log.Info().Int64("sku_number", skuNumber).Msg("inventory: no predictions stored, running inference")

		prediction, err := s.forecaster.Forecast(ctx, tenantID, skuNumber)
		if err != nil {
			return optimizer.DemandParameters{}, fmt.Errorf("%w: inference failed: %v", ErrNoDemandData, err)
		}
		prediction.TenantID = tenantID
		prediction.SKUNumber = skuNumber
		if err := s.predictions.Create(ctx, prediction); err != nil {
			return optimizer.DemandParameters{}, fmt.Errorf("store inferred prediction: %w", err)
		}

		params, ok, err = s.estimate(ctx, tenantID, skuNumber)
		if err != nil {
			return optimizer.DemandParameters{}, err
		}
		if !ok {
			return optimizer.DemandParameters{}, ErrNoDemandData
		}
	}

	if err := s.cache.Set(ctx, tenantID, skuNumber, params); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set demand params failed")
	}

	return params, nil
}

func (s *InventoryService) estimate(ctx context.Context, tenantID, skuNumber int64) (optimizer.DemandParameters, bool, error) {
	predictions, err := s.predictions.ListBySKU(ctx, tenantID, skuNumber)
	if err != nil {
		return optimizer.DemandParameters{}, false, err
	}

	records := make([]optimizer.PredictionRecord, len(predictions))
	for i, p := range predictions {
		records[i] = optimizer.PredictionRecord{PredictedValue: p.PredictedValue}
	}
	params, ok := optimizer.EstimateDemandParameters(records)
	return params, ok, nil
}

// RecordPrediction stores a point forecast and drops the cached demand
// parameters it affects.
func (s *InventoryService) RecordPrediction(ctx context.Context, prediction *domain.Prediction) error {
	if math.IsNaN(prediction.PredictedValue) || math.IsInf(prediction.PredictedValue, 0) {
		return &optimizer.InvalidParameterError{Param: "predicted_value", Reason: "must be finite"}
	}
	if prediction.SKUNumber <= 0 {
		return &optimizer.InvalidParameterError{Param: "sku_number", Reason: "must be positive"}
	}

	if err := s.predictions.Create(ctx, prediction); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, prediction.TenantID, prediction.SKUNumber); err != nil {
		log.Warn().Err(err).Msg("inventory: cache invalidate demand params failed")
	}
	return nil
}

func (s *InventoryService) ListOptimizations(ctx context.Context, filter domain.InventoryOptimizationFilter) ([]domain.InventoryOptimization, error) {
	return s.optimizations.List(ctx, filter)
}

// paramsFromRecord requires every cost field; lambda and sigma must already
// be filled in.
func paramsFromRecord(record *domain.InventoryParamsRecord) (optimizer.InventoryParams, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"lambda_", record.Lambda},
		{"sigma", record.Sigma},
		{"time_period_t", record.TimePeriodT},
		{"fixed_order_cost_k", record.FixedOrderCostK},
		{"penalty_cost_p", record.PenaltyCostP},
		{"holding_cost_rate_i", record.HoldingCostRateI},
		{"unit_cost_c", record.UnitCostC},
		{"truckload_capacity_ftl", record.TruckloadCapacityFTL},
		{"transportation_cost_tr", record.TransportationCostTR},
	}
	for _, f := range fields {
		if f.value == nil {
			return optimizer.InventoryParams{}, &optimizer.InvalidParameterError{Param: f.name, Reason: "missing from ERP record"}
		}
	}

	return optimizer.InventoryParams{
		Lambda:     *record.Lambda,
		Sigma:      *record.Sigma,
		StockLevel: record.StockLevel,
		T:          *record.TimePeriodT,
		K:          *record.FixedOrderCostK,
		P:          *record.PenaltyCostP,
		I:          *record.HoldingCostRateI,
		C:          *record.UnitCostC,
		FTL:        *record.TruckloadCapacityFTL,
		TR:         *record.TransportationCostTR,
		Source:     optimizer.SourceERP,
	}, nil
}

// IsNotFound reports whether err means the requested data does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoDemandData) || errors.Is(err, erp.ErrNoData) || errors.Is(err, repository.ErrNotFound)
}
