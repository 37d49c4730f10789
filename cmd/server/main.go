// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/api"
	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/erp"
	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/pipeline"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/andresuchdata/replenish/backend-go/internal/storage"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	demandCache, err := cache.NewDemandCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Demand cache unavailable, continuing without it")
		demandCache = cache.NewNoopDemandCache()
	}

	m := metrics.New()

	inventoryDeps := service.InventoryServiceDeps{
		Predictions:   postgres.NewPredictionRepository(db),
		Optimizations: postgres.NewInventoryOptimizationRepository(db),
		Cache:         demandCache,
		Metrics:       m,
	}
	var routingSource service.RoutingDataSource = service.MasterDataSource{Repo: postgres.NewMasterDataRepository(db)}

	if cfg.ERP.Enabled {
		erpClient, err := erp.NewClient(ctx, cfg.ERP)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize ERP client")
		}
		inventoryDeps.ERP = erpClient
		inventoryDeps.Forecaster = erpClient
		if cfg.Optimizer.RoutingDataFromERP {
			routingSource = service.ERPRoutingSource{Client: erpClient}
		}
	}

	routingDeps := service.RoutingServiceDeps{
		Source:  routingSource,
		Repo:    postgres.NewDistributionOptimizationRepository(db),
		Metrics: m,
	}
	if cfg.Storage.Enabled {
		minioClient, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		if err := minioClient.EnsureBucket(ctx); err != nil {
			logger.Log.Warn().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("Could not ensure report bucket")
		}
		routingDeps.Reports = minioClient
	}

	// Initialize services
	inventoryService := service.NewInventoryService(inventoryDeps, cfg.Optimizer)
	routingService := service.NewRoutingService(routingDeps, cfg.Optimizer)

	batchCfg := pipeline.DefaultPipelineConfig()
	if cfg.Optimizer.BatchConcurrency > 0 {
		batchCfg.WorkerCount = cfg.Optimizer.BatchConcurrency
	}

	services := &api.Services{
		InventoryService:   inventoryService,
		RoutingService:     routingService,
		BatchRunner:        pipeline.NewRunner(inventoryService, batchCfg),
		InventoryOptimizer: &optimizer.InventoryOptimizer{MaxEvaluations: cfg.Optimizer.MaxEvaluations},
		RoutingOptimizer:   &optimizer.RoutingOptimizer{MaxNodes: cfg.Optimizer.MaxNodes, MaxVariables: cfg.Optimizer.MaxVariables},
		OptimizerTimeout:   cfg.Optimizer.Timeout(),
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins, m)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
