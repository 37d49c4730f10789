package main

import (
	"fmt"
	"os"

	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/erp"
	"github.com/andresuchdata/replenish/backend-go/internal/pipeline"
	"github.com/andresuchdata/replenish/backend-go/internal/report"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func batchFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		newTenantFlag(),
		&cli.Int64SliceFlag{
			Name:     "sku",
			Usage:    "SKU number to optimise; repeat or comma-separate",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "SKUs optimised at once; defaults to OPTIMIZER_BATCH_CONCURRENCY",
			EnvVars: []string{"BATCH_CONCURRENCY"},
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write per-SKU results as CSV to this path",
		},
	}
}

func runBatch(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if !cfg.ERP.Enabled {
		return fmt.Errorf("batch optimisation needs ERP parameters: set ERP_ENABLED and ERP_BASE_URL")
	}
	erpClient, err := erp.NewClient(c.Context, cfg.ERP)
	if err != nil {
		return fmt.Errorf("failed to initialise ERP client: %w", err)
	}

	demandCache, err := cache.NewDemandCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("demand cache unavailable, continuing without it")
		demandCache = cache.NewNoopDemandCache()
	}

	svc := service.NewInventoryService(service.InventoryServiceDeps{
		ERP:           erpClient,
		Forecaster:    erpClient,
		Predictions:   postgres.NewPredictionRepository(db),
		Optimizations: postgres.NewInventoryOptimizationRepository(db),
		Cache:         demandCache,
	}, cfg.Optimizer)

	pcfg := pipeline.DefaultPipelineConfig()
	if cfg.Optimizer.BatchConcurrency > 0 {
		pcfg.WorkerCount = cfg.Optimizer.BatchConcurrency
	}
	if n := c.Int("concurrency"); n > 0 {
		pcfg.WorkerCount = n
	}

	run, err := pipeline.NewRunner(svc, pcfg).Run(c.Context, c.Int64("tenant"), c.Int64Slice("sku"))
	if err != nil {
		return err
	}

	if path := c.String("report"); path != "" {
		if err := writeBatchReport(path, run); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("batch report written")
	}

	if err := writeJSON(c.App.Writer, run); err != nil {
		return err
	}
	if run.Failed() {
		return cli.Exit("one or more SKUs failed", 2)
	}
	return nil
}

func writeBatchReport(path string, run *pipeline.BatchRun) error {
	rows := make([]report.InventoryRow, 0, len(run.Items))
	for _, item := range run.Items {
		row := report.InventoryRow{SKUNumber: item.SKUNumber, Err: item.Error}
		if item.Response != nil {
			row.Result = item.Response.Result
		}
		rows = append(rows, row)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer file.Close()

	if err := report.WriteInventoryCSV(file, rows); err != nil {
		return err
	}
	return file.Close()
}
