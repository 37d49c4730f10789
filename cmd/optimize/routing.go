package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/report"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func routingCommand() *cli.Command {
	return &cli.Command{
		Name:  "routing",
		Usage: "Plan depot-to-store deliveries from CSV network files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "locations", Usage: "locations CSV", Value: "./data/seeds/network/locations.csv"},
			&cli.StringFlag{Name: "routes", Usage: "routes CSV", Value: "./data/seeds/network/routes.csv"},
			&cli.StringFlag{Name: "vehicles", Usage: "vehicles CSV", Value: "./data/seeds/network/vehicles.csv"},
			&cli.IntFlag{Name: "max-nodes", Usage: "Branch-and-bound node budget", Value: 5000},
			&cli.IntFlag{Name: "max-variables", Usage: "Largest flow program accepted", Value: 4000},
			&cli.DurationFlag{Name: "timeout", Usage: "Stop the search after this long (0 for no limit)"},
			&cli.StringFlag{Name: "report", Usage: "Write the priced plan as CSV to this path"},
		},
		Action: func(c *cli.Context) error {
			nw, err := loadNetwork(c.String("locations"), c.String("routes"), c.String("vehicles"))
			if err != nil {
				return err
			}

			model, err := optimizer.BuildRoutingDataModel(
				service.ToOptimizerLocations(nw.locations),
				service.ToOptimizerRoutes(nw.routes),
				service.ToOptimizerVehicles(nw.vehicles),
			)
			if err != nil {
				return err
			}

			ctx := c.Context
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			opt := &optimizer.RoutingOptimizer{MaxNodes: c.Int("max-nodes"), MaxVariables: c.Int("max-variables")}
			result, err := opt.Optimize(ctx, model)
			if err != nil {
				return err
			}

			if path := c.String("report"); path != "" {
				if err := writeRoutingReport(path, model, result); err != nil {
					return err
				}
				log.Info().Str("path", path).Msg("routing report written")
			}

			return writeJSON(c.App.Writer, map[string]any{
				"total_cost": result.TotalCost,
				"results":    service.ToDistributionRecords(0, model, result),
			})
		},
	}
}

func writeRoutingReport(path string, model *optimizer.RoutingDataModel, result *optimizer.RoutingResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer file.Close()

	if err := report.NewPlan(model, result).WriteCSV(file); err != nil {
		return err
	}
	return file.Close()
}
