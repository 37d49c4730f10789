package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/urfave/cli/v2"
)

func inventoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Compute the cost-minimising order quantity and reorder point",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "lambda", Usage: "Mean demand per period", Required: true},
			&cli.Float64Flag{Name: "sigma", Usage: "Demand standard deviation", Required: true},
			&cli.Float64Flag{Name: "T", Usage: "Planning horizon in periods", Value: 1},
			&cli.Float64Flag{Name: "K", Usage: "Fixed cost per order", Required: true},
			&cli.Float64Flag{Name: "p", Usage: "Penalty cost per unit short", Required: true},
			&cli.Float64Flag{Name: "i", Usage: "Holding cost rate", Required: true},
			&cli.Float64Flag{Name: "c", Usage: "Unit cost", Required: true},
			&cli.Float64Flag{Name: "FTL", Usage: "Full truckload capacity in units", Required: true},
			&cli.Float64Flag{Name: "TR", Usage: "Cost per truckload", Required: true},
			&cli.IntFlag{Name: "max-evaluations", Usage: "Solver evaluation budget", Value: 20000},
		},
		Action: func(c *cli.Context) error {
			params := optimizer.InventoryParams{
				Lambda: c.Float64("lambda"),
				Sigma:  c.Float64("sigma"),
				T:      c.Float64("T"),
				K:      c.Float64("K"),
				P:      c.Float64("p"),
				I:      c.Float64("i"),
				C:      c.Float64("c"),
				FTL:    c.Float64("FTL"),
				TR:     c.Float64("TR"),
				Source: optimizer.SourceCustom,
			}

			opt := &optimizer.InventoryOptimizer{MaxEvaluations: c.Int("max-evaluations")}
			result, err := opt.Optimize(c.Context, params)
			if err != nil {
				return err
			}

			return writeJSON(c.App.Writer, map[string]any{
				"result":          result,
				"order_frequency": result.OrderFrequency(),
				"cycle_time":      result.CycleTime(),
			})
		},
	}
}

func demandCommand() *cli.Command {
	return &cli.Command{
		Name:      "demand",
		Usage:     "Estimate lambda and sigma from predicted values",
		ArgsUsage: "<value>[,<value>...]",
		Action: func(c *cli.Context) error {
			values, err := parseFloatList(strings.Join(c.Args().Slice(), ","))
			if err != nil {
				return err
			}

			records := make([]optimizer.PredictionRecord, len(values))
			for i, v := range values {
				records[i] = optimizer.PredictionRecord{PredictedValue: v}
			}
			params, ok := optimizer.EstimateDemandParameters(records)
			if !ok {
				return fmt.Errorf("no predicted values given")
			}
			return writeJSON(c.App.Writer, params)
		},
	}
}

func parseFloatList(raw string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
