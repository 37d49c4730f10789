// Package report renders optimisation results as CSV with currency amounts
// rounded half away from zero to cents.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/shopspring/decimal"
)

const currencyPlaces = 2

// PlanLeg is one routed flow with its resolved location names and cost.
type PlanLeg struct {
	Vehicle     int
	From        string
	To          string
	Units       int
	Cost        decimal.Decimal
	Distance    float64
	TrafficRate float64
}

type Plan struct {
	Legs      []PlanLeg
	TotalCost decimal.Decimal
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(currencyPlaces)
}

// NewPlan prices every leg of result against the model it was solved from.
// The total is the solver objective, rounded; leg costs may not add up to it
// to the cent.
func NewPlan(model *optimizer.RoutingDataModel, result *optimizer.RoutingResult) Plan {
	plan := Plan{TotalCost: money(result.TotalCost), Legs: make([]PlanLeg, 0, len(result.Results))}
	for _, leg := range result.Results {
		dist := model.DistanceMatrix[leg.From][leg.To]
		tf := model.TrafficFactors[leg.From][leg.To]
		cost := model.CostPerTripPerVehicle[leg.Vehicle] * float64(leg.Units) * dist * tf
		plan.Legs = append(plan.Legs, PlanLeg{
			Vehicle:     leg.Vehicle,
			From:        locationLabel(model, leg.From),
			To:          locationLabel(model, leg.To),
			Units:       leg.Units,
			Cost:        money(cost),
			Distance:    dist,
			TrafficRate: tf,
		})
	}
	return plan
}

func locationLabel(model *optimizer.RoutingDataModel, index int) string {
	if name := model.LocationName(index); name != "" {
		return name
	}
	return "#" + strconv.Itoa(index)
}

func (p Plan) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"vehicle", "from", "to", "units", "distance", "traffic_factor", "cost"}); err != nil {
		return err
	}
	for _, leg := range p.Legs {
		row := []string{
			strconv.Itoa(leg.Vehicle),
			leg.From,
			leg.To,
			strconv.Itoa(leg.Units),
			strconv.FormatFloat(leg.Distance, 'f', -1, 64),
			strconv.FormatFloat(leg.TrafficRate, 'f', -1, 64),
			leg.Cost.StringFixed(currencyPlaces),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"", "", "", "", "", "total", p.TotalCost.StringFixed(currencyPlaces)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// InventoryRow is one SKU's policy in a batch report. Err is set instead of
// Result when the SKU failed.
type InventoryRow struct {
	SKUNumber int64
	Result    *optimizer.InventoryResult
	Err       string
}

func WriteInventoryCSV(w io.Writer, rows []InventoryRow) error {
	cw := csv.NewWriter(w)
	header := []string{"sku_number", "order_quantity_q", "reorder_point_r", "holding_cost",
		"setup_cost_and_transportation_cost", "stockout_cost", "total_cost", "order_frequency", "cycle_time", "error"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, len(header))
		record[0] = strconv.FormatInt(row.SKUNumber, 10)
		if row.Result != nil {
			r := row.Result
			record[1] = decimal.NewFromFloat(r.OptimizedValues.Q).Round(3).String()
			record[2] = decimal.NewFromFloat(r.OptimizedValues.R).Round(3).String()
			record[3] = money(r.CostDetails.HoldingCost).StringFixed(currencyPlaces)
			record[4] = money(r.CostDetails.SetupAndTransportationCost).StringFixed(currencyPlaces)
			record[5] = money(r.CostDetails.StockoutCost).StringFixed(currencyPlaces)
			record[6] = money(r.TotalCost).StringFixed(currencyPlaces)
			record[7] = fmt.Sprintf("%.4f", r.OrderFrequency())
			record[8] = fmt.Sprintf("%.4f", r.CycleTime())
		}
		record[9] = row.Err
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
