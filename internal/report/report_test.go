package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanWriteCSV(t *testing.T) {
	depot, store := int64(1), int64(2)
	model := &optimizer.RoutingDataModel{
		DistanceMatrix:        [][]float64{{0, 10.333}, {0, 0}},
		TrafficFactors:        [][]float64{{1, 1.5}, {1, 1}},
		Demands:               []int{0, 3},
		VehicleCapacities:     []int{10},
		CostPerTripPerVehicle: []float64{0.5},
		NumVehicles:           1,
		LocationData: []optimizer.LocationData{
			{LocationID: &depot, LocationName: "Depot"},
			{LocationID: &store, LocationName: ""},
		},
	}
	result := &optimizer.RoutingResult{
		TotalCost: 0.5 * 3 * 10.333 * 1.5,
		Results:   []optimizer.RouteLeg{{Vehicle: 0, From: 0, To: 1, Units: 3}},
	}

	plan := NewPlan(model, result)
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, "#1", plan.Legs[0].To)
	assert.Equal(t, "23.25", plan.Legs[0].Cost.StringFixed(2))

	var buf bytes.Buffer
	require.NoError(t, plan.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"vehicle,from,to,units,distance,traffic_factor,cost",
		"0,Depot,#1,3,10.333,1.5,23.25",
		",,,,,total,23.25",
	}, lines)
}

func TestWriteInventoryCSV(t *testing.T) {
	rows := []InventoryRow{
		{
			SKUNumber: 1001,
			Result: &optimizer.InventoryResult{
				OptimizedValues: optimizer.OptimizedValues{Q: 80, R: 100.12345},
				CostDetails:     optimizer.CostDetails{HoldingCost: 24, SetupAndTransportationCost: 312.5, StockoutCost: 9.9745},
				TotalCost:       346.4745,
				ParametersUsed:  optimizer.InventoryParams{Lambda: 100},
			},
		},
		{SKUNumber: 1002, Err: "no demand data"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInventoryCSV(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1001,80,100.123,24.00,312.50,9.97,346.47,1.2500,0.8000,", lines[1])
	assert.Equal(t, "1002,,,,,,,,,no demand data", lines[2])
}
