package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

// csvTable is a CSV file read into memory with its header resolved.
type csvTable struct {
	header map[string]int
	rows   [][]string
}

func readCSV(r io.Reader) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	t := &csvTable{header: make(map[string]int, len(header))}
	for i, col := range header {
		t.header[strings.ToLower(strings.TrimSpace(col))] = i
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV record: %w", err)
	}
	t.rows = rows
	return t, nil
}

func readCSVFile(path string) (*csvTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()
	return readCSV(file)
}

// cell returns the trimmed value, or "" when the column is absent.
func (t *csvTable) cell(row []string, col string) string {
	idx, ok := t.header[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (t *csvTable) int64Ptr(row []string, col string) (*int64, error) {
	raw := t.cell(row, col)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &v, nil
}

func (t *csvTable) intPtr(row []string, col string) (*int, error) {
	v, err := t.int64Ptr(row, col)
	if err != nil || v == nil {
		return nil, err
	}
	n := int(*v)
	return &n, nil
}

func (t *csvTable) floatPtr(row []string, col string) (*float64, error) {
	raw := t.cell(row, col)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &v, nil
}

func (t *csvTable) bool(row []string, col string) (bool, error) {
	raw := t.cell(row, col)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

// parseLocations reads location_id, location_name, demand and is_depot.
func parseLocations(t *csvTable) ([]domain.Location, error) {
	out := make([]domain.Location, 0, len(t.rows))
	for n, row := range t.rows {
		var (
			loc domain.Location
			err error
		)
		loc.LocationName = t.cell(row, "location_name")
		if loc.LocationID, err = t.int64Ptr(row, "location_id"); err != nil {
			return nil, fmt.Errorf("locations row %d: %w", n+2, err)
		}
		if loc.Demand, err = t.intPtr(row, "demand"); err != nil {
			return nil, fmt.Errorf("locations row %d: %w", n+2, err)
		}
		if loc.IsDepot, err = t.bool(row, "is_depot"); err != nil {
			return nil, fmt.Errorf("locations row %d: %w", n+2, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

// parseRoutes reads source_location_id, destination_location_id, distance
// and traffic_factor. route_id defaults to the row number.
func parseRoutes(t *csvTable) ([]domain.Route, error) {
	out := make([]domain.Route, 0, len(t.rows))
	for n, row := range t.rows {
		route := domain.Route{RouteID: int64(n + 1)}
		id, err := t.int64Ptr(row, "route_id")
		if err != nil {
			return nil, fmt.Errorf("routes row %d: %w", n+2, err)
		}
		if id != nil {
			route.RouteID = *id
		}
		if route.SourceLocationID, err = t.int64Ptr(row, "source_location_id"); err != nil {
			return nil, fmt.Errorf("routes row %d: %w", n+2, err)
		}
		if route.DestinationLocationID, err = t.int64Ptr(row, "destination_location_id"); err != nil {
			return nil, fmt.Errorf("routes row %d: %w", n+2, err)
		}
		if route.Distance, err = t.floatPtr(row, "distance"); err != nil {
			return nil, fmt.Errorf("routes row %d: %w", n+2, err)
		}
		if route.TrafficFactor, err = t.floatPtr(row, "traffic_factor"); err != nil {
			return nil, fmt.Errorf("routes row %d: %w", n+2, err)
		}
		out = append(out, route)
	}
	return out, nil
}

// parseVehicles reads capacity and cost_per_trip. vehicle_id defaults to the
// row number.
func parseVehicles(t *csvTable) ([]domain.Vehicle, error) {
	out := make([]domain.Vehicle, 0, len(t.rows))
	for n, row := range t.rows {
		vehicle := domain.Vehicle{VehicleID: int64(n + 1)}
		id, err := t.int64Ptr(row, "vehicle_id")
		if err != nil {
			return nil, fmt.Errorf("vehicles row %d: %w", n+2, err)
		}
		if id != nil {
			vehicle.VehicleID = *id
		}
		if vehicle.Capacity, err = t.intPtr(row, "capacity"); err != nil {
			return nil, fmt.Errorf("vehicles row %d: %w", n+2, err)
		}
		if vehicle.CostPerTrip, err = t.floatPtr(row, "cost_per_trip"); err != nil {
			return nil, fmt.Errorf("vehicles row %d: %w", n+2, err)
		}
		out = append(out, vehicle)
	}
	return out, nil
}

type network struct {
	locations []domain.Location
	routes    []domain.Route
	vehicles  []domain.Vehicle
}

func loadNetwork(locationsPath, routesPath, vehiclesPath string) (*network, error) {
	var (
		nw  network
		t   *csvTable
		err error
	)
	if t, err = readCSVFile(locationsPath); err != nil {
		return nil, err
	}
	if nw.locations, err = parseLocations(t); err != nil {
		return nil, err
	}
	if t, err = readCSVFile(routesPath); err != nil {
		return nil, err
	}
	if nw.routes, err = parseRoutes(t); err != nil {
		return nil, err
	}
	if t, err = readCSVFile(vehiclesPath); err != nil {
		return nil, err
	}
	if nw.vehicles, err = parseVehicles(t); err != nil {
		return nil, err
	}
	return &nw, nil
}
