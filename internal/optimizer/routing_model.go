package optimizer

import (
	"fmt"
	"math"
	"sort"
)

// Location is a node of the distribution network. Demand is in whole units.
type Location struct {
	ID      *int64 `json:"location_id"`
	Name    string `json:"location_name"`
	Demand  *int   `json:"demand"`
	IsDepot bool   `json:"is_depot"`
}

// Route is a directed edge between two locations identified by their
// external ids. Nil distance or traffic factor falls back to the defaults.
type Route struct {
	SourceLocationID      *int64   `json:"source_location_id"`
	DestinationLocationID *int64   `json:"destination_location_id"`
	Distance              *float64 `json:"distance"`
	TrafficFactor         *float64 `json:"traffic_factor"`
}

// Vehicle is one truck of the fleet.
type Vehicle struct {
	Capacity    int     `json:"capacity"`
	CostPerTrip float64 `json:"cost_per_trip"`
}

// LocationData keeps the identity of each matrix index.
type LocationData struct {
	LocationID   *int64 `json:"location_id"`
	LocationName string `json:"location_name"`
}

// RoutingDataModel is the matrix form consumed by the routing optimizer. All
// per-location slices share one ordering with the depot at index 0.
// Matrices are not assumed symmetric.
type RoutingDataModel struct {
	DistanceMatrix        [][]float64    `json:"distance_matrix"`
	TrafficFactors        [][]float64    `json:"traffic_factors"`
	Demands               []int          `json:"demands"`
	VehicleCapacities     []int          `json:"vehicle_capacities"`
	CostPerTripPerVehicle []float64      `json:"cost_per_trip_per_vehicle"`
	NumVehicles           int            `json:"num_vehicles"`
	Depot                 int            `json:"depot"`
	LocationData          []LocationData `json:"location_data"`
}

const (
	defaultDistance      = 0.0
	defaultTrafficFactor = 1.0
)

// BuildRoutingDataModel assembles the routing matrices.
//
// The first depot-flagged location in input order becomes index 0; any
// further depot flags are ignored and those locations are treated as ordinary
// demand points. The remaining locations follow sorted by id ascending, with
// id-less locations last. Routes whose endpoints are not both known are
// skipped, which tolerates stale reference data.
func BuildRoutingDataModel(locations []Location, routes []Route, vehicles []Vehicle) (*RoutingDataModel, error) {
	depotPos := -1
	for i, loc := range locations {
		if loc.IsDepot {
			depotPos = i
			break
		}
	}
	if depotPos < 0 {
		return nil, ErrNoDepotFound
	}

	others := make([]Location, 0, len(locations)-1)
	for i, loc := range locations {
		if i != depotPos {
			others = append(others, loc)
		}
	}
	sort.SliceStable(others, func(a, b int) bool {
		idA, idB := others[a].ID, others[b].ID
		switch {
		case idA == nil:
			return false
		case idB == nil:
			return true
		default:
			return *idA < *idB
		}
	})
	ordered := append([]Location{locations[depotPos]}, others...)

	n := len(ordered)
	model := &RoutingDataModel{
		DistanceMatrix:        make([][]float64, n),
		TrafficFactors:        make([][]float64, n),
		Demands:               make([]int, n),
		VehicleCapacities:     make([]int, len(vehicles)),
		CostPerTripPerVehicle: make([]float64, len(vehicles)),
		NumVehicles:           len(vehicles),
		Depot:                 0,
		LocationData:          make([]LocationData, n),
	}

	index := make(map[int64]int, n)
	for i, loc := range ordered {
		model.DistanceMatrix[i] = make([]float64, n)
		model.TrafficFactors[i] = make([]float64, n)
		for j := range model.TrafficFactors[i] {
			model.DistanceMatrix[i][j] = defaultDistance
			model.TrafficFactors[i][j] = defaultTrafficFactor
		}
		if loc.Demand != nil {
			model.Demands[i] = *loc.Demand
		}
		model.LocationData[i] = LocationData{LocationID: loc.ID, LocationName: loc.Name}
		if loc.ID != nil {
			if _, seen := index[*loc.ID]; !seen {
				index[*loc.ID] = i
			}
		}
	}
	model.Demands[0] = 0

	for _, r := range routes {
		if r.SourceLocationID == nil || r.DestinationLocationID == nil {
			continue
		}
		i, okSrc := index[*r.SourceLocationID]
		j, okDst := index[*r.DestinationLocationID]
		if !okSrc || !okDst {
			continue
		}
		if r.Distance != nil {
			model.DistanceMatrix[i][j] = *r.Distance
		}
		// A zero factor would erase the leg cost; it is read as "no adjustment".
		if r.TrafficFactor != nil && *r.TrafficFactor != 0 {
			model.TrafficFactors[i][j] = *r.TrafficFactor
		}
	}

	for k, v := range vehicles {
		model.VehicleCapacities[k] = v.Capacity
		model.CostPerTripPerVehicle[k] = v.CostPerTrip
	}

	return model, nil
}

// LocationName returns the display name stored for a matrix index.
func (m *RoutingDataModel) LocationName(index int) string {
	if index < 0 || index >= len(m.LocationData) {
		return ""
	}
	return m.LocationData[index].LocationName
}

// Validate checks that the slices agree in shape, that demands and
// capacities are non-negative, and that every arc and vehicle cost is a
// finite non-negative number.
func (m *RoutingDataModel) Validate() error {
	n := len(m.Demands)
	if n == 0 {
		return &InvalidParameterError{Param: "demands", Reason: "at least the depot location is required"}
	}
	if len(m.DistanceMatrix) != n || len(m.TrafficFactors) != n {
		return &InvalidParameterError{Param: "distance_matrix", Reason: fmt.Sprintf("expected %d rows", n)}
	}
	for i := 0; i < n; i++ {
		if len(m.DistanceMatrix[i]) != n || len(m.TrafficFactors[i]) != n {
			return &InvalidParameterError{Param: "distance_matrix", Reason: fmt.Sprintf("row %d is not of length %d", i, n)}
		}
	}
	if m.Depot < 0 || m.Depot >= n {
		return &InvalidParameterError{Param: "depot", Reason: "index out of range"}
	}
	if m.NumVehicles != len(m.VehicleCapacities) || m.NumVehicles != len(m.CostPerTripPerVehicle) {
		return &InvalidParameterError{Param: "num_vehicles", Reason: "does not match vehicle vectors"}
	}
	for j, d := range m.Demands {
		if d < 0 {
			return &InvalidParameterError{Param: "demands", Reason: fmt.Sprintf("negative demand at index %d", j)}
		}
	}
	for k, c := range m.VehicleCapacities {
		if c < 0 {
			return &InvalidParameterError{Param: "vehicle_capacities", Reason: fmt.Sprintf("negative capacity for vehicle %d", k)}
		}
	}
	for k, c := range m.CostPerTripPerVehicle {
		if !nonNegativeFinite(c) {
			return &InvalidParameterError{Param: "cost_per_trip_per_vehicle", Reason: fmt.Sprintf("vehicle %d must be a finite non-negative cost", k)}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !nonNegativeFinite(m.DistanceMatrix[i][j]) {
				return &InvalidParameterError{Param: "distance_matrix", Reason: fmt.Sprintf("entry (%d,%d) must be finite and non-negative", i, j)}
			}
			if !nonNegativeFinite(m.TrafficFactors[i][j]) {
				return &InvalidParameterError{Param: "traffic_factors", Reason: fmt.Sprintf("entry (%d,%d) must be finite and non-negative", i, j)}
			}
		}
	}
	return nil
}

func nonNegativeFinite(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
