// backend-go/internal/domain/models.go
package domain

import "time"

// Prediction is a point forecast of order quantity for one SKU and ISO week.
type Prediction struct {
	ID             int64     `json:"id" db:"id"`
	TenantID       int64     `json:"tenant_id" db:"tenant_id"`
	SKUNumber      int64     `json:"sku_number" db:"sku_number"`
	ModelName      string    `json:"model_name" db:"model_name"`
	WeekNumber     int       `json:"week_number" db:"week_number"`
	YearOfWeek     int       `json:"year_of_the_week" db:"year_of_the_week"`
	PredictedValue float64   `json:"predicted_value" db:"predicted_value"`
	MAE            float64   `json:"mae" db:"mae"`
	MAPE           float64   `json:"mape" db:"mape"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// InventoryOptimization is the persisted outcome of one reorder-policy run.
type InventoryOptimization struct {
	ID                      int64     `json:"id" db:"id"`
	TenantID                int64     `json:"tenant_id" db:"tenant_id"`
	SKUNumber               int64     `json:"sku_number" db:"sku_number"`
	InventoryRecordID       *int64    `json:"inventory_record_id" db:"inventory_record_id"`
	OrderQuantityQ          float64   `json:"order_quantity_q" db:"order_quantity_q"`
	ReorderPointR           float64   `json:"reorder_point_r" db:"reorder_point_r"`
	HoldingCost             float64   `json:"holding_cost" db:"holding_cost"`
	SetupTransportationCost float64   `json:"setup_transportation_cost" db:"setup_transportation_cost"`
	StockoutCost            float64   `json:"stockout_cost" db:"stockout_cost"`
	TotalCost               float64   `json:"total_cost" db:"total_cost"`
	OrderFrequency          float64   `json:"order_frequency" db:"order_frequency"`
	CycleTime               float64   `json:"cycle_time" db:"cycle_time"`
	IsCustom                bool      `json:"is_custom" db:"is_custom"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// DistributionOptimization is one leg of a persisted routing plan.
type DistributionOptimization struct {
	ID                      int64     `json:"id" db:"id"`
	TenantID                int64     `json:"tenant_id" db:"tenant_id"`
	TotalCost               float64   `json:"total_cost" db:"total_cost"`
	VehicleID               int       `json:"vehicle_id" db:"vehicle_id"`
	StartLocationName       string    `json:"start_location_name" db:"start_location_name"`
	DestinationLocationName string    `json:"destination_location_name" db:"destination_location_name"`
	Units                   int       `json:"units" db:"units"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// InventoryParamsRecord is the ERP view of a SKU's cost parameters. Lambda
// and Sigma are filled in from demand estimation, not by the ERP.
type InventoryParamsRecord struct {
	ID                   int64    `json:"id"`
	SKUNumber            int64    `json:"sku_number"`
	Lambda               *float64 `json:"lambda_"`
	Sigma                *float64 `json:"sigma"`
	StockLevel           *float64 `json:"stock_level"`
	TimePeriodT          *float64 `json:"time_period_t"`
	FixedOrderCostK      *float64 `json:"fixed_order_cost_k"`
	PenaltyCostP         *float64 `json:"penalty_cost_p"`
	HoldingCostRateI     *float64 `json:"holding_cost_rate_i"`
	UnitCostC            *float64 `json:"unit_cost_c"`
	TruckloadCapacityFTL *float64 `json:"truckload_capacity_ftl"`
	TransportationCostTR *float64 `json:"transportation_cost_tr"`
}

// Location is a depot or demand point in the tenant's distribution network.
type Location struct {
	LocationID   *int64 `json:"location_id" db:"location_id"`
	LocationName string `json:"location_name" db:"location_name"`
	Demand       *int   `json:"demand" db:"demand"`
	IsDepot      bool   `json:"is_depot" db:"is_depot"`
}

// Route is a directed link between two locations.
type Route struct {
	RouteID               int64    `json:"route_id" db:"route_id"`
	SourceLocationID      *int64   `json:"source_location_id" db:"source_location_id"`
	DestinationLocationID *int64   `json:"destination_location_id" db:"destination_location_id"`
	Distance              *float64 `json:"distance" db:"distance"`
	TrafficFactor         *float64 `json:"traffic_factor" db:"traffic_factor"`
}

// Vehicle is a truck in the tenant's fleet.
type Vehicle struct {
	VehicleID   int64    `json:"vehicle_id" db:"vehicle_id"`
	Capacity    *int     `json:"capacity" db:"capacity"`
	CostPerTrip *float64 `json:"cost_per_trip" db:"cost_per_trip"`
}
