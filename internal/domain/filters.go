package domain

import "time"

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageParams is 1-based. A zero PageSize means "no limit".
type PageParams struct {
	Page     int
	PageSize int
}

func (p PageParams) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

type InventoryOptimizationFilter struct {
	TenantID          int64
	SKUNumber         *int64
	InventoryRecordID *int64
	StartDate         *time.Time
	EndDate           *time.Time
	PageParams
}

type DistributionOptimizationFilter struct {
	TenantID                int64
	VehicleID               *int
	StartLocationName       string
	DestinationLocationName string
	StartDate               *time.Time
	EndDate                 *time.Time
	PageParams
}
