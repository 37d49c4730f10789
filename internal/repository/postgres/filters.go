package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

// clauseBuilder accumulates AND-ed predicates with positional arguments.
type clauseBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *clauseBuilder) add(format string, arg interface{}) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(format, len(b.args)))
}

func (b *clauseBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

func (b *clauseBuilder) page(p domain.PageParams) string {
	if p.PageSize <= 0 {
		return ""
	}
	size := p.PageSize
	if size > domain.MaxPageSize {
		size = domain.MaxPageSize
	}
	b.args = append(b.args, size, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(b.args)-1, len(b.args))
}

func buildInventoryOptimizationFilter(filter domain.InventoryOptimizationFilter) (string, []interface{}) {
	b := &clauseBuilder{}
	b.add("tenant_id = $%d", filter.TenantID)
	if filter.SKUNumber != nil {
		b.add("sku_number = $%d", *filter.SKUNumber)
	}
	if filter.InventoryRecordID != nil {
		b.add("inventory_record_id = $%d", *filter.InventoryRecordID)
	}
	if filter.StartDate != nil {
		b.add("updated_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.add("updated_at <= $%d", *filter.EndDate)
	}

	query := b.where() + " ORDER BY updated_at DESC, id DESC" + b.page(filter.PageParams)
	return query, b.args
}

func buildDistributionOptimizationFilter(filter domain.DistributionOptimizationFilter) (string, []interface{}) {
	b := &clauseBuilder{}
	b.add("tenant_id = $%d", filter.TenantID)
	if filter.VehicleID != nil {
		b.add("vehicle_id = $%d", *filter.VehicleID)
	}
	if name := strings.TrimSpace(filter.StartLocationName); name != "" {
		b.add("start_location_name = $%d", name)
	}
	if name := strings.TrimSpace(filter.DestinationLocationName); name != "" {
		b.add("destination_location_name = $%d", name)
	}
	if filter.StartDate != nil {
		b.add("updated_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.add("updated_at <= $%d", *filter.EndDate)
	}

	query := b.where() + " ORDER BY vehicle_id, id" + b.page(filter.PageParams)
	return query, b.args
}
