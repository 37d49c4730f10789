// backend-go/internal/api/handlers/distribution_handler.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/andresuchdata/replenish/backend-go/internal/api/middleware"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/andresuchdata/replenish/backend-go/internal/storage"
	"github.com/gin-gonic/gin"
)

type RoutingService interface {
	RunDistributionOptimization(ctx context.Context, tenantID int64) (*service.DistributionOptimizationResponse, error)
	ListDistributionOptimizations(ctx context.Context, filter domain.DistributionOptimizationFilter) ([]domain.DistributionOptimization, error)
	ListReports(ctx context.Context, tenantID int64) ([]storage.ObjectInfo, error)
}

type DistributionHandler struct {
	routingService RoutingService
}

func NewDistributionHandler(routingService RoutingService) *DistributionHandler {
	return &DistributionHandler{routingService: routingService}
}

// Optimize plans deliveries over the tenant's network and stores each leg.
func (h *DistributionHandler) Optimize(c *gin.Context) {
	resp, err := h.routingService.RunDistributionOptimization(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err, "failed to optimize distribution routing")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *DistributionHandler) ListOptimizations(c *gin.Context) {
	filter := domain.DistributionOptimizationFilter{
		TenantID:                middleware.TenantID(c),
		StartLocationName:       strings.TrimSpace(c.Query("start_location_name")),
		DestinationLocationName: strings.TrimSpace(c.Query("destination_location_name")),
		PageParams:              parsePageParams(c),
	}

	vehicle, ok := parseOptionalInt64(c, "vehicle_id")
	if !ok {
		badQuery(c, "vehicle_id")
		return
	}
	if vehicle != nil {
		v := int(*vehicle)
		filter.VehicleID = &v
	}
	if filter.StartDate, ok = parseOptionalDate(c, "start_date"); !ok {
		badQuery(c, "start_date")
		return
	}
	if filter.EndDate, ok = parseOptionalDate(c, "end_date"); !ok {
		badQuery(c, "end_date")
		return
	}

	items, err := h.routingService.ListDistributionOptimizations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to fetch distribution optimizations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *DistributionHandler) ListReports(c *gin.Context) {
	reports, err := h.routingService.ListReports(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err, "failed to list reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
