// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/api/handlers"
	"github.com/andresuchdata/replenish/backend-go/internal/api/middleware"
	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	InventoryService handlers.InventoryService
	RoutingService   handlers.RoutingService
	BatchRunner      handlers.BatchRunner
	// Solver settings for the stateless /optimizer endpoints.
	InventoryOptimizer *optimizer.InventoryOptimizer
	RoutingOptimizer   *optimizer.RoutingOptimizer
	// OptimizerTimeout bounds each stateless solve. Zero means no limit.
	OptimizerTimeout time.Duration
}

func NewRouter(services *Services, allowedOrigins []string, m *metrics.Metrics) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if m != nil {
		router.Use(middleware.Metrics(m))
	}
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderTenantID, middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services != nil {
		optimizerHandler := handlers.NewOptimizerHandler(services.InventoryOptimizer, services.RoutingOptimizer, services.OptimizerTimeout, m)
		optimizerGroup := apiGroup.Group("/optimizer")
		{
			optimizerGroup.POST("/demand", optimizerHandler.EstimateDemand)
			optimizerGroup.POST("/inventory", optimizerHandler.OptimizeInventory)
			optimizerGroup.POST("/routing", optimizerHandler.OptimizeRouting)
		}

		tenantGroup := apiGroup.Group("", middleware.Tenant())

		if services.InventoryService != nil {
			inventoryHandler := handlers.NewInventoryHandler(services.InventoryService, services.BatchRunner)
			inventoryGroup := tenantGroup.Group("/inventory")
			{
				inventoryGroup.POST("/optimize", inventoryHandler.Optimize)
				inventoryGroup.GET("/params", inventoryHandler.GetParams)
				inventoryGroup.GET("/optimizations", inventoryHandler.ListOptimizations)
				inventoryGroup.POST("/predictions", inventoryHandler.RecordPrediction)
				if services.BatchRunner != nil {
					inventoryGroup.POST("/batch", inventoryHandler.RunBatch)
				}
			}
		}

		if services.RoutingService != nil {
			distributionHandler := handlers.NewDistributionHandler(services.RoutingService)
			distributionGroup := tenantGroup.Group("/distribution")
			{
				distributionGroup.POST("/optimize", distributionHandler.Optimize)
				distributionGroup.GET("/optimizations", distributionHandler.ListOptimizations)
				distributionGroup.GET("/reports", distributionHandler.ListReports)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
