package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " ", "*"})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)
	assert.True(t, allowAll)

	origins, allowAll = normalizeAllowedOrigins([]string{"http://a.test"})
	assert.Equal(t, []string{"http://a.test"}, origins)
	assert.False(t, allowAll)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	router := NewRouter(&Services{}, []string{"*"}, m)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouterOptimizerRoutesNeedNoTenant(t *testing.T) {
	router := NewRouter(&Services{RoutingOptimizer: &optimizer.RoutingOptimizer{MaxNodes: 100}}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimizer/demand", nil)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterSkipsUnconfiguredServices(t *testing.T) {
	router := NewRouter(&Services{}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/distribution/optimize", nil)
	req.Header.Set("X-Tenant-ID", "1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(&Services{}, []string{"http://app.test"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/optimizer/inventory", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
}
