package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps service and optimizer errors onto status codes.
func respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	body := gin.H{"error": message, "details": err.Error()}

	var paramErr *optimizer.InvalidParameterError
	if errors.As(err, &paramErr) {
		body["param"] = paramErr.Param
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, optimizer.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, optimizer.ErrNoDepotFound), errors.Is(err, optimizer.ErrInfeasible):
		return http.StatusUnprocessableEntity
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrOptimizationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrERPUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parsePageParams(c *gin.Context) domain.PageParams {
	size := parsePositiveIntWithDefault(c.Query("page_size"), domain.DefaultPageSize)
	if size > domain.MaxPageSize {
		size = domain.MaxPageSize
	}
	return domain.PageParams{
		Page:     parsePositiveIntWithDefault(c.Query("page"), domain.DefaultPage),
		PageSize: size,
	}
}

func parseOptionalInt64(c *gin.Context, param string) (*int64, bool) {
	value := strings.TrimSpace(c.Query(param))
	if value == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// parseOptionalDate accepts RFC 3339 timestamps or plain dates.
func parseOptionalDate(c *gin.Context, param string) (*time.Time, bool) {
	value := strings.TrimSpace(c.Query(param))
	if value == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func badQuery(c *gin.Context, param string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameter", "param": param})
}
