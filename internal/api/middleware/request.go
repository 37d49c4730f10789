package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextKeyRequestID = "requestId"
	ContextKeyTenantID  = "tenantId"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// RequestID middleware generates or propagates request IDs
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}

// Tenant rejects requests without a positive numeric X-Tenant-ID. All
// reads and writes behind it are scoped to that tenant.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		tenantID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || tenantID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + HeaderTenantID + " header"})
			return
		}

		c.Set(ContextKeyTenantID, tenantID)
		c.Next()
	}
}

// TenantID returns the tenant resolved by Tenant.
func TenantID(c *gin.Context) int64 {
	return c.GetInt64(ContextKeyTenantID)
}
