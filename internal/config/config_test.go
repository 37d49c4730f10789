package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg := FromViper(v)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 20000, cfg.Optimizer.MaxEvaluations)
	assert.Equal(t, 5000, cfg.Optimizer.MaxNodes)
	assert.Equal(t, 4000, cfg.Optimizer.MaxVariables)
	assert.Equal(t, 10*time.Hour, cfg.Optimizer.RecentWindow())
	assert.Equal(t, 30*time.Second, cfg.Optimizer.Timeout())
	assert.Equal(t, "optimization-reports", cfg.Storage.Bucket)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=replenish sslmode=disable", cfg.Database.DSN())
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("OPTIMIZER_TIMEOUT_SECONDS", 0)
	v.Set("CACHE_ENABLED", true)
	v.Set("REDIS_URL", "redis://cache:6379/2")
	v.Set("ERP_BASE_URL", "http://erp.local")

	cfg := FromViper(v)

	assert.Zero(t, cfg.Optimizer.Timeout())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis://cache:6379/2", cfg.Cache.RedisURL)
	assert.Equal(t, "http://erp.local", cfg.ERP.BaseURL)
}
