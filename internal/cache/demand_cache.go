package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/redis/go-redis/v9"
)

// DemandCache holds estimated (lambda, sigma) per tenant and SKU.
type DemandCache interface {
	Get(ctx context.Context, tenantID, skuNumber int64) (optimizer.DemandParameters, bool, error)
	Set(ctx context.Context, tenantID, skuNumber int64, params optimizer.DemandParameters) error
	Invalidate(ctx context.Context, tenantID, skuNumber int64) error
	InvalidateTenant(ctx context.Context, tenantID int64) error
}

type redisDemandCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDemandCache struct{}

func NewDemandCache(cfg config.CacheConfig) (DemandCache, error) {
	if !cfg.Enabled {
		return &noopDemandCache{}, nil
	}

	client, err := newDemandRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisDemandCache(client, demandTTL(cfg)), nil
}

// NewRedisDemandCache wraps an existing client. A non-positive ttl falls back
// to the package default.
func NewRedisDemandCache(client *redis.Client, ttl time.Duration) DemandCache {
	if ttl <= 0 {
		ttl = defaultDemandTTL
	}
	return &redisDemandCache{client: client, ttl: ttl}
}

func NewNoopDemandCache() DemandCache {
	return &noopDemandCache{}
}

func (c *redisDemandCache) Get(ctx context.Context, tenantID, skuNumber int64) (optimizer.DemandParameters, bool, error) {
	payload, err := c.client.Get(ctx, demandParamsKey(tenantID, skuNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return optimizer.DemandParameters{}, false, nil
	}
	if err != nil {
		return optimizer.DemandParameters{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var params optimizer.DemandParameters
	if err := json.Unmarshal(payload, &params); err != nil {
		return optimizer.DemandParameters{}, false, fmt.Errorf("decode demand params cache: %w", err)
	}

	return params, true, nil
}

func (c *redisDemandCache) Set(ctx context.Context, tenantID, skuNumber int64, params optimizer.DemandParameters) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode demand params cache: %w", err)
	}

	if err := c.client.Set(ctx, demandParamsKey(tenantID, skuNumber), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisDemandCache) Invalidate(ctx context.Context, tenantID, skuNumber int64) error {
	return c.client.Del(ctx, demandParamsKey(tenantID, skuNumber)).Err()
}

func (c *redisDemandCache) InvalidateTenant(ctx context.Context, tenantID int64) error {
	_, err := purgeTenantDemand(ctx, c.client, tenantID)
	return err
}

func (n *noopDemandCache) Get(ctx context.Context, tenantID, skuNumber int64) (optimizer.DemandParameters, bool, error) {
	return optimizer.DemandParameters{}, false, nil
}

func (n *noopDemandCache) Set(ctx context.Context, tenantID, skuNumber int64, params optimizer.DemandParameters) error {
	return nil
}

func (n *noopDemandCache) Invalidate(ctx context.Context, tenantID, skuNumber int64) error {
	return nil
}

func (n *noopDemandCache) InvalidateTenant(ctx context.Context, tenantID int64) error {
	return nil
}
