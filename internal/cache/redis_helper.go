package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	// Demand estimates only move when predictions are recorded, which also
	// invalidates them, so the TTL is a backstop.
	defaultDemandTTL = time.Hour

	demandParamsKeyPrefix = "demand_params"
	demandScanBatchSize   = 100
	demandPingTimeout     = 5 * time.Second
)

// demandParamsKey is demand_params:<tenant>:<sku>.
func demandParamsKey(tenantID, skuNumber int64) string {
	return fmt.Sprintf("%s%d", tenantDemandPrefix(tenantID), skuNumber)
}

// tenantDemandPrefix ends in a separator so tenant 7 never matches tenant 70.
func tenantDemandPrefix(tenantID int64) string {
	return fmt.Sprintf("%s:%d:", demandParamsKeyPrefix, tenantID)
}

func demandTTL(cfg config.CacheConfig) time.Duration {
	if ttl := time.Duration(cfg.DemandTTLSeconds) * time.Second; ttl > 0 {
		return ttl
	}
	return defaultDemandTTL
}

func newDemandRedisClient(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), demandPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("demand cache: redis ping failed: %w", err)
	}

	return client, nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// purgeTenantDemand deletes every cached estimate of one tenant and reports
// how many keys went.
func purgeTenantDemand(ctx context.Context, client *redis.Client, tenantID int64) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	pattern := tenantDemandPrefix(tenantID) + "*"
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, demandScanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("demand cache: scan tenant %d: %w", tenantID, err)
		}

		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("demand cache: delete tenant %d keys: %w", tenantID, err)
			}
			removed += n
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}
