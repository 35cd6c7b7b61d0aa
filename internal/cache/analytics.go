package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commentguard/internal/analytics"
	"commentguard/internal/middleware"
	"commentguard/internal/observability"

	"github.com/redis/go-redis/v9"
)

const analyticsKeyFormat = "analytics:%s:%t:v%d"

// DefaultAnalyticsTTL applies when a cache is built with a non-positive TTL.
const DefaultAnalyticsTTL = time.Minute

// AnalyticsKey names the cached metrics for filters at a store version. A
// change to the comment store bumps the version, so stale entries are never
// read and simply expire.
func AnalyticsKey(f analytics.Filters, version uint64) string {
	r := f.DateRange
	if r == "" {
		r = analytics.Range7d
	}
	return fmt.Sprintf(analyticsKeyFormat, r, f.IncludeHidden, version)
}

// AnalyticsCache memoizes computed metrics in Redis. Redis failures are
// logged and counted, never returned: the caller always gets metrics.
type AnalyticsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewAnalyticsCache returns a cache over client. A nil client disables caching.
func NewAnalyticsCache(client redis.UniversalClient, ttl time.Duration) *AnalyticsCache {
	if ttl <= 0 {
		ttl = DefaultAnalyticsTTL
	}
	return &AnalyticsCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is attached.
func (c *AnalyticsCache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetOrCompute returns the cached metrics for filters at version, or runs
// compute and stores its result.
func (c *AnalyticsCache) GetOrCompute(
	ctx context.Context,
	filters analytics.Filters,
	version uint64,
	compute func() analytics.Metrics,
) analytics.Metrics {
	if !c.Enabled() {
		return compute()
	}
	key := AnalyticsKey(filters, version)

	if m, ok := c.get(ctx, key); ok {
		observability.AnalyticsCacheResults.WithLabelValues("hit").Inc()
		return m
	}
	observability.AnalyticsCacheResults.WithLabelValues("miss").Inc()

	m := compute()
	c.set(ctx, key, m)
	return m
}

func (c *AnalyticsCache) get(ctx context.Context, key string) (analytics.Metrics, bool) {
	ctx, span := observability.TraceRedisOperation(ctx, "get")
	defer span.End()

	var m analytics.Metrics
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			middleware.Logger.WarnContext(ctx, "analytics cache read failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
		return m, false
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		middleware.Logger.WarnContext(ctx, "analytics cache entry unreadable",
			slog.String("key", key), slog.String("error", err.Error()))
		return m, false
	}
	return m, true
}

func (c *AnalyticsCache) set(ctx context.Context, key string, m analytics.Metrics) {
	ctx, span := observability.TraceRedisOperation(ctx, "set")
	defer span.End()

	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		span.RecordError(err)
		middleware.Logger.WarnContext(ctx, "analytics cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
