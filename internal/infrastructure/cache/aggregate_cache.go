package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/tributa/backend/internal/domain/document"
	"github.com/tributa/backend/internal/infrastructure/config"
	"github.com/tributa/backend/internal/infrastructure/telemetry"
)

// MonthlySpendCache caches per-company monthly spend aggregates in Redis so
// overlapping agent runs don't recompute the same window sums. A cache miss
// or any Redis failure falls through to the database; the cache is an
// optimization, never a source of truth.
type MonthlySpendCache struct {
	client *redis.Client
	reader document.AggregateReader
	ttl    time.Duration
	prefix string
}

// cachedAggregate is the wire form of one month entry
type cachedAggregate struct {
	Month      time.Time `json:"month"`
	TotalSpend string    `json:"total_spend"`
}

// NewMonthlySpendCache connects to Redis and wraps the given reader
func NewMonthlySpendCache(cfg *config.RedisConfig, reader document.AggregateReader) (*MonthlySpendCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &MonthlySpendCache{
		client: client,
		reader: reader,
		ttl:    cfg.CacheTTL,
		prefix: "agents:monthly_spend:",
	}, nil
}

// NewMonthlySpendCacheWithClient wraps an existing Redis client, useful for
// tests and for sharing one client across components
func NewMonthlySpendCacheWithClient(client *redis.Client, reader document.AggregateReader, ttl time.Duration) *MonthlySpendCache {
	return &MonthlySpendCache{
		client: client,
		reader: reader,
		ttl:    ttl,
		prefix: "agents:monthly_spend:",
	}
}

// MonthlySpend returns the cached window if present, otherwise reads through
// to the underlying reader and stores the result
func (c *MonthlySpendCache) MonthlySpend(ctx context.Context, companyID uuid.UUID, months int) ([]document.MonthlyAggregate, error) {
	key := fmt.Sprintf("%s%s:%d", c.prefix, companyID, months)

	payload, err := c.client.Get(ctx, key).Result()
	if err == nil {
		aggregates, decodeErr := decodeAggregates(companyID, payload)
		if decodeErr == nil {
			telemetry.IncAggregateCache(telemetry.CacheHit)
			return aggregates, nil
		}
		// Corrupt entry: drop it and fall through to the reader
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not take the agents down with it
		return c.reader.MonthlySpend(ctx, companyID, months)
	}

	telemetry.IncAggregateCache(telemetry.CacheMiss)

	aggregates, err := c.reader.MonthlySpend(ctx, companyID, months)
	if err != nil {
		return nil, err
	}

	if encoded, encodeErr := encodeAggregates(aggregates); encodeErr == nil {
		c.client.Set(ctx, key, encoded, c.ttl)
	}

	return aggregates, nil
}

// CachingAggregateReader is an AggregateReader whose MonthlySpend reads go
// through the Redis cache. All other reads hit the wrapped reader directly.
type CachingAggregateReader struct {
	document.AggregateReader
	cache *MonthlySpendCache
}

// NewCachingAggregateReader decorates reader with cached MonthlySpend lookups
func NewCachingAggregateReader(reader document.AggregateReader, cache *MonthlySpendCache) *CachingAggregateReader {
	return &CachingAggregateReader{AggregateReader: reader, cache: cache}
}

func (r *CachingAggregateReader) MonthlySpend(ctx context.Context, companyID uuid.UUID, months int) ([]document.MonthlyAggregate, error) {
	return r.cache.MonthlySpend(ctx, companyID, months)
}

// Invalidate removes a company's cached window
func (c *MonthlySpendCache) Invalidate(ctx context.Context, companyID uuid.UUID, months int) error {
	key := fmt.Sprintf("%s%s:%d", c.prefix, companyID, months)
	return c.client.Del(ctx, key).Err()
}

// Close closes the Redis client
func (c *MonthlySpendCache) Close() error {
	return c.client.Close()
}

func encodeAggregates(aggregates []document.MonthlyAggregate) (string, error) {
	entries := make([]cachedAggregate, len(aggregates))
	for i, a := range aggregates {
		entries[i] = cachedAggregate{
			Month:      a.Month,
			TotalSpend: a.TotalSpend.String(),
		}
	}
	encoded, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeAggregates(companyID uuid.UUID, payload string) ([]document.MonthlyAggregate, error) {
	var entries []cachedAggregate
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, err
	}

	aggregates := make([]document.MonthlyAggregate, len(entries))
	for i, entry := range entries {
		spend, err := decimal.NewFromString(entry.TotalSpend)
		if err != nil {
			return nil, err
		}
		aggregates[i] = document.MonthlyAggregate{
			CompanyID:  companyID,
			Month:      entry.Month,
			TotalSpend: spend,
		}
	}
	return aggregates, nil
}
