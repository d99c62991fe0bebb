package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/goldcurve/pkg/logger"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
	logger *logger.Logger
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// WithLogger reports cache write failures to log
func (c *Cache) WithLogger(log *logger.Logger) *Cache {
	c.logger = log
	return c
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		// Key not found is not an error
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	// Try cache first
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	// Cache miss - call function
	value, err := fn()
	if err != nil {
		return err
	}

	// dest는 캐시 저장 성공 여부와 무관하게 채움
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal failed: %w", err)
	}

	if err := c.Set(ctx, key, value, ttl); err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return nil
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // API 응답
	TTLMedium = 10 * time.Minute // 시리즈 메타
	TTLLong   = 1 * time.Hour
	TTLDaily  = 24 * time.Hour // 만기 목록
)

// Common cache key generators

// PremiumSeriesKey keys a cached /api/premium response by its query range
func PremiumSeriesKey(from, to string) string {
	return fmt.Sprintf("premium:series:%s:%s", from, to)
}

// ExpiryListKey keys the discovered expiry list for a symbol
func ExpiryListKey(symbol string) string {
	return fmt.Sprintf("expiry:list:%s", symbol)
}
