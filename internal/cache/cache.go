package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/webimport/product-extractor/internal/models"
)

// ErrMiss is returned when no cached result exists for a URL.
var ErrMiss = errors.New("cache miss")

// ResultCache stores extraction results in Redis keyed by source URL,
// so repeated imports of the same page skip re-extraction.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a result cache. A zero ttl defaults to one hour.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}
}

// Key derives the cache key for a source URL. URLs are hashed so
// arbitrarily long URLs stay within Redis key size conventions.
func Key(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return "extract:result:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached product for a URL, or ErrMiss.
func (c *ResultCache) Get(ctx context.Context, sourceURL string) (*models.Product, error) {
	data, err := c.client.Get(ctx, Key(sourceURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		// A corrupt entry is treated as a miss so it gets overwritten.
		c.logger.Warn("discarding corrupt cache entry", "url", sourceURL, "error", err)
		return nil, ErrMiss
	}

	return &product, nil
}

// Set stores a product under its source URL.
func (c *ResultCache) Set(ctx context.Context, sourceURL string, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	if err := c.client.Set(ctx, Key(sourceURL), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	return nil
}
