// Package redis stores products as JSON documents in Redis, one key per URL.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

const defaultKeyPrefix = "product:"

// Config holds the Redis connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type setter interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// ProductStore writes each product under KeyPrefix+URL with no expiry.
type ProductStore struct {
	client setter
	prefix string
}

// NewProductStore dials Redis and verifies the connection.
func NewProductStore(ctx context.Context, cfg Config) (*ProductStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("storage.redis.addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return newProductStore(client, cfg.KeyPrefix), nil
}

func newProductStore(client setter, prefix string) *ProductStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &ProductStore{client: client, prefix: prefix}
}

// Key returns the Redis key a product URL is stored under.
func (s *ProductStore) Key(url string) string {
	return s.prefix + url
}

// Upsert overwrites the document stored for the product URL.
func (s *ProductStore) Upsert(ctx context.Context, p crawler.Product) error {
	if p.URL == "" {
		return fmt.Errorf("product url is required")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(p.URL), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.URL, err)
	}
	return nil
}

// Close closes the client.
func (s *ProductStore) Close(context.Context) error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
