// Package mongo stores products in a MongoDB collection keyed by URL.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

const (
	defaultDatabase   = "product_crawler"
	defaultCollection = "products"
	connectTimeout    = 10 * time.Second
)

// Config holds the MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type replacer interface {
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// ProductStore replaces the document whose url matches, inserting it when absent.
type ProductStore struct {
	coll       replacer
	disconnect func(context.Context) error
}

// NewProductStore connects, pings the primary and ensures a unique url index.
func NewProductStore(ctx context.Context, cfg Config) (*ProductStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("storage.mongo.uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create url index: %w", err)
	}
	return &ProductStore{coll: coll, disconnect: client.Disconnect}, nil
}

// Upsert writes the full product document for p.URL.
func (s *ProductStore) Upsert(ctx context.Context, p crawler.Product) error {
	if p.URL == "" {
		return fmt.Errorf("product url is required")
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"url": p.URL}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", p.URL, err)
	}
	return nil
}

// Close disconnects the client.
func (s *ProductStore) Close(ctx context.Context) error {
	if s.disconnect == nil {
		return nil
	}
	if err := s.disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
