package crawler

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Limiter blocks until another outbound fetch is permitted.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Extractor turns a product page body into a Product.
// Pages missing required fields return an error matching ErrNotProduct.
type Extractor interface {
	Extract(pageURL string, body []byte) (Product, error)
}

// ProductSink upserts products keyed by URL.
type ProductSink interface {
	Upsert(ctx context.Context, product Product) error
}

// ProductStore is a ProductSink that owns a connection released by Close.
type ProductStore interface {
	ProductSink
	Close(ctx context.Context) error
}

// SnapshotStore archives raw page bodies and returns a URI.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, key string, body []byte) (string, error)
}

// Notifier publishes an event after a product upsert.
type Notifier interface {
	PublishUpsert(ctx context.Context, event UpsertEvent) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Hasher digests bytes into a stable hex string.
type Hasher interface {
	Hash(data []byte) string
}

// IDGenerator creates run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
