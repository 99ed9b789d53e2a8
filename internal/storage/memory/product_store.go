// Package memory keeps products and page snapshots in process memory. It is the
// default backend and the one used by tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

// ProductStore is a map-backed crawler.ProductStore keyed by URL.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]crawler.Product
	order    []string
	writes   int
}

// NewProductStore creates an empty ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]crawler.Product)}
}

// Upsert inserts the product or replaces the record that has the same URL.
func (s *ProductStore) Upsert(_ context.Context, product crawler.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[product.URL]; !exists {
		s.order = append(s.order, product.URL)
	}
	s.products[product.URL] = product
	s.writes++
	return nil
}

// Get returns the record stored for url.
func (s *ProductStore) Get(url string) (crawler.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[url]
	return p, ok
}

// Len reports the number of distinct records.
func (s *ProductStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// Writes reports how many upserts were accepted, duplicates included.
func (s *ProductStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// All returns the records in first-insert order.
func (s *ProductStore) All() []crawler.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Product, 0, len(s.order))
	for _, url := range s.order {
		out = append(out, s.products[url])
	}
	return out
}

// Close is a no-op.
func (s *ProductStore) Close(context.Context) error {
	return nil
}
