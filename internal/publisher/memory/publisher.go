// Package memory contains an in-memory notifier for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

// Publisher records upsert events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []crawler.UpsertEvent
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// PublishUpsert records the event and returns a pseudo message ID.
func (p *Publisher) PublishUpsert(_ context.Context, event crawler.UpsertEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []crawler.UpsertEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]crawler.UpsertEvent, len(p.events))
	copy(out, p.events)
	return out
}
