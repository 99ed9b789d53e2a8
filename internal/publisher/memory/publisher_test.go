package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

func TestPublisherRecordsEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.PublishUpsert(context.Background(), crawler.UpsertEvent{RunID: "run", URL: "https://a"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.PublishUpsert(context.Background(), crawler.UpsertEvent{RunID: "run", URL: "https://b"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	events := pub.Events()
	require.Len(t, events, 2)
	require.Equal(t, "https://a", events[0].URL)

	events[0].URL = "modified"
	require.Equal(t, "https://a", pub.Events()[0].URL)
}
