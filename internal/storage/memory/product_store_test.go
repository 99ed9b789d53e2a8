package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

func TestProductStoreUpsertReplacesByURL(t *testing.T) {
	t.Parallel()

	store := NewProductStore()
	ctx := context.Background()
	first := crawler.Product{URL: "https://shop.test/a-b-c-d-e", Title: "Old", CurrentPrice: "$1"}
	second := crawler.Product{URL: "https://shop.test/a-b-c-d-e", Title: "New", CurrentPrice: "$2"}
	other := crawler.Product{URL: "https://shop.test/f-g-h-i-j", Title: "Other", CurrentPrice: "$3"}

	require.NoError(t, store.Upsert(ctx, first))
	require.NoError(t, store.Upsert(ctx, other))
	require.NoError(t, store.Upsert(ctx, second))

	require.Equal(t, 2, store.Len())
	require.Equal(t, 3, store.Writes())
	got, ok := store.Get(first.URL)
	require.True(t, ok)
	require.Equal(t, second, got)
	require.Equal(t, []crawler.Product{second, other}, store.All())
	require.NoError(t, store.Close(ctx))
}

func TestProductStoreIdempotent(t *testing.T) {
	t.Parallel()

	store := NewProductStore()
	p := crawler.Product{URL: "https://shop.test/a-b-c-d-e", Title: "Same", CurrentPrice: "$1"}
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Upsert(context.Background(), p))
	}
	require.Equal(t, 1, store.Len())
	require.Equal(t, []crawler.Product{p}, store.All())
}

func TestSnapshotStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()
	payload := []byte("content")
	uri, err := store.SaveSnapshot(context.Background(), "snapshots/abc.html", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://snapshots/abc.html", uri)

	payload[0] = 'C'
	stored, ok := store.Snapshot("snapshots/abc.html")
	require.True(t, ok)
	require.Equal(t, "content", string(stored))
	require.Equal(t, 1, store.Len())

	_, err = store.SaveSnapshot(context.Background(), "", payload)
	require.Error(t, err)
}
