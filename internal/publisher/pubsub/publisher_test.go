package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
	gcppublisher "github.com/JakeFAU/product-sitemap-crawler/internal/publisher/pubsub"
)

func TestPublishUpsertDeliversEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "product-upserts")
	require.NoError(t, err)
	defer topic.Stop()

	event := crawler.UpsertEvent{
		RunID:     "run-1",
		URL:       "https://shop.test/oak-dining-table-large",
		Title:     "Oak Dining Table",
		Price:     "$499.00",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
	id, err := gcppublisher.New(topic).PublishUpsert(ctx, event)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, gcppublisher.EventTypeUpserted, msgs[0].Attributes["event_type"])
	require.Equal(t, "run-1", msgs[0].Attributes["run_id"])

	var got crawler.UpsertEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, event, got)
}

func TestPublishUpsertWithoutTopic(t *testing.T) {
	_, err := gcppublisher.New(nil).PublishUpsert(context.Background(), crawler.UpsertEvent{})
	require.Error(t, err)
}
