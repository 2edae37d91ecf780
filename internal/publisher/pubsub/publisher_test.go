package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

func newTestClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestPublishSendsJSONWithEventAttribute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv, client := newTestClient(t)
	_, err := client.CreateTopic(ctx, "revcopy-events")
	require.NoError(t, err)

	pub := New(client, "revcopy-events")
	defer pub.Close()

	event := crawler.ProductExtractedEvent{ProductID: "p-1", URL: "https://shop.example/products/widget", ReviewCount: 4}
	id, err := pub.Publish(ctx, crawler.TopicProductExtracted, event)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, crawler.TopicProductExtracted, msgs[0].Attributes[EventTypeAttribute])

	var got crawler.ProductExtractedEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, "p-1", got.ProductID)
	require.Equal(t, 4, got.ReviewCount)
}

func TestPublishUsesEventNameWithoutOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv, client := newTestClient(t)
	_, err := client.CreateTopic(ctx, crawler.TopicProductExtracted)
	require.NoError(t, err)

	pub := New(client, "")
	defer pub.Close()

	_, err = pub.Publish(ctx, crawler.TopicProductExtracted, map[string]string{"k": "v"})
	require.NoError(t, err)
	require.Len(t, srv.Messages(), 1)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := New(nil, "x").Publish(ctx, "event", nil)
	require.Error(t, err)

	_, client := newTestClient(t)
	pub := New(client, "")
	defer pub.Close()

	_, err = pub.Publish(ctx, "", nil)
	require.Error(t, err)

	_, err = pub.Publish(ctx, "event", func() {})
	require.ErrorContains(t, err, "marshal payload")

	_, err = pub.Publish(ctx, "missing-topic", map[string]string{})
	require.ErrorContains(t, err, "publish message")
}
