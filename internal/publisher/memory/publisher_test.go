package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

func TestPublisherStoresEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	event := crawler.ProductExtractedEvent{ProductID: "p-1", ReviewCount: 3}
	id1, err := pub.Publish(context.Background(), crawler.TopicProductExtracted, event)
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "other", "payload")
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "memory-1" || msgs[1].Topic != "other" {
		t.Fatalf("messages not recorded correctly: %+v", msgs)
	}

	extracted := pub.Topic(crawler.TopicProductExtracted)
	if len(extracted) != 1 {
		t.Fatalf("expected 1 extracted event, got %d", len(extracted))
	}
	got, ok := extracted[0].Payload.(crawler.ProductExtractedEvent)
	if !ok || got.ProductID != "p-1" {
		t.Fatalf("unexpected payload %#v", extracted[0].Payload)
	}

	msgs[0].Topic = "modified"
	if pub.Messages()[0].Topic == "modified" {
		t.Fatal("expected Messages() to return a copy")
	}
}

func TestPublisherRejectsEmptyTopic(t *testing.T) {
	t.Parallel()

	if _, err := New().Publish(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestPublisherHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := New()
	if _, err := pub.Publish(ctx, "topic", nil); err == nil {
		t.Fatal("expected context error")
	}
	if len(pub.Messages()) != 0 {
		t.Fatal("canceled publish must not be recorded")
	}
}
