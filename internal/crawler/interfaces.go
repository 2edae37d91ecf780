package crawler

import (
	"context"
	"time"
)

// PageFetcher fetches a URL and returns the body plus metadata.
type PageFetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// Publisher pushes extraction events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for payload integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// ProductStore persists extracted products with their images and reviews.
type ProductStore interface {
	// SaveProduct upserts by URL and returns the stored product id.
	SaveProduct(ctx context.Context, record ProductRecord) (string, error)
	// GetProduct returns ErrNotFound when id is unknown.
	GetProduct(ctx context.Context, id string) (ProductRecord, error)
}

// AnalysisStore persists review analyses.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, record AnalysisRecord) error
}
