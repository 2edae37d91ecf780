package crawler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// RatingCategory buckets a review by its star rating.
type RatingCategory string

// Rating categories assigned by the harvester and the synthetic generator.
const (
	CategoryPositive RatingCategory = "positive"
	CategoryNegative RatingCategory = "negative"
	CategoryNone     RatingCategory = ""
)

// CategoryFor returns the category implied by a star rating.
func CategoryFor(rating int) RatingCategory {
	switch {
	case rating >= 4:
		return CategoryPositive
	case rating >= 1 && rating <= 2:
		return CategoryNegative
	default:
		return CategoryNone
	}
}

// Review is a single customer review, harvested or synthesized.
type Review struct {
	ID               string          `json:"id,omitempty"`
	Rating           int             `json:"rating"`
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	Author           string          `json:"author"`
	Date             string          `json:"date"`
	VerifiedPurchase bool            `json:"verified_purchase"`
	HelpfulCount     int             `json:"helpful_count"`
	Source           string          `json:"source"`
	Page             int             `json:"page"`
	Category         RatingCategory  `json:"rating_category,omitempty"`
	Raw              json.RawMessage `json:"raw_data,omitempty"`
}

// IsSynthetic reports whether the review came from the fallback generator.
func (r Review) IsSynthetic() bool {
	return strings.HasSuffix(r.Source, "fallback")
}

// CountSynthetic returns how many reviews in the slice are synthetic.
func CountSynthetic(reviews []Review) int {
	n := 0
	for _, r := range reviews {
		if r.IsSynthetic() {
			n++
		}
	}
	return n
}

// Availability describes the stock state derived from product variants.
type Availability string

// Availability values.
const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityUnknown    Availability = "unknown"
)

// Image is a product image reference.
type Image struct {
	URL      string `json:"url"`
	AltText  string `json:"alt_text,omitempty"`
	Position int    `json:"position"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// FetchRequest captures everything needed to fetch a page.
type FetchRequest struct {
	URL         string
	Headers     http.Header
	UseHeadless bool
}

// FetchResponse is the result returned by a PageFetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// CrawlMetadata records how a product was extracted.
type CrawlMetadata struct {
	Handle           string `json:"handle"`
	ShopifyID        string `json:"shopify_id"`
	VariantsCount    int    `json:"variants_count"`
	ImagesCount      int    `json:"images_count"`
	ReviewSystem     string `json:"review_system"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	PayloadDigest    string `json:"payload_digest,omitempty"`
	SyntheticReviews int    `json:"synthetic_reviews"`
	ElapsedMs        int64  `json:"elapsed_ms"`
}

// ProductRecord is the persisted form of an extracted product.
type ProductRecord struct {
	ID            string        `json:"id"`
	ExternalID    string        `json:"external_product_id"`
	URL           string        `json:"url"`
	Platform      string        `json:"platform"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Brand         string        `json:"brand"`
	Category      string        `json:"category"`
	Tags          []string      `json:"tags"`
	Price         float64       `json:"price"`
	OriginalPrice *float64      `json:"original_price,omitempty"`
	Currency      string        `json:"currency"`
	InStock       bool          `json:"in_stock"`
	Availability  Availability  `json:"availability"`
	Rating        *float64      `json:"rating,omitempty"`
	ReviewCount   int           `json:"review_count"`
	MainImageURL  string        `json:"main_image_url,omitempty"`
	Images        []Image       `json:"images"`
	Reviews       []Review      `json:"reviews"`
	Metadata      CrawlMetadata `json:"crawl_metadata"`
	CrawledAt     time.Time     `json:"crawled_at"`
}

// StoreInfo is the lightweight storefront summary read from the store root page.
type StoreInfo struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Platform    string `json:"platform"`
}

// TopicProductExtracted names the event emitted after a product is persisted.
const TopicProductExtracted = "product.extracted"

// ProductExtractedEvent is published after an extracted product is persisted.
type ProductExtractedEvent struct {
	ProductID        string    `json:"product_id"`
	ExternalID       string    `json:"external_product_id"`
	URL              string    `json:"url"`
	ReviewCount      int       `json:"review_count"`
	SyntheticReviews int       `json:"synthetic_reviews"`
	PayloadDigest    string    `json:"payload_digest"`
	ExtractedAt      time.Time `json:"extracted_at"`
}

// AnalysisRecord is a persisted review analysis for one product.
type AnalysisRecord struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	URL       string          `json:"url"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}
