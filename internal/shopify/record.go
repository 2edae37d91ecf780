package shopify

import (
	"time"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

// Platform is the label stored on products extracted by this package.
const Platform = "shopify"

// ProductView is the JSON shape of a snapshot returned by the API.
type ProductView struct {
	ID             string               `json:"id"`
	Handle         string               `json:"handle"`
	URL            string               `json:"url"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Vendor         string               `json:"vendor"`
	ProductType    string               `json:"product_type"`
	Tags           []string             `json:"tags"`
	Price          float64              `json:"price"`
	CompareAtPrice *float64             `json:"compare_at_price,omitempty"`
	Currency       string               `json:"currency"`
	Availability   crawler.Availability `json:"availability"`
	MainImageURL   string               `json:"main_image_url,omitempty"`
	Images         []crawler.Image      `json:"images"`
	VariantCount   int                  `json:"variant_count"`
	Rating         *float64             `json:"rating"`
	ReviewCount    int                  `json:"review_count"`
	ReviewSystem   string               `json:"review_system,omitempty"`
	Reviews        []crawler.Review     `json:"reviews"`
	CreatedAt      *time.Time           `json:"created_at,omitempty"`
	UpdatedAt      *time.Time           `json:"updated_at,omitempty"`
	PayloadDigest  string               `json:"payload_digest,omitempty"`
	ElapsedMs      int64                `json:"elapsed_ms"`
}

// View flattens the snapshot for serialization.
func (s *Snapshot) View() ProductView {
	v := ProductView{
		ID:            s.ID(),
		Handle:        s.Handle(),
		URL:           s.SourceURL(),
		Title:         s.Title(),
		Description:   s.Description(),
		Vendor:        s.Vendor(),
		ProductType:   s.ProductType(),
		Tags:          s.Tags(),
		Price:         s.Price(),
		Currency:      s.Currency(),
		Availability:  s.Availability(),
		MainImageURL:  s.MainImageURL(),
		Images:        s.Images(),
		VariantCount:  s.VariantCount(),
		ReviewCount:   s.ReviewCount(),
		ReviewSystem:  s.ReviewSystem(),
		Reviews:       s.Reviews(),
		PayloadDigest: s.PayloadDigest(),
		ElapsedMs:     s.Elapsed().Milliseconds(),
	}
	if p, ok := s.CompareAtPrice(); ok {
		v.CompareAtPrice = &p
	}
	if r, ok := s.Rating(); ok {
		v.Rating = &r
	}
	if t, ok := s.CreatedAt(); ok {
		v.CreatedAt = &t
	}
	if t, ok := s.UpdatedAt(); ok {
		v.UpdatedAt = &t
	}
	return v
}

// Record maps the snapshot onto its persisted form.
func (s *Snapshot) Record(id string, crawledAt time.Time) crawler.ProductRecord {
	view := s.View()
	meta := crawler.CrawlMetadata{
		Handle:           view.Handle,
		ShopifyID:        view.ID,
		VariantsCount:    view.VariantCount,
		ImagesCount:      len(view.Images),
		ReviewSystem:     view.ReviewSystem,
		PayloadDigest:    view.PayloadDigest,
		SyntheticReviews: crawler.CountSynthetic(view.Reviews),
		ElapsedMs:        view.ElapsedMs,
	}
	if view.CreatedAt != nil {
		meta.CreatedAt = view.CreatedAt.Format(time.RFC3339)
	}
	if view.UpdatedAt != nil {
		meta.UpdatedAt = view.UpdatedAt.Format(time.RFC3339)
	}
	return crawler.ProductRecord{
		ID:            id,
		ExternalID:    view.ID,
		URL:           view.URL,
		Platform:      Platform,
		Title:         view.Title,
		Description:   view.Description,
		Brand:         view.Vendor,
		Category:      view.ProductType,
		Tags:          view.Tags,
		Price:         view.Price,
		OriginalPrice: view.CompareAtPrice,
		Currency:      view.Currency,
		InStock:       view.Availability == crawler.AvailabilityInStock,
		Availability:  view.Availability,
		Rating:        view.Rating,
		ReviewCount:   view.ReviewCount,
		MainImageURL:  view.MainImageURL,
		Images:        view.Images,
		Reviews:       view.Reviews,
		Metadata:      meta,
		CrawledAt:     crawledAt.UTC(),
	}
}
