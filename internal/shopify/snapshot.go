package shopify

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

const defaultCurrency = "USD"

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

// Snapshot is an immutable view over one product payload plus the reviews
// attached to it. Accessors never fail; missing or malformed fields yield
// zero values.
type Snapshot struct {
	product      map[string]any
	sourceURL    string
	digest       string
	reviews      []crawler.Review
	reviewSystem string
	elapsed      time.Duration
}

// NewSnapshot wraps a decoded "product" object. The reviews slice is copied.
func NewSnapshot(product map[string]any, sourceURL string, reviews []crawler.Review) *Snapshot {
	if product == nil {
		product = map[string]any{}
	}
	return &Snapshot{
		product:   product,
		sourceURL: sourceURL,
		reviews:   cloneReviews(reviews),
	}
}

// WithReviews returns a copy of s carrying reviews and the detected widget.
func (s *Snapshot) WithReviews(reviews []crawler.Review, system string) *Snapshot {
	cp := *s
	cp.reviews = cloneReviews(reviews)
	cp.reviewSystem = system
	return &cp
}

// WithElapsed returns a copy of s stamped with the extraction wall-clock time.
func (s *Snapshot) WithElapsed(d time.Duration) *Snapshot {
	cp := *s
	cp.elapsed = d
	return &cp
}

func (s *Snapshot) withDigest(digest string) *Snapshot {
	cp := *s
	cp.digest = digest
	return &cp
}

// ID is the platform-assigned product id.
func (s *Snapshot) ID() string { return toString(s.product["id"]) }

// Handle is the product slug.
func (s *Snapshot) Handle() string { return toString(s.product["handle"]) }

// Title is the product title.
func (s *Snapshot) Title() string { return toString(s.product["title"]) }

// Vendor is the brand.
func (s *Snapshot) Vendor() string { return toString(s.product["vendor"]) }

// ProductType is the merchant category.
func (s *Snapshot) ProductType() string { return toString(s.product["product_type"]) }

// SourceURL is the product page URL the snapshot was fetched for.
func (s *Snapshot) SourceURL() string { return s.sourceURL }

// PayloadDigest is the SHA-256 hex digest of the raw data endpoint body.
func (s *Snapshot) PayloadDigest() string { return s.digest }

// ReviewSystem names the widget reviews came from, or "" when none was used.
func (s *Snapshot) ReviewSystem() string { return s.reviewSystem }

// Elapsed is the extraction wall-clock time. Metadata only.
func (s *Snapshot) Elapsed() time.Duration { return s.elapsed }

// Description is body_html reduced to plain text.
func (s *Snapshot) Description() string {
	return htmlToText(toString(s.product["body_html"]))
}

// Tags accepts both the comma-separated string form and a JSON array.
func (s *Snapshot) Tags() []string {
	var tags []string
	switch v := s.product["tags"].(type) {
	case string:
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	case []any:
		for _, item := range v {
			if tag := strings.TrimSpace(toString(item)); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// Price is the first variant's price, or 0.
func (s *Snapshot) Price() float64 {
	variant, ok := s.firstVariant()
	if !ok {
		return 0
	}
	price, ok := toFloat(variant["price"])
	if !ok {
		return 0
	}
	return price
}

// CompareAtPrice is the first variant's compare-at price, when set.
func (s *Snapshot) CompareAtPrice() (float64, bool) {
	variant, ok := s.firstVariant()
	if !ok {
		return 0, false
	}
	price, ok := toFloat(variant["compare_at_price"])
	if !ok || price <= 0 {
		return 0, false
	}
	return price, true
}

// Currency is the first variant's price_currency, defaulting to USD.
func (s *Snapshot) Currency() string {
	variant, ok := s.firstVariant()
	if !ok {
		return defaultCurrency
	}
	if c := strings.TrimSpace(toString(variant["price_currency"])); c != "" {
		return c
	}
	return defaultCurrency
}

// VariantCount is the number of variants in the payload.
func (s *Snapshot) VariantCount() int {
	return len(s.variants())
}

// Availability is out_of_stock with no variants, in_stock when any variant is
// not inventory-tracked, and unknown otherwise.
func (s *Snapshot) Availability() crawler.Availability {
	variants := s.variants()
	if len(variants) == 0 {
		return crawler.AvailabilityOutOfStock
	}
	for _, v := range variants {
		if toString(v["inventory_management"]) == "" {
			return crawler.AvailabilityInStock
		}
	}
	return crawler.AvailabilityUnknown
}

// Images lists product images in payload order.
func (s *Snapshot) Images() []crawler.Image {
	raw, _ := s.product["images"].([]any)
	images := make([]crawler.Image, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		src := toString(obj["src"])
		if src == "" {
			continue
		}
		position := toInt(obj["position"])
		if position <= 0 {
			position = i + 1
		}
		images = append(images, crawler.Image{
			URL:      src,
			AltText:  toString(obj["alt"]),
			Position: position,
			Width:    toInt(obj["width"]),
			Height:   toInt(obj["height"]),
		})
	}
	return images
}

// MainImageURL is the featured image, falling back to the first gallery image.
func (s *Snapshot) MainImageURL() string {
	if obj, ok := s.product["image"].(map[string]any); ok {
		if src := toString(obj["src"]); src != "" {
			return src
		}
	}
	if images := s.Images(); len(images) > 0 {
		return images[0].URL
	}
	return ""
}

// Reviews returns a copy of the attached reviews.
func (s *Snapshot) Reviews() []crawler.Review {
	return cloneReviews(s.reviews)
}

// ReviewCount is the number of attached reviews.
func (s *Snapshot) ReviewCount() int { return len(s.reviews) }

// Rating is the mean attached rating rounded to one decimal, ties to even
// (a 4.25 mean reports 4.2). It is absent when there are no reviews.
func (s *Snapshot) Rating() (float64, bool) {
	if len(s.reviews) == 0 {
		return 0, false
	}
	total := 0
	for _, r := range s.reviews {
		total += r.Rating
	}
	mean := float64(total) / float64(len(s.reviews))
	return math.RoundToEven(mean*10) / 10, true
}

// CreatedAt parses created_at.
func (s *Snapshot) CreatedAt() (time.Time, bool) {
	return parseTimestamp(toString(s.product["created_at"]))
}

// UpdatedAt parses updated_at.
func (s *Snapshot) UpdatedAt() (time.Time, bool) {
	return parseTimestamp(toString(s.product["updated_at"]))
}

func (s *Snapshot) variants() []map[string]any {
	raw, _ := s.product["variants"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (s *Snapshot) firstVariant() (map[string]any, bool) {
	variants := s.variants()
	if len(variants) == 0 {
		return nil, false
	}
	return variants[0], true
}

func cloneReviews(in []crawler.Review) []crawler.Review {
	out := make([]crawler.Review, len(in))
	copy(out, in)
	return out
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// htmlToText joins the trimmed text nodes of a fragment with single spaces.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) int {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return int(f)
}
