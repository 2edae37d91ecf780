package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

const upsertProductSQL = `
INSERT INTO products (
	id,
	external_id,
	url,
	platform,
	title,
	description,
	brand,
	category,
	tags,
	price,
	original_price,
	currency,
	in_stock,
	availability,
	rating,
	review_count,
	main_image_url,
	crawl_metadata,
	crawled_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)
ON CONFLICT (url) DO UPDATE SET
	external_id = EXCLUDED.external_id,
	platform = EXCLUDED.platform,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	brand = EXCLUDED.brand,
	category = EXCLUDED.category,
	tags = EXCLUDED.tags,
	price = EXCLUDED.price,
	original_price = EXCLUDED.original_price,
	currency = EXCLUDED.currency,
	in_stock = EXCLUDED.in_stock,
	availability = EXCLUDED.availability,
	rating = EXCLUDED.rating,
	review_count = EXCLUDED.review_count,
	main_image_url = EXCLUDED.main_image_url,
	crawl_metadata = EXCLUDED.crawl_metadata,
	crawled_at = EXCLUDED.crawled_at
RETURNING id`

const selectProductSQL = `
SELECT id, external_id, url, platform, title, description, brand, category, tags,
	price, original_price, currency, in_stock, availability, rating, review_count,
	main_image_url, crawl_metadata, crawled_at
FROM products
WHERE id = $1`

const selectImagesSQL = `
SELECT url, alt_text, position, width, height
FROM product_images
WHERE product_id = $1
ORDER BY position`

const selectReviewsSQL = `
SELECT external_id, rating, title, content, author, review_date, verified_purchase,
	helpful_count, source, page, rating_category, raw_data
FROM product_reviews
WHERE product_id = $1
ORDER BY ordinal`

var (
	imageColumns  = []string{"product_id", "position", "url", "alt_text", "width", "height"}
	reviewColumns = []string{
		"product_id", "ordinal", "external_id", "rating", "title", "content", "author",
		"review_date", "verified_purchase", "helpful_count", "source", "page",
		"rating_category", "raw_data",
	}
)

// SaveProduct upserts the product by URL and replaces its images and reviews.
// It returns the id of the stored row, which is the existing id when the URL
// was already known.
func (s *Store) SaveProduct(ctx context.Context, rec crawler.ProductRecord) (string, error) {
	if rec.ID == "" {
		return "", errors.New("record id is required")
	}
	if rec.URL == "" {
		return "", errors.New("record url is required")
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal crawl metadata: %w", err)
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	var id string
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertProductSQL,
			rec.ID,
			rec.ExternalID,
			rec.URL,
			rec.Platform,
			rec.Title,
			rec.Description,
			rec.Brand,
			rec.Category,
			tags,
			rec.Price,
			rec.OriginalPrice,
			rec.Currency,
			rec.InStock,
			string(rec.Availability),
			rec.Rating,
			rec.ReviewCount,
			rec.MainImageURL,
			meta,
			rec.CrawledAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("clear product images: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_reviews WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("clear product reviews: %w", err)
		}
		if len(rec.Images) > 0 {
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"product_images"}, imageColumns,
				pgx.CopyFromRows(imageRows(id, rec.Images))); err != nil {
				return fmt.Errorf("copy product images: %w", err)
			}
		}
		if len(rec.Reviews) > 0 {
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"product_reviews"}, reviewColumns,
				pgx.CopyFromRows(reviewRows(id, rec.Reviews))); err != nil {
				return fmt.Errorf("copy product reviews: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetProduct loads a product with its images and reviews.
func (s *Store) GetProduct(ctx context.Context, id string) (crawler.ProductRecord, error) {
	var (
		rec          crawler.ProductRecord
		availability string
		meta         []byte
	)
	err := s.pool.QueryRow(ctx, selectProductSQL, id).Scan(
		&rec.ID,
		&rec.ExternalID,
		&rec.URL,
		&rec.Platform,
		&rec.Title,
		&rec.Description,
		&rec.Brand,
		&rec.Category,
		&rec.Tags,
		&rec.Price,
		&rec.OriginalPrice,
		&rec.Currency,
		&rec.InStock,
		&availability,
		&rec.Rating,
		&rec.ReviewCount,
		&rec.MainImageURL,
		&meta,
		&rec.CrawledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.ProductRecord{}, fmt.Errorf("product %s: %w", id, crawler.ErrNotFound)
		}
		return crawler.ProductRecord{}, fmt.Errorf("get product: %w", err)
	}
	rec.Availability = crawler.Availability(availability)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return crawler.ProductRecord{}, fmt.Errorf("decode crawl metadata: %w", err)
		}
	}

	if rec.Images, err = s.images(ctx, rec.ID); err != nil {
		return crawler.ProductRecord{}, err
	}
	if rec.Reviews, err = s.reviews(ctx, rec.ID); err != nil {
		return crawler.ProductRecord{}, err
	}
	return rec, nil
}

func (s *Store) images(ctx context.Context, productID string) ([]crawler.Image, error) {
	rows, err := s.pool.Query(ctx, selectImagesSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	images := []crawler.Image{}
	for rows.Next() {
		var img crawler.Image
		if err := rows.Scan(&img.URL, &img.AltText, &img.Position, &img.Width, &img.Height); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product images: %w", err)
	}
	return images, nil
}

func (s *Store) reviews(ctx context.Context, productID string) ([]crawler.Review, error) {
	rows, err := s.pool.Query(ctx, selectReviewsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}
	defer rows.Close()

	reviews := []crawler.Review{}
	for rows.Next() {
		var (
			r        crawler.Review
			category string
			raw      []byte
		)
		if err := rows.Scan(
			&r.ID,
			&r.Rating,
			&r.Title,
			&r.Content,
			&r.Author,
			&r.Date,
			&r.VerifiedPurchase,
			&r.HelpfulCount,
			&r.Source,
			&r.Page,
			&category,
			&raw,
		); err != nil {
			return nil, fmt.Errorf("scan product review: %w", err)
		}
		r.Category = crawler.RatingCategory(category)
		if len(raw) > 0 {
			r.Raw = json.RawMessage(raw)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product reviews: %w", err)
	}
	return reviews, nil
}

func imageRows(productID string, images []crawler.Image) [][]any {
	rows := make([][]any, 0, len(images))
	for i, img := range images {
		pos := img.Position
		if pos == 0 {
			pos = i + 1
		}
		rows = append(rows, []any{productID, pos, img.URL, img.AltText, img.Width, img.Height})
	}
	return rows
}

func reviewRows(productID string, reviews []crawler.Review) [][]any {
	rows := make([][]any, 0, len(reviews))
	for i, r := range reviews {
		var raw any
		if len(r.Raw) > 0 {
			raw = []byte(r.Raw)
		}
		rows = append(rows, []any{
			productID,
			i,
			r.ID,
			r.Rating,
			r.Title,
			r.Content,
			r.Author,
			r.Date,
			r.VerifiedPurchase,
			r.HelpfulCount,
			r.Source,
			r.Page,
			string(r.Category),
			raw,
		})
	}
	return rows
}
