package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

// FetcherConfig tunes the product data fetch.
type FetcherConfig struct {
	UserAgent    string
	MaxBodyBytes int64
}

// ProductFetcher loads a product's .json data endpoint.
type ProductFetcher struct {
	client *http.Client
	hasher crawler.Hasher
	cfg    FetcherConfig
	logger *zap.Logger
}

// NewProductFetcher builds a ProductFetcher. The client's timeouts bound the
// fetch; hasher may be nil, in which case no digest is recorded.
func NewProductFetcher(client *http.Client, hasher crawler.Hasher, cfg FetcherConfig, logger *zap.Logger) *ProductFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductFetcher{
		client: client,
		hasher: hasher,
		cfg:    cfg,
		logger: logger.Named("product_fetcher"),
	}
}

// FetchProduct issues one GET against the data endpoint for productURL.
//
// It fails with crawler.ErrNotFound on 404, *crawler.HTTPError on any other
// non-200 status, crawler.ErrInvalidFormat when the body is not a JSON
// document with a "product" object, and crawler.ErrTimeout on deadlines.
func (f *ProductFetcher) FetchProduct(ctx context.Context, productURL string) (*Snapshot, error) {
	endpoint := ToDataEndpoint(productURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", endpoint, crawler.ClassifyTransportError(err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Debug("close product body", zap.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("product %s: %w", endpoint, crawler.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, &crawler.HTTPError{Status: resp.StatusCode, URL: endpoint}
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("product %s: content type %q: %w",
			endpoint, resp.Header.Get("Content-Type"), crawler.ErrInvalidFormat)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read product %s: %w", endpoint, crawler.ClassifyTransportError(err))
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("product %s: body exceeds %d bytes: %w", endpoint, f.cfg.MaxBodyBytes, crawler.ErrInvalidFormat)
	}

	product, err := decodeProduct(body)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", endpoint, err)
	}

	snap := NewSnapshot(product, productURL, nil)
	if f.hasher != nil {
		digest, err := f.hasher.Hash(body)
		if err != nil {
			f.logger.Warn("hash product payload", zap.String("url", endpoint), zap.Error(err))
		} else {
			snap = snap.withDigest(digest)
		}
	}
	f.logger.Debug("product fetched",
		zap.String("url", endpoint),
		zap.String("product_id", snap.ID()),
		zap.Int("bytes", len(body)),
	)
	return snap, nil
}

func decodeProduct(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w: %w", crawler.ErrInvalidFormat, err)
	}
	product, ok := doc["product"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing product object: %w", crawler.ErrInvalidFormat)
	}
	return product, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
