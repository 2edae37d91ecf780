package shopify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/revcopy-crawler/internal/clock/system"
	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/metrics"
)

// ProductSource loads the product half of a snapshot.
type ProductSource interface {
	FetchProduct(ctx context.Context, productURL string) (*Snapshot, error)
}

// ReviewHarvester collects reviews for a product identified by widget credentials.
type ReviewHarvester interface {
	Harvest(ctx context.Context, creds Credentials, targetPositive, targetNegative int) []crawler.Review
}

// Options wires an Extractor. Renderer and Promoter are optional; when both
// are set, pages that look client-rendered get a second, headless fetch
// before widget detection gives up.
type Options struct {
	Products       ProductSource
	Pages          crawler.PageFetcher
	Renderer       crawler.PageFetcher
	Promoter       crawler.HeadlessDetector
	Reviews        ReviewHarvester
	Clock          crawler.Clock
	TargetPositive int
	TargetNegative int
	// StoreInfoCacheSize bounds the per-root StoreInfo cache; 0 disables it.
	StoreInfoCacheSize int
	StoreInfoTTL       time.Duration
	Logger             *zap.Logger
}

// Extractor is the entry point for turning a storefront URL into a snapshot.
type Extractor struct {
	products       ProductSource
	pages          crawler.PageFetcher
	renderer       crawler.PageFetcher
	promoter       crawler.HeadlessDetector
	reviews        ReviewHarvester
	clock          crawler.Clock
	targetPositive int
	targetNegative int
	storeInfo      *expirable.LRU[string, crawler.StoreInfo]
	logger         *zap.Logger
}

// NewExtractor builds an Extractor from opts.
func NewExtractor(opts Options) (*Extractor, error) {
	if opts.Products == nil {
		return nil, errors.New("extractor requires a product source")
	}
	if opts.Pages == nil {
		return nil, errors.New("extractor requires a page fetcher")
	}
	if opts.Reviews == nil {
		return nil, errors.New("extractor requires a review harvester")
	}
	if opts.Clock == nil {
		opts.Clock = system.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	var cache *expirable.LRU[string, crawler.StoreInfo]
	if opts.StoreInfoCacheSize > 0 {
		cache = expirable.NewLRU[string, crawler.StoreInfo](opts.StoreInfoCacheSize, nil, opts.StoreInfoTTL)
	}
	return &Extractor{
		products:       opts.Products,
		pages:          opts.Pages,
		renderer:       opts.Renderer,
		promoter:       opts.Promoter,
		reviews:        opts.Reviews,
		clock:          opts.Clock,
		targetPositive: max(opts.TargetPositive, 0),
		targetNegative: max(opts.TargetNegative, 0),
		storeInfo:      cache,
		logger:         opts.Logger.Named("extractor"),
	}, nil
}

// Extract fetches the product behind rawURL and, when includeReviews is set,
// concurrently harvests its reviews. A product failure fails the call; review
// failures only leave the snapshot with fewer (or synthetic) reviews.
func (e *Extractor) Extract(ctx context.Context, rawURL string, includeReviews bool) (*Snapshot, error) {
	start := e.clock.Now()
	logger := e.logger.With(zap.String("url", rawURL), zap.Bool("include_reviews", includeReviews))

	snap, err := e.extract(ctx, rawURL, includeReviews)
	elapsed := e.clock.Now().Sub(start)
	metrics.ObserveExtraction(rawURL, extractionOutcome(err), includeReviews, elapsed)
	if err != nil {
		logger.Warn("extraction failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	snap = snap.WithElapsed(elapsed)
	logger.Info("extraction finished",
		zap.String("product_id", snap.ID()),
		zap.Int("reviews", snap.ReviewCount()),
		zap.String("review_system", snap.ReviewSystem()),
		zap.Duration("elapsed", elapsed),
	)
	return snap, nil
}

func (e *Extractor) extract(ctx context.Context, rawURL string, includeReviews bool) (*Snapshot, error) {
	if err := ValidateProductURL(rawURL); err != nil {
		return nil, err
	}
	if !includeReviews {
		snap, err := e.products.FetchProduct(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetch product: %w", err)
		}
		return snap, nil
	}

	var (
		snap    *Snapshot
		reviews []crawler.Review
		system  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := e.products.FetchProduct(gctx, rawURL)
		if err != nil {
			return fmt.Errorf("fetch product: %w", err)
		}
		snap = s
		return nil
	})
	g.Go(func() error {
		reviews, system = e.collectReviews(gctx, rawURL)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap.WithReviews(reviews, system), nil
}

// collectReviews never fails; every problem on this path yields an empty list.
func (e *Extractor) collectReviews(ctx context.Context, rawURL string) ([]crawler.Review, string) {
	logger := e.logger.With(zap.String("url", rawURL))

	page, err := e.pages.Fetch(ctx, crawler.FetchRequest{URL: rawURL})
	if err != nil {
		logger.Warn("product page fetch failed, continuing without reviews", zap.Error(err))
		return []crawler.Review{}, ""
	}
	body := string(page.Body)
	kind, ok := DetectWidget(body)
	if !ok {
		if rendered, promoted := e.render(ctx, rawURL, page); promoted {
			body = rendered
			kind, ok = DetectWidget(body)
		}
	}
	if !ok {
		metrics.ObserveWidgetDetection("none")
		logger.Info("no review widget detected")
		return []crawler.Review{}, ""
	}
	metrics.ObserveWidgetDetection(string(kind))

	if kind != WidgetYotpo {
		logger.Info("review widget has no harvester", zap.String("widget", string(kind)))
		return []crawler.Review{}, string(kind)
	}
	creds, ok := ExtractCredentials(body)
	if !ok {
		logger.Warn("yotpo widget found without usable credentials",
			zap.Bool("app_key", creds.AppKey != ""),
			zap.Bool("product_id", creds.ProductID != ""),
		)
		return []crawler.Review{}, string(kind)
	}
	return e.reviews.Harvest(ctx, creds, e.targetPositive, e.targetNegative), string(kind)
}

// render re-fetches the page headlessly when the plain response looks like it
// defers its content to scripts.
func (e *Extractor) render(ctx context.Context, rawURL string, probe crawler.FetchResponse) (string, bool) {
	if e.renderer == nil || e.promoter == nil || !e.promoter.ShouldPromote(probe) {
		return "", false
	}
	metrics.ObserveHeadlessPromotion()
	resp, err := e.renderer.Fetch(ctx, crawler.FetchRequest{URL: rawURL, UseHeadless: true})
	if err != nil {
		e.logger.Warn("headless render failed", zap.String("url", rawURL), zap.Error(err))
		return "", false
	}
	return string(resp.Body), true
}

// StoreInfo reads the name and description off a store's home page.
// Successful lookups are cached per store root when caching is enabled.
func (e *Extractor) StoreInfo(ctx context.Context, rawURL string) (crawler.StoreInfo, error) {
	root, err := StoreRoot(rawURL)
	if err != nil {
		return crawler.StoreInfo{}, err
	}
	if e.storeInfo != nil {
		if info, ok := e.storeInfo.Get(root); ok {
			return info, nil
		}
	}
	info, err := e.fetchStoreInfo(ctx, root)
	if err != nil {
		return crawler.StoreInfo{}, err
	}
	if e.storeInfo != nil {
		e.storeInfo.Add(root, info)
	}
	return info, nil
}

func (e *Extractor) fetchStoreInfo(ctx context.Context, root string) (crawler.StoreInfo, error) {
	resp, err := e.pages.Fetch(ctx, crawler.FetchRequest{URL: root})
	if err != nil {
		return crawler.StoreInfo{}, fmt.Errorf("fetch store page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return crawler.StoreInfo{}, fmt.Errorf("parse store page: %w: %w", crawler.ErrInvalidFormat, err)
	}

	info := crawler.StoreInfo{
		URL:  root,
		Name: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		info.Description = strings.TrimSpace(desc)
	}
	if IsShopifyURL(root) || bytes.Contains(resp.Body, []byte("cdn.shopify.com")) {
		info.Platform = Platform
	}
	return info, nil
}

func extractionOutcome(err error) string {
	var httpErr *crawler.HTTPError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrUnsupportedPlatform):
		return "invalid_url"
	case errors.Is(err, crawler.ErrNotFound):
		return "not_found"
	case errors.Is(err, crawler.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, crawler.ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "failed"
	}
}
