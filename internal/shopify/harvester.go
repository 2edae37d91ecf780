package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/httpclient"
	"github.com/JakeFAU/revcopy-crawler/internal/metrics"
)

// DefaultReviewsBaseURL is the public Yotpo API root.
const DefaultReviewsBaseURL = "https://api.yotpo.com/v1"

// SourceYotpo tags reviews that came from the live API.
const SourceYotpo = "yotpo"

// maxPageBytes caps a single reviews page; a full page of 50 reviews is well under this.
const maxPageBytes = 4 << 20

// HarvesterConfig tunes review pagination.
type HarvesterConfig struct {
	BaseURL        string
	PageSize       int
	MaxPages       int
	RequestTimeout time.Duration
	UserAgent      string
}

// Pacer spaces out successive requests to the same host.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Guard wraps each page request, typically a circuit breaker.
type Guard interface {
	Execute(fn func() error) error
}

// ReviewSynthesizer produces stand-in reviews when the live API is unusable.
type ReviewSynthesizer interface {
	Generate(count int, ratings []int, source string) []crawler.Review
}

type bucket struct {
	category crawler.RatingCategory
	ratings  []int
	fallback string
}

func (b bucket) accepts(rating int) bool {
	for _, r := range b.ratings {
		if r == rating {
			return true
		}
	}
	return false
}

var (
	positiveBucket = bucket{category: crawler.CategoryPositive, ratings: []int{4, 5}, fallback: "positive_fallback"}
	negativeBucket = bucket{category: crawler.CategoryNegative, ratings: []int{1, 2}, fallback: "negative_fallback"}
)

// Harvester collects a rating-balanced sample of reviews from the Yotpo API.
type Harvester struct {
	client *http.Client
	pacer  Pacer
	guard  Guard
	synth  ReviewSynthesizer
	cfg    HarvesterConfig
	logger *zap.Logger
}

// NewHarvester wires a Harvester. pacer and guard are optional.
func NewHarvester(client *http.Client, pacer Pacer, guard Guard, synth ReviewSynthesizer, cfg HarvesterConfig, logger *zap.Logger) *Harvester {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultReviewsBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		client: client,
		pacer:  pacer,
		guard:  guard,
		synth:  synth,
		cfg:    cfg,
		logger: logger.Named("harvester"),
	}
}

// Harvest returns at most targetPositive reviews rated 4-5 followed by at most
// targetNegative reviews rated 1-2. It never fails: when the API cannot be
// used it returns exactly targetPositive+targetNegative synthetic reviews, and
// when ctx is canceled it returns whatever was already collected.
func (h *Harvester) Harvest(ctx context.Context, creds Credentials, targetPositive, targetNegative int) []crawler.Review {
	targetPositive = max(targetPositive, 0)
	targetNegative = max(targetNegative, 0)
	logger := h.logger.With(zap.String("app_key", creds.AppKey), zap.String("product_id", creds.ProductID))

	positive, err := h.collect(ctx, creds, positiveBucket, targetPositive)
	var negative []crawler.Review
	if err == nil {
		negative, err = h.collect(ctx, creds, negativeBucket, targetNegative)
	}
	if err != nil {
		reason := fallbackReason(err)
		logger.Warn("review harvest degraded to synthetic reviews",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return h.fallback(reason, targetPositive, targetNegative)
	}

	out := make([]crawler.Review, 0, len(positive)+len(negative))
	out = append(out, positive...)
	out = append(out, negative...)
	logger.Info("reviews harvested",
		zap.Int("positive", len(positive)),
		zap.Int("negative", len(negative)),
	)
	return out
}

func (h *Harvester) fallback(reason string, targetPositive, targetNegative int) []crawler.Review {
	metrics.ObserveFallback(reason)
	if h.synth == nil {
		return []crawler.Review{}
	}
	out := make([]crawler.Review, 0, targetPositive+targetNegative)
	for _, part := range []struct {
		b      bucket
		target int
	}{{positiveBucket, targetPositive}, {negativeBucket, targetNegative}} {
		generated := h.synth.Generate(part.target, part.b.ratings, part.b.fallback)
		metrics.ObserveHarvestedReviews(part.b.fallback, string(part.b.category), len(generated))
		out = append(out, generated...)
	}
	return out
}

// pageState is the accumulator for one bucket's pagination loop.
type pageState struct {
	page      int
	collected []crawler.Review
	done      bool
}

// fold applies one page of items: keeps matching reviews up to target and
// marks the loop done when the page came back short.
func (s pageState) fold(b bucket, items []json.RawMessage, target, pageSize int, logger *zap.Logger) pageState {
	next := pageState{page: s.page + 1, collected: s.collected}
	for _, raw := range items {
		if len(next.collected) >= target {
			break
		}
		review, err := decodeReview(raw, s.page)
		if err != nil {
			logger.Debug("skipping undecodable review", zap.Int("page", s.page), zap.Error(err))
			continue
		}
		if !b.accepts(review.Rating) {
			continue
		}
		next.collected = append(next.collected, review)
	}
	next.done = len(items) < pageSize
	return next
}

func (s pageState) finished(target, maxPages int) bool {
	return s.done || len(s.collected) >= target || s.page > maxPages
}

// collect runs one bucket's pagination loop. A nil error with a short result
// means the loop ended normally (end of data, a terminal status, the page
// ceiling, or cancellation). A non-nil error means the API is unusable.
func (h *Harvester) collect(ctx context.Context, creds Credentials, b bucket, target int) ([]crawler.Review, error) {
	state := pageState{page: 1, collected: make([]crawler.Review, 0, target)}
	logger := h.logger.With(zap.String("bucket", string(b.category)))

	for !state.finished(target, h.cfg.MaxPages) {
		pageURL := h.pageURL(creds, state.page)
		if h.pacer != nil {
			if err := h.pacer.Wait(ctx, pageURL); err != nil {
				logger.Debug("pagination stopped while pacing", zap.Int("page", state.page), zap.Error(err))
				break
			}
		}

		res, err := h.fetchPage(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("pagination canceled", zap.Int("page", state.page), zap.Int("collected", len(state.collected)))
				break
			}
			var httpErr *crawler.HTTPError
			if errors.As(err, &httpErr) {
				metrics.ObserveHarvestPage("status")
				logger.Warn("reviews api returned error status",
					zap.Int("page", state.page),
					zap.Int("status", httpErr.Status),
				)
				break
			}
			metrics.ObserveHarvestPage("error")
			return state.collected, err
		}

		switch {
		case res.status == http.StatusNotFound:
			metrics.ObserveHarvestPage("not_found")
			logger.Info("no reviews for product", zap.Int("page", state.page))
			state.done = true
			continue
		case res.status != http.StatusOK:
			metrics.ObserveHarvestPage("status")
			logger.Warn("reviews api returned unexpected status", zap.Int("page", state.page), zap.Int("status", res.status))
			state.done = true
			continue
		case len(res.items) == 0:
			metrics.ObserveHarvestPage("empty")
			state.done = true
			continue
		}
		metrics.ObserveHarvestPage("ok")

		before := len(state.collected)
		state = state.fold(b, res.items, target, h.cfg.PageSize, logger)
		logger.Debug("reviews page folded",
			zap.Int("page", state.page-1),
			zap.Int("returned", len(res.items)),
			zap.Int("kept", len(state.collected)-before),
			zap.Int("collected", len(state.collected)),
		)
	}
	metrics.ObserveHarvestedReviews(SourceYotpo, string(b.category), len(state.collected))
	return state.collected, nil
}

type pageResult struct {
	status int
	items  []json.RawMessage
}

type reviewsPage struct {
	Reviews  []json.RawMessage `json:"reviews"`
	Response *struct {
		Reviews []json.RawMessage `json:"reviews"`
	} `json:"response"`
}

func (h *Harvester) fetchPage(ctx context.Context, pageURL string) (pageResult, error) {
	var res pageResult
	call := func() error {
		var err error
		res, err = h.doPage(ctx, pageURL)
		return err
	}
	if h.guard == nil {
		return res, call()
	}
	return res, h.guard.Execute(call)
}

// doPage performs one request. 5xx responses come back as *crawler.HTTPError
// so the guard counts them as failures; other statuses are returned as data.
func (h *Harvester) doPage(ctx context.Context, pageURL string) (pageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return pageResult{}, fmt.Errorf("build reviews request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return pageResult{}, fmt.Errorf("fetch reviews page: %w", crawler.ClassifyTransportError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return pageResult{}, &crawler.HTTPError{Status: resp.StatusCode, URL: pageURL}
	}
	if resp.StatusCode != http.StatusOK {
		return pageResult{status: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return pageResult{}, fmt.Errorf("read reviews page: %w", crawler.ClassifyTransportError(err))
	}
	var page reviewsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return pageResult{}, fmt.Errorf("decode reviews page: %w: %w", crawler.ErrInvalidFormat, err)
	}
	items := page.Reviews
	if len(items) == 0 && page.Response != nil {
		items = page.Response.Reviews
	}
	return pageResult{status: resp.StatusCode, items: items}, nil
}

func (h *Harvester) pageURL(creds Credentials, page int) string {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("count", fmt.Sprint(h.cfg.PageSize))
	q.Set("sort", "date")
	return fmt.Sprintf("%s/apps/%s/products/%s/reviews.json?%s",
		h.cfg.BaseURL, url.PathEscape(creds.AppKey), url.PathEscape(creds.ProductID), q.Encode())
}

type yotpoReview struct {
	ID      any          `json:"id"`
	Score   *json.Number `json:"score"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
	User    *struct {
		DisplayName string `json:"display_name"`
	} `json:"user"`
	CreatedAt     string `json:"created_at"`
	VerifiedBuyer bool   `json:"verified_buyer"`
	VotesUp       int    `json:"votes_up"`
}

func decodeReview(raw json.RawMessage, page int) (crawler.Review, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var item yotpoReview
	if err := dec.Decode(&item); err != nil {
		return crawler.Review{}, fmt.Errorf("decode review: %w", err)
	}

	rating := 5
	if item.Score != nil {
		// Some stores report scores as 5.0 or "4"; fractions truncate.
		score, err := item.Score.Float64()
		if err != nil || math.IsInf(score, 0) {
			return crawler.Review{}, fmt.Errorf("review score %q: invalid number", item.Score.String())
		}
		rating = int(math.Trunc(score))
	}
	author := "Anonymous"
	if item.User != nil && item.User.DisplayName != "" {
		author = item.User.DisplayName
	}
	var id string
	if item.ID != nil {
		id = fmt.Sprint(item.ID)
	}
	return crawler.Review{
		ID:               id,
		Rating:           rating,
		Title:            item.Title,
		Content:          item.Content,
		Author:           author,
		Date:             item.CreatedAt,
		VerifiedPurchase: item.VerifiedBuyer,
		HelpfulCount:     item.VotesUp,
		Source:           SourceYotpo,
		Page:             page,
		Category:         crawler.CategoryFor(rating),
		Raw:              append(json.RawMessage(nil), raw...),
	}, nil
}

func fallbackReason(err error) string {
	switch {
	case httpclient.IsOpen(err):
		return "breaker_open"
	case errors.Is(err, crawler.ErrTimeout):
		return "timeout"
	case errors.Is(err, crawler.ErrInvalidFormat):
		return "malformed"
	default:
		return "transport"
	}
}
