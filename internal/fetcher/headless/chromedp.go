// Package headless renders storefront pages in headless Chrome so that review
// widgets injected by JavaScript become visible to the widget detector.
package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

const (
	defaultNavTimeout = 25 * time.Second
	defaultWidgetWait = 3 * time.Second
	widgetPollEvery   = 100 * time.Millisecond
)

// widgetSelectors match the containers review apps mount into once their
// loader script has run.
var widgetSelectors = []string{
	".yotpo-widget-instance",
	"[data-yotpo-instance-id]",
	".yotpo-main-widget",
	".jdgm-widget",
	".jdgm-rev-widg",
	".stamped-main-widget",
	"#shopify-product-reviews",
}

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	// WidgetWait caps how long to wait for a review widget container to
	// appear after the body is ready. Pages without a widget use it all.
	WidgetWait time.Duration
}

// Fetcher renders pages for the extractor using chromedp and headless Chrome.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp. Chrome is not
// started until the first Fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.WidgetWait <= 0 {
		cfg.WidgetWait = defaultWidgetWait
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context, shutting Chrome down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch navigates to the product page, waits for a review widget to mount and
// returns the rendered DOM. A non-2xx document response yields an
// *crawler.HTTPError alongside the response.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	if err := f.acquire(ctx); err != nil {
		return crawler.FetchResponse{}, err
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.navTimeout())
	defer cancel()

	doc := &documentResponse{}
	chromedp.ListenTarget(taskCtx, doc.captureEvent)

	start := time.Now()
	html, finalURL, err := f.render(taskCtx, request.URL)
	if err != nil {
		return crawler.FetchResponse{}, err
	}

	status, responseURL := doc.result(request.URL, finalURL)
	resp := crawler.FetchResponse{
		URL:          responseURL,
		StatusCode:   status,
		Headers:      http.Header{},
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}
	if status < 200 || status > 299 {
		return resp, &crawler.HTTPError{Status: status, URL: request.URL}
	}
	return resp, nil
}

func (f *Fetcher) render(ctx context.Context, rawURL string) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	if err := chromedp.Run(ctx,
		f.setup(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		f.awaitWidget(),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", crawler.ClassifyTransportError(err))
	}
	return html, finalURL, nil
}

func (f *Fetcher) setup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// awaitWidget polls until a review widget container exists. Running out of
// time is not an error: the page may simply have no widget.
func (f *Fetcher) awaitWidget() chromedp.Action {
	expr := widgetReadyExpression(widgetSelectors)
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var found bool
		err := chromedp.Poll(expr, &found,
			chromedp.WithPollingInterval(widgetPollEvery),
			chromedp.WithPollingTimeout(f.widgetWait()),
		).Do(ctx)
		if err == nil || errors.Is(err, chromedp.ErrPollingTimeout) {
			return nil
		}
		return err
	})
}

// widgetReadyExpression builds a JS predicate that is truthy once any selector
// matches an element.
func widgetReadyExpression(selectors []string) string {
	quoted := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		b, _ := json.Marshal(sel)
		quoted = append(quoted, string(b))
	}
	return fmt.Sprintf("[%s].some(s => document.querySelector(s) !== null)", strings.Join(quoted, ","))
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

func (f *Fetcher) navTimeout() time.Duration {
	if f.cfg.NavigationTimeout > 0 {
		return f.cfg.NavigationTimeout
	}
	return defaultNavTimeout
}

func (f *Fetcher) widgetWait() time.Duration {
	if f.cfg.WidgetWait > 0 {
		return f.cfg.WidgetWait
	}
	return defaultWidgetWait
}

// documentResponse records the first document response of the tab. Chrome
// reports redirect hops on the request, so the first response is the page
// itself and later ones belong to iframes.
type documentResponse struct {
	mu     sync.Mutex
	status int
	url    string
}

func (d *documentResponse) captureEvent(ev any) {
	event, ok := ev.(*network.EventResponseReceived)
	if !ok || event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != 0 {
		return
	}
	d.status = int(event.Response.Status)
	d.url = event.Response.URL
}

// result falls back to the browser location, then the requested URL, and
// treats a missing status (cached document) as 200.
func (d *documentResponse) result(requestURL, finalURL string) (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, url := d.status, d.url
	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, url
}
