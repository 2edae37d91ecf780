// Package app builds the long-lived services behind the HTTP API and the
// one-shot CLI from a loaded config, and tears them down again on exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/aiprovider"
	"github.com/JakeFAU/revcopy-crawler/internal/api"
	"github.com/JakeFAU/revcopy-crawler/internal/clock/system"
	"github.com/JakeFAU/revcopy-crawler/internal/config"
	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/revcopy-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/revcopy-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/revcopy-crawler/internal/hash/sha256"
	"github.com/JakeFAU/revcopy-crawler/internal/httpclient"
	"github.com/JakeFAU/revcopy-crawler/internal/id/uuid"
	"github.com/JakeFAU/revcopy-crawler/internal/logging"
	"github.com/JakeFAU/revcopy-crawler/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/revcopy-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/revcopy-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/revcopy-crawler/internal/shopify"
	memorystore "github.com/JakeFAU/revcopy-crawler/internal/storage/memory"
	"github.com/JakeFAU/revcopy-crawler/internal/storage/postgres"
	"github.com/JakeFAU/revcopy-crawler/internal/synthetic"
)

const breakerName = "review_api"

// App holds the shared services. Build it once at startup with New and
// release it with Close.
type App struct {
	Extractor *shopify.Extractor
	Store     api.Store
	Publisher crawler.Publisher
	Content   aiprovider.Provider
	IDs       crawler.IDGenerator
	Clock     crawler.Clock

	logger  *zap.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// New wires every service described by cfg. On error, anything already
// opened is closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{
		IDs:    uuid.New(),
		Clock:  system.New(),
		logger: logger,
	}
	if err := a.init(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, cfg config.Config) error {
	transport := httpclient.NewTransport(httpclient.Config{
		ConnectTimeout:     cfg.Crawler.ConnectTimeout,
		ReadTimeout:        cfg.Crawler.ReadTimeout,
		TotalTimeout:       cfg.Crawler.TotalTimeout,
		InsecureSkipVerify: cfg.Crawler.InsecureSkipVerify,
	})
	client := httpclient.NewClient(transport, cfg.Crawler.TotalTimeout)

	extractor, err := a.buildExtractor(cfg, transport, client)
	if err != nil {
		return err
	}
	a.Extractor = extractor

	if err := a.openStore(ctx, cfg.DB); err != nil {
		return err
	}
	if err := a.openPublisher(ctx, cfg.PubSub); err != nil {
		return err
	}

	content, err := aiprovider.New(aiprovider.Config{
		Provider:       cfg.AI.Provider,
		BaseURL:        cfg.AI.BaseURL,
		APIKey:         cfg.AI.APIKey,
		Model:          cfg.AI.Model,
		Timeout:        cfg.AI.Timeout,
		MaxAttempts:    cfg.AI.MaxAttempts,
		InitialBackoff: cfg.AI.InitialBackoff,
	}, nil, a.logger.Named("ai"))
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	a.Content = content
	a.logger.Info("application services initialized",
		zap.String("ai_provider", content.Name()),
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.Bool("synthetic_fallback", cfg.Synthetic.Enabled),
	)
	return nil
}

func (a *App) buildExtractor(cfg config.Config, transport http.RoundTripper, client *http.Client) (*shopify.Extractor, error) {
	products := shopify.NewProductFetcher(client, sha256.New(), shopify.FetcherConfig{
		UserAgent:    cfg.Crawler.UserAgent,
		MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
	}, a.logger.Named("products"))

	pages := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.Crawler.TotalTimeout,
		MaxBodyBytes:  int(cfg.Crawler.MaxBodyBytes),
	}, transport)

	breaker := httpclient.NewBreaker(httpclient.BreakerConfig{
		Name:         breakerName,
		MaxRequests:  1,
		Interval:     cfg.Harvest.Breaker.Interval,
		Timeout:      cfg.Harvest.Breaker.OpenTimeout,
		FailureRatio: cfg.Harvest.Breaker.FailureRatio,
		MinRequests:  cfg.Harvest.Breaker.MinRequests,
	}, a.logger.Named("breaker"))

	var synth shopify.ReviewSynthesizer
	if cfg.Synthetic.Enabled {
		genCfg := synthetic.DefaultConfig()
		genCfg.MaxAgeDays = cfg.Synthetic.MaxAgeDays
		genCfg.PageSize = cfg.Harvest.PageSize
		synth = synthetic.NewSeeded(cfg.Synthetic.Seed, a.Clock, synthetic.WithConfig(genCfg))
	}

	harvester := shopify.NewHarvester(
		client,
		ratelimit.New(ratelimit.Config{Interval: cfg.Harvest.PageDelay, Burst: 1}),
		breaker,
		synth,
		shopify.HarvesterConfig{
			BaseURL:        cfg.Harvest.BaseURL,
			PageSize:       cfg.Harvest.PageSize,
			MaxPages:       cfg.Harvest.MaxPages,
			RequestTimeout: cfg.Harvest.RequestTimeout,
			UserAgent:      cfg.Crawler.UserAgent,
		},
		a.logger.Named("harvester"),
	)

	opts := shopify.Options{
		Products:       products,
		Pages:          pages,
		Reviews:        harvester,
		Clock:          a.Clock,
		TargetPositive: cfg.Harvest.TargetPositive,
		TargetNegative: cfg.Harvest.TargetNegative,
		Logger:         a.logger.Named("extractor"),

		StoreInfoCacheSize: cfg.Crawler.StoreInfoCacheSize,
		StoreInfoTTL:       cfg.Crawler.StoreInfoTTL,
	}
	if cfg.Headless.Enabled {
		renderer, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			a.logger.Warn("headless fetcher init failed; continuing without rendering", zap.Error(err))
		} else {
			opts.Renderer = renderer
			opts.Promoter = headlessfetcher.NewRenderHeuristic(cfg.Headless.PromotionThresh)
			a.addCloser("headless", func() error {
				renderer.Close()
				return nil
			})
		}
	}

	extractor, err := shopify.NewExtractor(opts)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	return extractor, nil
}

func (a *App) openStore(ctx context.Context, cfg config.DBConfig) error {
	if cfg.DSN == "" {
		a.logger.Info("using in-memory store; products are not durable")
		a.Store = memorystore.NewStore()
		return nil
	}
	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.DSN,
		MaxConns: int32(cfg.MaxOpenConns),
		MinConns: int32(cfg.MaxIdleConns),
	})
	if err != nil {
		return fmt.Errorf("init postgres store: %w", err)
	}
	a.addCloser("postgres", func() error {
		store.Close()
		return nil
	})
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.logger.Info("connected to postgres")
	a.Store = store
	return nil
}

func (a *App) openPublisher(ctx context.Context, cfg config.PubSubConfig) error {
	if cfg.ProjectID == "" {
		a.Publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	a.addCloser("pubsub client", client.Close)
	pub := pubsubpublisher.New(client, cfg.TopicName)
	a.addCloser("pubsub publisher", func() error {
		pub.Close()
		return nil
	})
	a.logger.Info("publishing events to pubsub",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.TopicName),
	)
	a.Publisher = pub
	return nil
}

// APIDeps returns the collaborators the HTTP server needs.
func (a *App) APIDeps() api.Deps {
	return api.Deps{
		Extractor: a.Extractor,
		Store:     a.Store,
		Publisher: a.Publisher,
		Content:   a.Content,
		IDs:       a.IDs,
		Clock:     a.Clock,
	}
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases services in reverse order of creation and reports the
// combined error. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", zap.String("service", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
