// Package main runs the review extraction service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/api"
	"github.com/JakeFAU/revcopy-crawler/internal/app"
	"github.com/JakeFAU/revcopy-crawler/internal/config"
	"github.com/JakeFAU/revcopy-crawler/internal/logging"
	"github.com/JakeFAU/revcopy-crawler/internal/metrics"
	"github.com/JakeFAU/revcopy-crawler/internal/shopify"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	extractURL := flag.String("extract", "", "Extract one product URL, print it as JSON, and exit")
	withReviews := flag.Bool("reviews", true, "Harvest reviews when using -extract")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger, *extractURL, *withReviews)
	stop()
	if syncErr := logger.Sync(); syncErr != nil && !errors.Is(syncErr, syscall.EINVAL) {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, extractURL string, withReviews bool) int {
	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init services failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	if extractURL != "" {
		if err := extractOnce(ctx, services.Extractor, extractURL, withReviews, os.Stdout); err != nil {
			logger.Error("extraction failed", zap.String("url", extractURL), zap.Error(err))
			return 1
		}
		return 0
	}
	if err := serve(ctx, cfg, services, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

// extractOnce writes the snapshot for rawURL to w as indented JSON.
func extractOnce(ctx context.Context, ex api.Extractor, rawURL string, withReviews bool, w io.Writer) error {
	snap, err := ex.Extract(ctx, rawURL, withReviews)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap.View())
}

func serve(ctx context.Context, cfg config.Config, services *app.App, logger *zap.Logger) error {
	apiServer, err := api.NewServer(services.APIDeps(), cfg, logger.Named("api"))
	if err != nil {
		return fmt.Errorf("init api server: %w", err)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", listenPort(cfg)),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// listenPort honors PORT for Cloud Run style deployments.
func listenPort(cfg config.Config) int {
	if raw := os.Getenv("PORT"); raw != "" {
		var port int
		if _, err := fmt.Sscanf(raw, "%d", &port); err == nil && port > 0 {
			return port
		}
	}
	return cfg.Server.Port
}

var _ api.Extractor = (*shopify.Extractor)(nil)
