// Package api exposes the HTTP interface for the extraction service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/aiprovider"
	"github.com/JakeFAU/revcopy-crawler/internal/config"
	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/logging"
	"github.com/JakeFAU/revcopy-crawler/internal/metrics"
	"github.com/JakeFAU/revcopy-crawler/internal/shopify"
)

// maxRequestBytes caps JSON request bodies.
const maxRequestBytes = 1 << 20

// Extractor produces product snapshots and storefront metadata.
type Extractor interface {
	Extract(ctx context.Context, rawURL string, includeReviews bool) (*shopify.Snapshot, error)
	StoreInfo(ctx context.Context, rawURL string) (crawler.StoreInfo, error)
}

// Store persists products and analyses and reports its own readiness.
type Store interface {
	crawler.ProductStore
	crawler.AnalysisStore
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into. Publisher is optional.
type Deps struct {
	Extractor Extractor
	Store     Store
	Publisher crawler.Publisher
	Content   aiprovider.Provider
	IDs       crawler.IDGenerator
	Clock     crawler.Clock
}

// Server wires HTTP handlers to the extractor and stores.
type Server struct {
	router   chi.Router
	deps     Deps
	validate *validator.Validate
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) (*Server, error) {
	switch {
	case deps.Extractor == nil:
		return nil, errors.New("api server requires an extractor")
	case deps.Store == nil:
		return nil, errors.New("api server requires a store")
	case deps.Content == nil:
		return nil, errors.New("api server requires a content provider")
	case deps.IDs == nil || deps.Clock == nil:
		return nil, errors.New("api server requires an id generator and clock")
	}
	logger = logging.OrNop(logger)
	s := &Server{
		deps:     deps,
		validate: newValidator(),
		logger:   logger,
	}

	budget := cfg.RequestBudget()
	if budget <= 0 {
		budget = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(budget))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/extract", s.extractProduct)
			r.Post("/analyze", s.analyzeProduct)
			r.Get("/{product_id}", s.getProduct)
		})
		r.Get("/stores/info", s.storeInfo)
		r.Post("/content/generate", s.generateContent)
	})

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decodeBody reads a JSON body into dst and runs struct validation.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return "invalid URL"
	}
	return fe.Field() + " failed " + fe.Tag() + " validation"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
