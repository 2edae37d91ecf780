package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/analysis"
	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/shopify"
)

type extractRequest struct {
	URL            string `json:"url" validate:"required,url"`
	IncludeReviews *bool  `json:"include_reviews"`
	Persist        bool   `json:"persist"`
}

type extractResponse struct {
	ProductID string              `json:"product_id,omitempty"`
	Product   shopify.ProductView `json:"product"`
}

type analyzeRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type analyzeResponse struct {
	ProductID  string          `json:"product_id"`
	AnalysisID string          `json:"analysis_id"`
	URL        string          `json:"url"`
	Title      string          `json:"title"`
	Analysis   analysis.Result `json:"analysis"`
}

func (s *Server) extractProduct(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	include := true
	if req.IncludeReviews != nil {
		include = *req.IncludeReviews
	}
	snap, err := s.deps.Extractor.Extract(r.Context(), req.URL, include)
	if err != nil {
		s.writeExtractionError(w, r, req.URL, err)
		return
	}
	resp := extractResponse{Product: snap.View()}
	if req.Persist {
		id, err := s.persist(r.Context(), snap)
		if err != nil {
			s.logger.Error("persist product failed", zap.String("url", req.URL), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to persist product")
			return
		}
		resp.ProductID = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) analyzeProduct(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	snap, err := s.deps.Extractor.Extract(r.Context(), req.URL, true)
	if err != nil {
		s.writeExtractionError(w, r, req.URL, err)
		return
	}
	productID, err := s.persist(r.Context(), snap)
	if err != nil {
		s.logger.Error("persist product failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist product")
		return
	}

	now := s.deps.Clock.Now()
	result := analysis.Analyze(snap.Reviews(), now)
	analysisID, err := s.saveAnalysis(r.Context(), productID, snap.SourceURL(), result)
	if err != nil {
		s.logger.Error("persist analysis failed", zap.String("product_id", productID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist analysis")
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		ProductID:  productID,
		AnalysisID: analysisID,
		URL:        snap.SourceURL(),
		Title:      snap.Title(),
		Analysis:   result,
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")
	rec, err := s.deps.Store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		s.logger.Error("load product failed", zap.String("product_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) storeInfo(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	info, err := s.deps.Extractor.StoreInfo(r.Context(), rawURL)
	if err != nil {
		if errors.Is(err, shopify.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "invalid URL")
			return
		}
		s.logger.Warn("store info failed", zap.String("url", rawURL), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to fetch store info")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// persist stores the snapshot and announces it. Publish failures are logged
// and do not fail the request.
func (s *Server) persist(ctx context.Context, snap *shopify.Snapshot) (string, error) {
	id, err := s.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate product id: %w", err)
	}
	now := s.deps.Clock.Now()
	rec := snap.Record(id, now)
	storedID, err := s.deps.Store.SaveProduct(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("save product: %w", err)
	}
	if s.deps.Publisher == nil {
		return storedID, nil
	}
	event := crawler.ProductExtractedEvent{
		ProductID:        storedID,
		ExternalID:       rec.ExternalID,
		URL:              rec.URL,
		ReviewCount:      rec.ReviewCount,
		SyntheticReviews: rec.Metadata.SyntheticReviews,
		PayloadDigest:    rec.Metadata.PayloadDigest,
		ExtractedAt:      now,
	}
	if _, err := s.deps.Publisher.Publish(ctx, crawler.TopicProductExtracted, event); err != nil {
		s.logger.Warn("publish product event failed", zap.String("product_id", storedID), zap.Error(err))
	}
	return storedID, nil
}

func (s *Server) saveAnalysis(ctx context.Context, productID, url string, result analysis.Result) (string, error) {
	id, err := s.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate analysis id: %w", err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}
	rec := crawler.AnalysisRecord{
		ID:        id,
		ProductID: productID,
		URL:       url,
		Result:    payload,
		CreatedAt: s.deps.Clock.Now(),
	}
	if err := s.deps.Store.SaveAnalysis(ctx, rec); err != nil {
		return "", fmt.Errorf("save analysis: %w", err)
	}
	return id, nil
}

// writeExtractionError maps extractor failures onto HTTP statuses.
func (s *Server) writeExtractionError(w http.ResponseWriter, r *http.Request, url string, err error) {
	switch {
	case errors.Is(err, shopify.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "invalid URL")
	case errors.Is(err, shopify.ErrUnsupportedPlatform):
		writeError(w, http.StatusUnprocessableEntity, "unsupported e-commerce platform")
	case errors.Is(err, crawler.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		s.logger.Debug("extraction canceled by client", zap.String("url", url))
		writeError(w, http.StatusRequestTimeout, "request canceled")
	default:
		s.logger.Warn("extraction failed", zap.String("url", url), zap.Error(err))
		writeError(w, http.StatusBadGateway, "extraction failed")
	}
}
