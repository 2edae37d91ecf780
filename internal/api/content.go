package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/aiprovider"
)

type generateResponse struct {
	Provider string `json:"provider"`
	Content  string `json:"content"`
}

func (s *Server) generateContent(w http.ResponseWriter, r *http.Request) {
	var req aiprovider.Request
	if !s.decodeBody(w, r, &req) {
		return
	}
	content, err := s.deps.Content.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, aiprovider.ErrEmptyPrompt) {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		s.logger.Warn("content generation failed",
			zap.String("provider", s.deps.Content.Name()),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "content generation failed")
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Provider: s.deps.Content.Name(), Content: content})
}
