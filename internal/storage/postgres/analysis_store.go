package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

const insertAnalysisSQL = `
INSERT INTO analyses (id, product_id, url, result, created_at)
VALUES ($1, $2, $3, $4, $5)`

// SaveAnalysis inserts an analysis row.
func (s *Store) SaveAnalysis(ctx context.Context, rec crawler.AnalysisRecord) error {
	if rec.ID == "" {
		return errors.New("analysis id is required")
	}
	if len(rec.Result) == 0 {
		return errors.New("analysis result is required")
	}
	if _, err := s.pool.Exec(ctx, insertAnalysisSQL,
		rec.ID, rec.ProductID, rec.URL, []byte(rec.Result), rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}
