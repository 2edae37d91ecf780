// Package memory keeps products and analyses in-process for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

// Store implements crawler.ProductStore and crawler.AnalysisStore in memory.
type Store struct {
	mu       sync.RWMutex
	products map[string]crawler.ProductRecord
	byURL    map[string]string
	analyses map[string][]crawler.AnalysisRecord
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]crawler.ProductRecord),
		byURL:    make(map[string]string),
		analyses: make(map[string][]crawler.AnalysisRecord),
	}
}

// SaveProduct upserts by URL. A known URL keeps its original id.
func (s *Store) SaveProduct(_ context.Context, rec crawler.ProductRecord) (string, error) {
	if rec.ID == "" {
		return "", errors.New("record id is required")
	}
	if rec.URL == "" {
		return "", errors.New("record url is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byURL[rec.URL]; ok {
		rec.ID = existing
	}
	s.byURL[rec.URL] = rec.ID
	s.products[rec.ID] = cloneRecord(rec)
	return rec.ID, nil
}

// GetProduct returns a copy of the stored product.
func (s *Store) GetProduct(_ context.Context, id string) (crawler.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.products[id]
	if !ok {
		return crawler.ProductRecord{}, fmt.Errorf("product %s: %w", id, crawler.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

// SaveAnalysis appends an analysis for its product (or URL when no product id is set).
func (s *Store) SaveAnalysis(_ context.Context, rec crawler.AnalysisRecord) error {
	if rec.ID == "" {
		return errors.New("analysis id is required")
	}
	if len(rec.Result) == 0 {
		return errors.New("analysis result is required")
	}
	key := rec.ProductID
	if key == "" {
		key = rec.URL
	}
	rec.Result = append(json.RawMessage(nil), rec.Result...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[key] = append(s.analyses[key], rec)
	return nil
}

// Analyses lists analyses saved under key (a product id or URL), oldest first.
func (s *Store) Analyses(key string) []crawler.AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.AnalysisRecord, len(s.analyses[key]))
	copy(out, s.analyses[key])
	return out
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func cloneRecord(rec crawler.ProductRecord) crawler.ProductRecord {
	rec.Tags = append([]string(nil), rec.Tags...)
	rec.Images = append([]crawler.Image(nil), rec.Images...)
	reviews := make([]crawler.Review, len(rec.Reviews))
	for i, r := range rec.Reviews {
		r.Raw = append(json.RawMessage(nil), r.Raw...)
		if len(r.Raw) == 0 {
			r.Raw = nil
		}
		reviews[i] = r
	}
	rec.Reviews = reviews
	if rec.OriginalPrice != nil {
		v := *rec.OriginalPrice
		rec.OriginalPrice = &v
	}
	if rec.Rating != nil {
		v := *rec.Rating
		rec.Rating = &v
	}
	return rec
}
