package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/revcopy-crawler/internal/config"
	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/shopify"
)

type stubExtractor struct {
	snap *shopify.Snapshot
	err  error
}

func (s stubExtractor) Extract(context.Context, string, bool) (*shopify.Snapshot, error) {
	return s.snap, s.err
}

func (s stubExtractor) StoreInfo(context.Context, string) (crawler.StoreInfo, error) {
	return crawler.StoreInfo{}, nil
}

func TestExtractOnceWritesJSON(t *testing.T) {
	t.Parallel()

	snap := shopify.NewSnapshot(map[string]any{"id": "1", "title": "Widget"}, "https://shop.example/products/widget", nil)
	var buf bytes.Buffer
	require.NoError(t, extractOnce(context.Background(), stubExtractor{snap: snap}, "https://shop.example/products/widget", false, &buf))

	var view shopify.ProductView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	require.Equal(t, "Widget", view.Title)
}

func TestExtractOncePropagatesErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := extractOnce(context.Background(), stubExtractor{err: crawler.ErrNotFound}, "https://shop.example/products/x", true, &buf)
	require.True(t, errors.Is(err, crawler.ErrNotFound))
	require.Zero(t, buf.Len())
}

func TestListenPortDefaultsToConfig(t *testing.T) {
	t.Setenv("PORT", "")
	require.Equal(t, 8080, listenPort(config.Config{Server: config.ServerConfig{Port: 8080}}))

	t.Setenv("PORT", "9090")
	require.Equal(t, 9090, listenPort(config.Config{Server: config.ServerConfig{Port: 8080}}))
}
