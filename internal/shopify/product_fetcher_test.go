package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/hash/sha256"
)

func newProductServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchProductSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	srv := newProductServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(widgetPayload))
	})

	f := NewProductFetcher(srv.Client(), sha256.New(), FetcherConfig{UserAgent: "t"}, nil)
	snap, err := f.FetchProduct(context.Background(), srv.URL+"/products/widget?variant=1")
	require.NoError(t, err)
	require.Equal(t, "/products/widget.json", gotPath)
	require.Empty(t, gotQuery)
	require.Equal(t, "Widget", snap.Title())
	require.Equal(t, 2, snap.VariantCount())
	require.Len(t, snap.PayloadDigest(), 64)
	require.Equal(t, srv.URL+"/products/widget?variant=1", snap.SourceURL())
}

func TestFetchProductErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		check       func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check:  func(t *testing.T, err error) { require.ErrorIs(t, err, crawler.ErrNotFound) },
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var httpErr *crawler.HTTPError
				require.ErrorAs(t, err, &httpErr)
				require.Equal(t, http.StatusBadGateway, httpErr.Status)
			},
		},
		{
			name:        "html instead of json",
			status:      http.StatusOK,
			contentType: "text/html",
			body:        "<html></html>",
			check:       func(t *testing.T, err error) { require.ErrorIs(t, err, crawler.ErrInvalidFormat) },
		},
		{
			name:        "missing product key",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"products":[]}`,
			check:       func(t *testing.T, err error) { require.ErrorIs(t, err, crawler.ErrInvalidFormat) },
		},
		{
			name:        "product not an object",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"product":"nope"}`,
			check:       func(t *testing.T, err error) { require.ErrorIs(t, err, crawler.ErrInvalidFormat) },
		},
		{
			name:        "broken json",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"product":`,
			check:       func(t *testing.T, err error) { require.ErrorIs(t, err, crawler.ErrInvalidFormat) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newProductServer(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			f := NewProductFetcher(srv.Client(), nil, FetcherConfig{}, nil)
			snap, err := f.FetchProduct(context.Background(), srv.URL+"/products/widget")
			require.Nil(t, snap)
			tt.check(t, err)
		})
	}
}

func TestFetchProductBodyLimit(t *testing.T) {
	t.Parallel()

	srv := newProductServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"product":{"title":"` + strings.Repeat("x", 256) + `"}}`))
	})
	f := NewProductFetcher(srv.Client(), nil, FetcherConfig{MaxBodyBytes: 64}, nil)
	_, err := f.FetchProduct(context.Background(), srv.URL+"/products/widget")
	require.ErrorIs(t, err, crawler.ErrInvalidFormat)
}

func TestFetchProductTimeout(t *testing.T) {
	t.Parallel()

	srv := newProductServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	f := NewProductFetcher(client, nil, FetcherConfig{}, nil)
	_, err := f.FetchProduct(context.Background(), srv.URL+"/products/widget")
	require.ErrorIs(t, err, crawler.ErrTimeout)
}

type failingHasher struct{}

func (failingHasher) Hash([]byte) (string, error) { return "", errors.New("no digest") }

func TestFetchProductHashFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	srv := newProductServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(widgetPayload))
	})
	f := NewProductFetcher(srv.Client(), failingHasher{}, FetcherConfig{}, nil)
	snap, err := f.FetchProduct(context.Background(), srv.URL+"/products/widget")
	require.NoError(t, err)
	require.Empty(t, snap.PayloadDigest())
}
