package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
	"github.com/JakeFAU/revcopy-crawler/internal/httpclient"
	"github.com/JakeFAU/revcopy-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/revcopy-crawler/internal/synthetic"
)

const reviewsRoute = `=~^https://reviews\.test/v1/apps/abc123/products/1234567890/reviews\.json`

var testCreds = Credentials{AppKey: "abc123", ProductID: "1234567890"}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type openGuard struct{ calls int }

func (g *openGuard) Execute(func() error) error {
	g.calls++
	return httpclient.ErrCircuitOpen
}

func reviewsBody(t *testing.T, scores ...int) string {
	t.Helper()
	items := make([]map[string]any, 0, len(scores))
	for i, s := range scores {
		items = append(items, map[string]any{
			"id":             1000 + i,
			"score":          s,
			"title":          "title " + strconv.Itoa(i),
			"content":        "content",
			"user":           map[string]any{"display_name": "Reviewer"},
			"created_at":     "2024-05-01T12:00:00.000Z",
			"verified_buyer": true,
			"votes_up":       i,
		})
	}
	raw, err := json.Marshal(map[string]any{"reviews": items})
	require.NoError(t, err)
	return string(raw)
}

// pagedResponder serves pages[n-1] for ?page=n and an empty page past the end.
func pagedResponder(pages ...string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		n, err := strconv.Atoi(req.URL.Query().Get("page"))
		if err != nil || n < 1 || n > len(pages) {
			return httpmock.NewStringResponse(http.StatusOK, `{"reviews":[]}`), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, pages[n-1]), nil
	}
}

func newTestHarvester(transport http.RoundTripper, guard Guard, pageSize, maxPages int) *Harvester {
	synth := synthetic.NewSeeded(7, fixedClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})
	return NewHarvester(&http.Client{Transport: transport}, nil, guard, synth, HarvesterConfig{
		BaseURL:        "https://reviews.test/v1/",
		PageSize:       pageSize,
		MaxPages:       maxPages,
		RequestTimeout: time.Second,
	}, nil)
}

func TestHarvestBalancedBuckets(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, reviewsRoute, pagedResponder(
		reviewsBody(t, 5, 4, 3, 5, 1),
		reviewsBody(t, 2, 4, 1),
	))

	h := newTestHarvester(transport, nil, 5, 10)
	reviews := h.Harvest(context.Background(), testCreds, 3, 2)

	require.Len(t, reviews, 5)
	for i, r := range reviews[:3] {
		require.Equalf(t, crawler.CategoryPositive, r.Category, "review %d", i)
		require.GreaterOrEqual(t, r.Rating, 4)
		require.Equal(t, SourceYotpo, r.Source)
		require.Equal(t, 1, r.Page)
	}
	require.Equal(t, 1, reviews[3].Rating)
	require.Equal(t, 1, reviews[3].Page)
	require.Equal(t, 2, reviews[4].Rating)
	require.Equal(t, 2, reviews[4].Page)
	require.Equal(t, crawler.CategoryNegative, reviews[4].Category)
	require.Equal(t, "1000", reviews[0].ID)
	require.Equal(t, "Reviewer", reviews[0].Author)
	require.True(t, reviews[0].VerifiedPurchase)
	require.NotEmpty(t, reviews[0].Raw)
	require.Zero(t, crawler.CountSynthetic(reviews))
}

func TestHarvestRespectsPageCeiling(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	full := reviewsBody(t, 5, 5, 5)
	transport.RegisterResponder(http.MethodGet, reviewsRoute, pagedResponder(full, full, full, full, full))

	h := newTestHarvester(transport, nil, 3, 2)
	reviews := h.Harvest(context.Background(), testCreds, 100, 100)

	require.Len(t, reviews, 6)
	require.Equal(t, 4, transport.GetTotalCallCount())
}

func TestHarvestNeverExceedsTargets(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, reviewsRoute, pagedResponder(
		reviewsBody(t, 5, 5, 5, 1, 1, 1, 2, 2),
	))

	h := newTestHarvester(transport, nil, 8, 10)
	reviews := h.Harvest(context.Background(), testCreds, 2, 4)

	var pos, neg int
	for _, r := range reviews {
		switch r.Category {
		case crawler.CategoryPositive:
			pos++
		case crawler.CategoryNegative:
			neg++
		}
	}
	require.Equal(t, 2, pos)
	require.Equal(t, 4, neg)
}

func TestHarvestAlternateEnvelopeAndBadItems(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, reviewsRoute, httpmock.NewStringResponder(http.StatusOK,
		`{"response":{"reviews":[{"id":"a","score":{}},{"id":"b","title":"no score"},{"id":"c","score":1}]}}`))

	h := newTestHarvester(transport, nil, 50, 10)
	reviews := h.Harvest(context.Background(), testCreds, 5, 5)

	require.Len(t, reviews, 2)
	require.Equal(t, "b", reviews[0].ID)
	require.Equal(t, 5, reviews[0].Rating)
	require.Equal(t, "Anonymous", reviews[0].Author)
	require.Equal(t, "c", reviews[1].ID)
}

func TestDecodeReviewScoreForms(t *testing.T) {
	t.Parallel()

	var items []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"score":5.0},{"id":2,"score":"4"},{"id":3,"score":1},{"id":4,"score":3.7}]`), &items))

	want := []int{5, 4, 1, 3}
	for i, raw := range items {
		review, err := decodeReview(raw, 1)
		require.NoError(t, err)
		require.Equal(t, want[i], review.Rating)
	}

	_, err := decodeReview(json.RawMessage(`{"id":5,"score":"five"}`), 1)
	require.Error(t, err)
}

func TestHarvestAcceptsFloatScores(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, reviewsRoute, httpmock.NewStringResponder(http.StatusOK,
		`{"reviews":[{"id":1,"score":5.0},{"id":2,"score":"4"},{"id":3,"score":1}]}`))

	h := newTestHarvester(transport, nil, 50, 10)
	reviews := h.Harvest(context.Background(), testCreds, 5, 5)

	ratings := map[string]int{}
	for _, r := range reviews {
		if !r.IsSynthetic() {
			ratings[r.ID] = r.Rating
		}
	}
	require.Equal(t, map[string]int{"1": 5, "2": 4, "3": 1}, ratings)
}

func TestHarvestStopsOnTerminalStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder(http.MethodGet, reviewsRoute, httpmock.NewStringResponder(status, ""))

			h := newTestHarvester(transport, nil, 50, 10)
			reviews := h.Harvest(context.Background(), testCreds, 5, 5)

			require.NotNil(t, reviews)
			require.Empty(t, reviews)
			require.Equal(t, 2, transport.GetTotalCallCount())
		})
	}
}

func TestHarvestFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		guard     Guard
	}{
		{name: "transport error", responder: httpmock.NewErrorResponder(errors.New("connection refused"))},
		{name: "malformed json", responder: httpmock.NewStringResponder(http.StatusOK, `{"reviews":[`)},
		{name: "breaker open", responder: httpmock.NewStringResponder(http.StatusOK, `{"reviews":[]}`), guard: &openGuard{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder(http.MethodGet, reviewsRoute, tt.responder)

			h := newTestHarvester(transport, tt.guard, 50, 10)
			reviews := h.Harvest(context.Background(), testCreds, 4, 3)

			require.Len(t, reviews, 7)
			require.Equal(t, 7, crawler.CountSynthetic(reviews))
			for _, r := range reviews[:4] {
				require.Equal(t, "positive_fallback", r.Source)
				require.Contains(t, []int{4, 5}, r.Rating)
			}
			for _, r := range reviews[4:] {
				require.Equal(t, "negative_fallback", r.Source)
				require.Contains(t, []int{1, 2}, r.Rating)
			}
		})
	}
}

func TestHarvestCanceledReturnsPartial(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, reviewsRoute, pagedResponder(reviewsBody(t, 5, 5)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newTestHarvester(transport, nil, 2, 10)
	h.pacer = ratelimit.New(ratelimit.Config{Interval: time.Millisecond})
	reviews := h.Harvest(ctx, testCreds, 10, 10)

	require.Empty(t, reviews)
	require.Zero(t, crawler.CountSynthetic(reviews))
	require.Zero(t, transport.GetTotalCallCount())
}

func TestHarvestZeroTargetsSkipsNetwork(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	h := newTestHarvester(transport, nil, 50, 10)

	reviews := h.Harvest(context.Background(), testCreds, 0, -3)
	require.Empty(t, reviews)
	require.Zero(t, transport.GetTotalCallCount())
}

func TestHarvestPageURL(t *testing.T) {
	t.Parallel()

	h := newTestHarvester(httpmock.NewMockTransport(), nil, 50, 10)
	require.Equal(t,
		"https://reviews.test/v1/apps/abc123/products/1234567890/reviews.json?count=50&page=3&sort=date",
		h.pageURL(testCreds, 3),
	)
}

func TestPageStateFold(t *testing.T) {
	t.Parallel()

	items := []json.RawMessage{
		json.RawMessage(`{"id":1,"score":5}`),
		json.RawMessage(`{"id":2,"score":1}`),
		json.RawMessage(`{"id":3,"score":4}`),
	}
	nop := zap.NewNop()

	state := pageState{page: 1}
	next := state.fold(positiveBucket, items, 5, 3, nop)
	require.Equal(t, 2, next.page)
	require.Len(t, next.collected, 2)
	require.False(t, next.done)
	require.False(t, next.finished(5, 10))
	require.True(t, next.finished(5, 1))

	last := next.fold(positiveBucket, items[:1], 5, 3, nop)
	require.True(t, last.done)
	require.Len(t, last.collected, 3)
	require.Equal(t, 2, last.collected[2].Page)
	require.True(t, last.finished(5, 10))

	trimmed := state.fold(positiveBucket, items, 1, 3, nop)
	require.Len(t, trimmed.collected, 1)
	require.True(t, trimmed.finished(1, 10))
}
