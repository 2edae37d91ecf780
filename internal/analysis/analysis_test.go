package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

var analyzedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestAnalyzeEmpty(t *testing.T) {
	t.Parallel()

	res := Analyze(nil, analyzedAt)
	require.Zero(t, res.TotalReviews)
	require.Nil(t, res.AverageRating)
	require.Equal(t, Distribution{}, res.Sentiment)
	require.Empty(t, res.KeyTopics)
	require.Empty(t, res.Strengths)
	require.Empty(t, res.Weaknesses)
	require.Zero(t, res.SyntheticShare)
}

func TestAnalyzeMixedReviews(t *testing.T) {
	t.Parallel()

	reviews := []crawler.Review{
		{Rating: 5, Title: "Great quality", Content: "Would recommend to anyone.", Source: "yotpo"},
		{Rating: 4, Content: "Fast shipping and fair price.", Source: "yotpo"},
		{Rating: 3, Content: "It is a product.", Source: "yotpo"},
		{Rating: 1, Content: "Too expensive and the size runs small.", Source: "negative_fallback"},
		{Rating: 2, Content: "Arrived late.", Source: "yotpo"},
	}

	res := Analyze(reviews, analyzedAt)
	require.Equal(t, 5, res.TotalReviews)
	require.Equal(t, Distribution{Positive: 2, Neutral: 1, Negative: 2}, res.Sentiment)
	require.NotNil(t, res.AverageRating)
	require.InDelta(t, 3.0, *res.AverageRating, 1e-9)
	require.Equal(t, 1, res.SyntheticReviews)
	require.InDelta(t, 0.2, res.SyntheticShare, 1e-9)
	require.Equal(t, []string{"quality", "recommend", "price", "shipping", "product"}, res.KeyTopics)
	require.Equal(t, []string{
		"High quality product",
		"Highly recommended by customers",
		"Fast delivery",
		"Good value for money",
	}, res.Strengths)
	require.Equal(t, []string{"Price concerns", "Sizing issues", "Shipping delays"}, res.Weaknesses)
	require.Equal(t, analyzedAt, res.AnalyzedAt)
}

func TestAnalyzeDefaultStrength(t *testing.T) {
	t.Parallel()

	res := Analyze([]crawler.Review{{Rating: 5, Content: "Lovely."}}, analyzedAt)
	require.Equal(t, []string{defaultStrength}, res.Strengths)
	require.Empty(t, res.Weaknesses)
}

func TestAnalyzeCapsWeaknessSample(t *testing.T) {
	t.Parallel()

	reviews := []crawler.Review{
		{Rating: 1, Content: "meh"},
		{Rating: 1, Content: "meh"},
		{Rating: 2, Content: "meh"},
		{Rating: 1, Content: "poor quality"},
	}
	res := Analyze(reviews, analyzedAt)
	require.Empty(t, res.Weaknesses)
}
