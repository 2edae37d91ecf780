// Package analysis summarizes a product's reviews into the figures the copy
// generator works from: sentiment split, recurring topics, and the strengths
// and weaknesses customers mention.
package analysis

import (
	"math"
	"strings"
	"time"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

const (
	maxTopics          = 10
	maxStrengths       = 5
	maxWeaknesses      = 3
	strengthSampleSize = 5
	weaknessSampleSize = 3
)

// Distribution counts reviews per sentiment bucket.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Result is the summary of one product's reviews.
type Result struct {
	TotalReviews     int          `json:"total_reviews"`
	SyntheticReviews int          `json:"synthetic_reviews"`
	SyntheticShare   float64      `json:"synthetic_share"`
	AverageRating    *float64     `json:"average_rating"`
	Sentiment        Distribution `json:"sentiment_distribution"`
	KeyTopics        []string     `json:"key_topics"`
	Strengths        []string     `json:"strengths"`
	Weaknesses       []string     `json:"weaknesses"`
	AnalyzedAt       time.Time    `json:"analyzed_at"`
}

// cue maps any of its words, found in review text, to a label.
type cue struct {
	label string
	words []string
}

var topicWords = []string{"quality", "value", "price", "shipping", "customer service", "product", "recommend"}

var strengthCues = []cue{
	{label: "High quality product", words: []string{"quality"}},
	{label: "Fast delivery", words: []string{"fast", "quick"}},
	{label: "Highly recommended by customers", words: []string{"recommend"}},
	{label: "Good value for money", words: []string{"value", "price"}},
}

var weaknessCues = []cue{
	{label: "Price concerns", words: []string{"expensive", "price"}},
	{label: "Shipping delays", words: []string{"slow", "late"}},
	{label: "Quality issues", words: []string{"quality"}},
	{label: "Sizing issues", words: []string{"size"}},
}

const defaultStrength = "High customer satisfaction"

// Analyze summarizes reviews. Output is deterministic for a given input order.
func Analyze(reviews []crawler.Review, now time.Time) Result {
	res := Result{
		TotalReviews:     len(reviews),
		SyntheticReviews: crawler.CountSynthetic(reviews),
		Sentiment:        sentiment(reviews),
		KeyTopics:        keyTopics(reviews),
		AnalyzedAt:       now.UTC(),
	}
	if res.TotalReviews > 0 {
		res.SyntheticShare = float64(res.SyntheticReviews) / float64(res.TotalReviews)
		res.AverageRating = averageRating(reviews)
	}

	var positive, negative []crawler.Review
	for _, r := range reviews {
		switch crawler.CategoryFor(r.Rating) {
		case crawler.CategoryPositive:
			positive = append(positive, r)
		case crawler.CategoryNegative:
			negative = append(negative, r)
		}
	}
	res.Strengths = matchCues(head(positive, strengthSampleSize), strengthCues, maxStrengths)
	if len(res.Strengths) == 0 && len(positive) > 0 {
		res.Strengths = []string{defaultStrength}
	}
	res.Weaknesses = matchCues(head(negative, weaknessSampleSize), weaknessCues, maxWeaknesses)
	return res
}

func sentiment(reviews []crawler.Review) Distribution {
	var d Distribution
	for _, r := range reviews {
		switch crawler.CategoryFor(r.Rating) {
		case crawler.CategoryPositive:
			d.Positive++
		case crawler.CategoryNegative:
			d.Negative++
		default:
			d.Neutral++
		}
	}
	return d
}

func averageRating(reviews []crawler.Review) *float64 {
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := math.Round(float64(sum)/float64(len(reviews))*10) / 10
	return &avg
}

func keyTopics(reviews []crawler.Review) []string {
	topics := make([]string, 0, len(topicWords))
	seen := make(map[string]bool, len(topicWords))
	for _, r := range reviews {
		text := reviewText(r)
		for _, w := range topicWords {
			if !seen[w] && strings.Contains(text, w) {
				seen[w] = true
				topics = append(topics, w)
			}
		}
	}
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

func matchCues(reviews []crawler.Review, cues []cue, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]bool, len(cues))
	for _, r := range reviews {
		text := reviewText(r)
		for _, c := range cues {
			if seen[c.label] || !containsAny(text, c.words) {
				continue
			}
			seen[c.label] = true
			out = append(out, c.label)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func reviewText(r crawler.Review) string {
	return strings.ToLower(r.Title + " " + r.Content)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func head(reviews []crawler.Review, n int) []crawler.Review {
	if len(reviews) > n {
		return reviews[:n]
	}
	return reviews
}
