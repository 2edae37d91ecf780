package synthetic

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed uint64) *Generator {
	return New(rand.New(rand.NewPCG(seed, 7)), fixedClock{t: testNow})
}

func TestGenerateCountAndShape(t *testing.T) {
	t.Parallel()

	reviews := newTestGenerator(1).Generate(40, nil, "mock")
	require.Len(t, reviews, 40)
	for i, r := range reviews {
		require.Empty(t, r.ID)
		require.Nil(t, r.Raw)
		require.Equal(t, "mock_fallback", r.Source)
		require.True(t, r.IsSynthetic())
		require.GreaterOrEqual(t, r.HelpfulCount, 0)
		require.Equal(t, i/50+1, r.Page)
		require.Equal(t, crawler.CategoryFor(r.Rating), r.Category)

		date, err := time.Parse(dateLayout, r.Date)
		require.NoError(t, err)
		age := testNow.Sub(date)
		require.GreaterOrEqual(t, age, 24*time.Hour)
		require.LessOrEqual(t, age, 180*24*time.Hour)
	}
}

func TestGenerateRatingFilter(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(2)
	positive := g.Generate(50, []int{4, 5}, "positive_fallback")
	require.Len(t, positive, 50)
	for _, r := range positive {
		require.Contains(t, []int{4, 5}, r.Rating)
		require.Equal(t, crawler.CategoryPositive, r.Category)
		require.Equal(t, "positive_fallback", r.Source)
	}

	negative := g.Generate(50, []int{1, 2}, "negative_fallback")
	for _, r := range negative {
		require.Contains(t, []int{1, 2}, r.Rating)
		require.Equal(t, crawler.CategoryNegative, r.Category)
	}

	titles := map[string]bool{}
	for _, tpl := range DefaultPools().Negative {
		titles[tpl.Title] = true
	}
	for _, r := range negative {
		require.True(t, titles[r.Title], "unexpected title %q", r.Title)
	}
}

func TestGenerateMixedFilterUsesBothPools(t *testing.T) {
	t.Parallel()

	reviews := newTestGenerator(3).Generate(10, []int{3, 5}, "mixed")
	require.Len(t, reviews, 10)
	require.Equal(t, DefaultPools().Positive[0].Title, reviews[0].Title)
	require.Equal(t, DefaultPools().Negative[0].Title, reviews[5].Title)
	for _, r := range reviews {
		require.Contains(t, []int{3, 5}, r.Rating)
		if r.Rating == 3 {
			require.Equal(t, crawler.CategoryNone, r.Category)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	t.Parallel()

	a := newTestGenerator(99).Generate(30, []int{4, 5}, "x")
	b := newTestGenerator(99).Generate(30, []int{4, 5}, "x")
	require.Equal(t, a, b)
}

func TestGeneratePerturbsRepeatedAuthorsOnly(t *testing.T) {
	t.Parallel()

	g := New(rand.New(rand.NewPCG(5, 5)), fixedClock{t: testNow},
		WithConfig(Config{PerturbChance: 1, MaxAgeDays: 10, PageSize: 50}))
	reviews := g.Generate(10, []int{1}, "neg")
	pool := DefaultPools().Negative
	for i, r := range reviews {
		if i < len(pool) {
			require.Equal(t, pool[i].Author, r.Author)
			continue
		}
		require.NotEqual(t, pool[i%len(pool)].Author, r.Author)
		require.True(t, strings.HasSuffix(r.Author, "."))
	}
}

func TestGenerateEdgeCases(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(4)
	require.Empty(t, g.Generate(0, nil, "x"))
	require.Empty(t, g.Generate(-3, nil, "x"))

	// Out-of-range ratings are ignored and the generic pool is used.
	reviews := g.Generate(3, []int{0, 9}, "")
	require.Len(t, reviews, 3)
	require.Equal(t, FallbackSuffix, reviews[0].Source)
	require.Equal(t, DefaultPools().Generic[0].Rating, reviews[0].Rating)

	empty := New(rand.New(rand.NewPCG(1, 1)), fixedClock{t: testNow}, WithPools(Pools{}))
	require.Empty(t, empty.Generate(5, nil, "x"))
}

func TestFallbackSource(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fallback", fallbackSource("  "))
	require.Equal(t, "positive_fallback", fallbackSource("positive_fallback"))
	require.Equal(t, "yotpo_fallback", fallbackSource("yotpo"))
}

func TestNewSeededZeroSeed(t *testing.T) {
	t.Parallel()

	g := NewSeeded(0, fixedClock{t: testNow})
	require.Len(t, g.Generate(5, nil, "x"), 5)
}
