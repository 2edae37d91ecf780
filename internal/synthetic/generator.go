// Package synthetic produces placeholder reviews shaped like harvested ones,
// used when the live review API cannot be reached.
package synthetic

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

// FallbackSuffix terminates every synthetic source tag.
const FallbackSuffix = "fallback"

const dateLayout = "2006-01-02T15:04:05Z"

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// Config holds the jitter and dating knobs.
type Config struct {
	MaxAgeDays int
	PageSize   int
	// Helpful-count jitter for the first pass over a pool and for repeats.
	GenericJitter        Range
	GenericRepeatJitter  Range
	TargetedJitter       Range
	TargetedRepeatJitter Range
	// PerturbChance is the probability a repeated author name gets a digit.
	PerturbChance float64
}

// DefaultConfig returns the standard generator settings.
func DefaultConfig() Config {
	return Config{
		MaxAgeDays:           180,
		PageSize:             50,
		GenericJitter:        Range{Min: -2, Max: 5},
		GenericRepeatJitter:  Range{Min: -3, Max: 8},
		TargetedJitter:       Range{Min: -3, Max: 8},
		TargetedRepeatJitter: Range{Min: -2, Max: 5},
		PerturbChance:        0.3,
	}
}

// Generator builds synthetic reviews from template pools. It is safe for
// concurrent use; calls are serialized around the shared random source.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock crawler.Clock
	pools Pools
	cfg   Config
}

// Option customizes a Generator.
type Option func(*Generator)

// WithPools replaces the template pools.
func WithPools(p Pools) Option {
	return func(g *Generator) { g.pools = p }
}

// WithConfig replaces the jitter configuration.
func WithConfig(cfg Config) Option {
	return func(g *Generator) { g.cfg = cfg }
}

// New builds a Generator around an injected random source and clock.
func New(rng *rand.Rand, clock crawler.Clock, opts ...Option) *Generator {
	g := &Generator{
		rng:   rng,
		clock: clock,
		pools: DefaultPools(),
		cfg:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cfg.MaxAgeDays <= 0 {
		g.cfg.MaxAgeDays = 180
	}
	if g.cfg.PageSize <= 0 {
		g.cfg.PageSize = 50
	}
	return g
}

// NewSeeded builds a Generator with a PCG source. A zero seed draws one from
// the runtime so separate processes do not repeat each other.
func NewSeeded(seed uint64, clock crawler.Clock, opts ...Option) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), clock, opts...)
}

// Generate returns count reviews. When ratings is non-empty each review's
// rating is drawn from it; the source tag always ends in FallbackSuffix.
func (g *Generator) Generate(count int, ratings []int, source string) []crawler.Review {
	if count <= 0 {
		return []crawler.Review{}
	}
	ratings = validRatings(ratings)
	pool, jitter, repeatJitter := g.pick(ratings)
	if len(pool) == 0 {
		return []crawler.Review{}
	}
	source = fallbackSource(source)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now().UTC()
	out := make([]crawler.Review, 0, count)
	for i := 0; i < count; i++ {
		tpl := pool[i%len(pool)]
		rating := tpl.Rating
		if len(ratings) > 0 {
			rating = ratings[g.rng.IntN(len(ratings))]
		}
		daysAgo := 1 + g.rng.IntN(g.cfg.MaxAgeDays)
		helpful := tpl.Helpful + g.between(jitter)
		author := tpl.Author
		if i >= len(pool) {
			helpful += g.between(repeatJitter)
			if g.rng.Float64() < g.cfg.PerturbChance {
				author = strings.Replace(author, ".", strconv.Itoa(1+g.rng.IntN(9))+".", 1)
			}
		}
		if helpful < 0 {
			helpful = 0
		}
		out = append(out, crawler.Review{
			Rating:           rating,
			Title:            tpl.Title,
			Content:          tpl.Content,
			Author:           author,
			Date:             now.AddDate(0, 0, -daysAgo).Format(dateLayout),
			VerifiedPurchase: tpl.Verified,
			HelpfulCount:     helpful,
			Source:           source,
			Page:             i/g.cfg.PageSize + 1,
			Category:         crawler.CategoryFor(rating),
		})
	}
	return out
}

func (g *Generator) pick(ratings []int) ([]Template, Range, Range) {
	if len(ratings) == 0 {
		return g.pools.Generic, g.cfg.GenericJitter, g.cfg.GenericRepeatJitter
	}
	allPositive, allNegative := true, true
	for _, r := range ratings {
		allPositive = allPositive && r >= 4
		allNegative = allNegative && r <= 2
	}
	var pool []Template
	switch {
	case allPositive:
		pool = g.pools.Positive
	case allNegative:
		pool = g.pools.Negative
	default:
		pool = append(append([]Template(nil), g.pools.Positive...), g.pools.Negative...)
	}
	return pool, g.cfg.TargetedJitter, g.cfg.TargetedRepeatJitter
}

func (g *Generator) between(r Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + g.rng.IntN(r.Max-r.Min+1)
}

func validRatings(ratings []int) []int {
	var out []int
	for _, r := range ratings {
		if r >= 1 && r <= 5 {
			out = append(out, r)
		}
	}
	return out
}

func fallbackSource(source string) string {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return FallbackSuffix
	case strings.HasSuffix(source, FallbackSuffix):
		return source
	default:
		return source + "_" + FallbackSuffix
	}
}
