// Package sampling provides the seeded random stream and the weighted-choice
// primitive shared by every generator.
//
// A run owns exactly one Source. All draws are taken from it in a fixed call
// order, so two runs with the same seed and parameters produce the same data.
package sampling

import (
	"math"
	"math/rand"
)

// Source is a seeded pseudo-random stream. It is not safe for concurrent use.
type Source struct {
	rng *rand.Rand
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Bernoulli returns true with probability p.
func (s *Source) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}

// Intn returns a uniform draw in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// IntBetween returns a uniform integer in [lo, hi], both inclusive.
// An inverted range collapses to hi; one draw is consumed either way.
func (s *Source) IntBetween(lo, hi int) int {
	if hi < lo {
		lo = hi
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Uniform returns a uniform float in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// Exponential returns an exponential draw with the given mean.
func (s *Source) Exponential(mean float64) float64 {
	return s.rng.ExpFloat64() * mean
}

// LogNormal returns exp(N(mu, sigma^2)).
func (s *Source) LogNormal(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*s.rng.NormFloat64())
}

// Pareto returns a Pareto(alpha) draw with scale 1, always >= 1.
func (s *Source) Pareto(alpha float64) float64 {
	return 1.0 / math.Pow(1.0-s.rng.Float64(), 1.0/alpha)
}

// Shuffle permutes n elements through swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Sample draws k distinct elements of pool uniformly without replacement.
// scratch is reused to avoid an allocation per call; the result aliases it
// and is only valid until the next call with the same scratch. pool is not
// modified.
func Sample[T any](s *Source, pool []T, k int, scratch []T) []T {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return scratch[:0]
	}
	scratch = append(scratch[:0], pool...)
	// Partial Fisher-Yates: after i steps scratch[:i] is a uniform sample.
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:k]
}
