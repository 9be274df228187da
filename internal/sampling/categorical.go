package sampling

import (
	"fmt"
	"sort"
)

// Choice is one outcome of a categorical distribution.
type Choice[T any] struct {
	Value  T
	Weight float64
}

// Categorical draws values with probability proportional to their weights.
// Weights need not sum to 1. If every weight is zero the draw is uniform.
type Categorical[T any] struct {
	values []T
	cum    []float64
	total  float64
}

// NewCategorical builds a distribution from explicit (value, weight) pairs.
// It panics on an empty choice list or a negative weight; both are
// programming errors in the fixed tables.
func NewCategorical[T any](choices ...Choice[T]) *Categorical[T] {
	if len(choices) == 0 {
		panic("sampling: categorical distribution needs at least one choice")
	}
	c := &Categorical[T]{
		values: make([]T, len(choices)),
		cum:    make([]float64, len(choices)),
	}
	for i, ch := range choices {
		if ch.Weight < 0 {
			panic(fmt.Sprintf("sampling: negative weight %v at index %d", ch.Weight, i))
		}
		c.total += ch.Weight
		c.values[i] = ch.Value
		c.cum[i] = c.total
	}
	return c
}

// Weighted is shorthand for building a distribution from parallel slices.
func Weighted[T any](values []T, weights []float64) *Categorical[T] {
	if len(values) != len(weights) {
		panic(fmt.Sprintf("sampling: %d values but %d weights", len(values), len(weights)))
	}
	choices := make([]Choice[T], len(values))
	for i := range values {
		choices[i] = Choice[T]{Value: values[i], Weight: weights[i]}
	}
	return NewCategorical(choices...)
}

// Draw returns one value. Exactly one draw is consumed from s.
func (c *Categorical[T]) Draw(s *Source) T {
	if c.total <= 0 {
		return c.values[s.Intn(len(c.values))]
	}
	r := s.Float64() * c.total
	// First outcome whose cumulative weight reaches r.
	i := sort.SearchFloat64s(c.cum, r)
	if i >= len(c.values) {
		return c.values[len(c.values)-1]
	}
	return c.values[i]
}

// Len returns the number of outcomes.
func (c *Categorical[T]) Len() int {
	return len(c.values)
}

// Values returns a copy of the outcomes in declaration order.
func (c *Categorical[T]) Values() []T {
	out := make([]T, len(c.values))
	copy(out, c.values)
	return out
}

// Probabilities returns the normalized probability of each outcome.
func (c *Categorical[T]) Probabilities() []float64 {
	out := make([]float64, len(c.values))
	if c.total <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
		return out
	}
	prev := 0.0
	for i, cum := range c.cum {
		out[i] = (cum - prev) / c.total
		prev = cum
	}
	return out
}
