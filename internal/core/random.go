package core

import (
	"math/rand/v2"
	"sync"
)

// RandomSource is the only way randomness enters the simulation.
type RandomSource interface {
	// Float64Range returns a value in [min, max).
	Float64Range(min, max float64) float64
}

// SeededSource is a PCG generator safe for concurrent use. Equal seeds give equal sequences.
type SeededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSource returns an unseeded source for production runs.
func NewRandomSource() *SeededSource {
	return &SeededSource{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (s *SeededSource) Float64Range(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.r.Float64()*(max-min)
}

// ConstantSource always returns the same value, ignoring the range.
type ConstantSource float64

func (c ConstantSource) Float64Range(_, _ float64) float64 { return float64(c) }

// pickIndex draws an index in [0, n).
func pickIndex(rng RandomSource, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(rng.Float64Range(0, float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
