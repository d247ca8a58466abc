package raysim

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// gaussianSource is a seedable Source backed by gonum's distuv.Normal, the
// same distribution the toolkit's own sampling helpers draw from
// (utils/matrix.SampleNIntegersNormal).
type gaussianSource struct {
	dist distuv.Normal
}

// NewSeededSource returns a Source whose samples are reproducible for a
// given seed, so ray-simulator tests can assert bit-exact determinism
// (spec.md §8, law 8) without disabling noise entirely.
func NewSeededSource(seed uint64) Source {
	return &gaussianSource{dist: distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewSource(seed),
	}}
}

// ZeroSource is a Source that always returns 0, used to simulate without
// any noise injection.
type zeroSource struct{}

// ZeroSource returns a Source with no randomness, for the deterministic
// ray-simulator laws of spec.md §8 (laws 6-9).
func ZeroSource() Source { return zeroSource{} }

func (zeroSource) Normal() float64 { return 0 }

func (g *gaussianSource) Normal() float64 { return g.dist.Rand() }
