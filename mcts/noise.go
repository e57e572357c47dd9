package mcts

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
	"lukechampine.com/frand"
)

// Root exploration noise parameters.
const (
	dirichletAlpha   = 0.3
	dirichletEpsilon = 0.25
	// Noise is only mixed in for narrow roots; wide roots already get
	// enough spread from the priors themselves.
	noiseMaxRootMoves = 20
)

// dirichletSample draws one Dirichlet(alpha) vector of length n by
// normalizing independent gamma draws.
func dirichletSample(n int, alpha float64) []float64 {
	src := rand.NewSource(frand.Uint64n(1 << 62))
	gamma := distuv.Gamma{Alpha: alpha, Beta: 1, Src: src}

	sample := make([]float64, n)
	var sum float64
	for i := range sample {
		sample[i] = gamma.Rand()
		sum += sample[i]
	}
	if sum <= 0 {
		for i := range sample {
			sample[i] = 1 / float64(n)
		}
		return sample
	}
	for i := range sample {
		sample[i] /= sum
	}
	return sample
}

// injectRootNoise mixes Dirichlet noise into the root children's priors
// when the root has fewer than noiseMaxRootMoves moves.
func injectRootNoise(root *node) {
	edges := root.snapshotChildren()
	if len(edges) == 0 || len(edges) >= noiseMaxRootMoves {
		return
	}
	noise := dirichletSample(len(edges), dirichletAlpha)
	for i, e := range edges {
		c := e.child
		c.mu.Lock()
		c.prior = (1-dirichletEpsilon)*c.prior + dirichletEpsilon*noise[i]
		c.mu.Unlock()
	}
}
