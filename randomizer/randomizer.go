// Package randomizer implements the deterministic randomizer selection
// rule of spec §4.6: random_uniform, random_normal and glorot_uniform
// draw from one of three sources depending on which seeds are present,
// using gonum's stat/distuv distributions the way the teacher pack
// reaches for gonum throughout its CPU backend rather than hand-rolling
// Box-Muller or rejection sampling itself.
package randomizer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/shape"
)

// GenCache is the subset of session.Cache the randomizer needs: a
// persistent generator keyed by graph or op identity, so repeated runs
// of the same graph with the same seed reproduce the same draws (spec
// §4.6, rules 2 and 3).
type GenCache interface {
	RandGen(key string, seed int64) *rand.Rand
}

// Randomizer fills Device Buffers for the three random-source ops.
type Randomizer struct {
	Cache GenCache
}

// source picks the *rand.Rand spec §4.6's three rules select between:
//
//  1. op carries its own seed: graphSeed XOR opSeed seeds a fresh,
//     non-cached generator (every draw with an explicit op seed is
//     independently reproducible, not shared with sibling ops).
//  2. graph carries a seed but op doesn't: a generator cached under the
//     graph's identity, seeded once from graph.Seed, shared by every
//     seedless random op in that graph.
//  3. neither carries a seed: a generator cached under the op's own
//     node name, seeded from a process-local non-reproducible source —
//     distinct per op so unrelated unseeded draws don't collide, but not
//     claiming reproducibility across runs.
func (r *Randomizer) source(graphID string, graphSeed *int64, opSeed *int64, nodeName string) *rand.Rand {
	switch {
	case opSeed != nil:
		seed := *opSeed
		if graphSeed != nil {
			seed ^= *graphSeed
		}
		return rand.New(rand.NewSource(seed))
	case graphSeed != nil:
		return r.Cache.RandGen("graph:"+graphID, *graphSeed)
	default:
		return r.Cache.RandGen("op:"+nodeName, rand.Int63())
	}
}

// Uniform fills buf with draws from Uniform(low, high).
func (r *Randomizer) Uniform(buf *buffer.Buffer, low, high float64, graphID string, graphSeed, opSeed *int64, nodeName string) {
	gen := r.source(graphID, graphSeed, opSeed, nodeName)
	dist := distuv.Uniform{Min: low, Max: high, Src: gen}
	fillBuffer(buf, dist.Rand)
}

// Normal fills buf with draws from Normal(mean, stddev).
func (r *Randomizer) Normal(buf *buffer.Buffer, mean, stddev float64, graphID string, graphSeed, opSeed *int64, nodeName string) {
	gen := r.source(graphID, graphSeed, opSeed, nodeName)
	dist := distuv.Normal{Mu: mean, Sigma: stddev, Src: gen}
	fillBuffer(buf, dist.Rand)
}

// GlorotUniform fills buf with the Xavier/Glorot-uniform initialization
// spec §4.1 names: Uniform(-limit, limit) where limit = sqrt(6 / (fan_in
// + fan_out)), fan_in/fan_out derived from the buffer's shape per spec
// §4.1: scalar -> (1,1), rank-1 -> (1,n), else -> (shape[0], shape[-1]).
func (r *Randomizer) GlorotUniform(buf *buffer.Buffer, graphID string, graphSeed, opSeed *int64, nodeName string) {
	fanIn, fanOut := fanInOut(buf.Shape)
	limit := glorotLimit(fanIn, fanOut)
	r.Uniform(buf, -limit, limit, graphID, graphSeed, opSeed, nodeName)
}

func fanInOut(sh shape.Shape) (int, int) {
	switch sh.Rank() {
	case 0:
		return 1, 1
	case 1:
		return 1, sh.Dim(0)
	default:
		return sh.Dim(0), sh.Dim(-1)
	}
}

func glorotLimit(fanIn, fanOut int) float64 {
	return math.Sqrt(6.0 / float64(fanIn+fanOut))
}

func fillBuffer(buf *buffer.Buffer, draw func() float64) {
	n := buf.Len()
	switch h := buf.Host.(type) {
	case []float32:
		for i := 0; i < n; i++ {
			h[i] = float32(draw())
		}
	case []int32:
		for i := 0; i < n; i++ {
			h[i] = int32(draw())
		}
	case []int16:
		for i := 0; i < n; i++ {
			if draw() > 0.5 {
				h[i] = 1
			} else {
				h[i] = 0
			}
		}
	}
	buf.Dirty = true
}
