// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sampler provides reference ExampleSampler implementations for
// chunkdata: the policy that orders examples within one chunk.
//
// chunkdata itself only consumes the ExampleSampler interface (see the
// root package); these two, a random permutation and a sequential
// pass-through, cover the common cases so callers aren't required to
// write their own.
package sampler

// Random draws example indices in a random permutation of [0, n),
// reshuffled on every Reset. It is not safe for concurrent use — callers
// (chunkdata's batchqueue.Buffer) serialize access under their own lock.
type Random struct {
	rng     randSource
	indices []int
	next    int
}

// randSource is the minimal interface Random needs from a PRNG, so tests
// can substitute a deterministic source without importing math/rand
// directly into this file's public surface.
type randSource interface {
	Shuffle(n int, swap func(i, j int))
}

// NewRandom returns a Random sampler seeded by seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: newMathRand(seed)}
}

// Reset prepares r to draw a random permutation of [0, n).
func (r *Random) Reset(n int) {
	r.indices = make([]int, n)
	for i := range r.indices {
		r.indices[i] = i
	}
	r.rng.Shuffle(n, func(i, j int) {
		r.indices[i], r.indices[j] = r.indices[j], r.indices[i]
	})
	r.next = 0
}

// Next returns the next k indices of the permutation computed by Reset.
func (r *Random) Next(k int) []int {
	out := make([]int, k)
	copy(out, r.indices[r.next:r.next+k])
	r.next += k
	return out
}

// Sequential draws example indices in ascending order, [0, n).
type Sequential struct {
	n, next int
}

// NewSequential returns a Sequential sampler.
func NewSequential() *Sequential {
	return &Sequential{}
}

// Reset prepares s to draw indices from [0, n) in order.
func (s *Sequential) Reset(n int) {
	s.n = n
	s.next = 0
}

// Next returns the next k ascending indices.
func (s *Sequential) Next(k int) []int {
	out := make([]int, k)
	for i := range out {
		out[i] = s.next + i
	}
	s.next += k
	return out
}
