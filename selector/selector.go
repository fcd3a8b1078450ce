// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package selector implements chunk-index iterators for one training
// epoch: a thread-safe, rank-partitioned sequence of chunk indices handed
// out to a pool of preloader goroutines.
package selector

import (
	"encoding/binary"
	"math/rand"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/spaolacci/murmur3"
)

// Selector supplies chunk indices for the current epoch, exactly once
// each (up to the distributed padding rule described on New), in an
// order determined by the implementation. Next must be safe for
// concurrent callers.
type Selector interface {
	// SetEpoch records the epoch seed used by the next Reset. It is
	// idempotent until the next Reset.
	SetEpoch(epoch uint64)

	// Reset recomputes this rank's slice of chunk indices for the
	// current epoch and rewinds the cursor.
	Reset()

	// Next atomically fetches and advances the cursor, returning the
	// next chunk index and true, or (0, false) once every index
	// assigned to this rank has been returned. It returns a non-nil
	// error only if Next is called on a Random selector before its
	// first Reset.
	Next() (int, bool, error)

	// LocalChunkCount returns the number of chunks this rank processes
	// per epoch: ceil(chunkCount / numReplicas).
	LocalChunkCount() int
}

// Policy selects the chunk ordering strategy.
type Policy int

const (
	// Sequential hands out chunk indices in ascending order.
	Sequential Policy = iota
	// Random hands out chunk indices in an epoch-seeded shuffled order.
	Random
)

// base holds the fields and padding arithmetic shared by both policies.
type base struct {
	chunkCount, numReplicas, rank int
	localChunkCount               int
	epoch                         uint64
}

func newBase(chunkCount, numReplicas, rank int) (base, error) {
	if numReplicas < 1 {
		return base{}, errors.E(errors.Invalid, "selector: numReplicas must be >= 1")
	}
	if rank < 0 || rank >= numReplicas {
		return base{}, errors.E(errors.Invalid, "selector: rank must be in [0, numReplicas)")
	}
	if chunkCount < 0 {
		return base{}, errors.E(errors.Invalid, "selector: chunkCount must be >= 0")
	}
	local := (chunkCount + numReplicas - 1) / numReplicas
	return base{
		chunkCount:      chunkCount,
		numReplicas:     numReplicas,
		rank:            rank,
		localChunkCount: local,
	}, nil
}

func (b *base) LocalChunkCount() int { return b.localChunkCount }

func (b *base) SetEpoch(epoch uint64) { b.epoch = epoch }

// paddedIndices returns the full, wrapped index space shared identically
// by every rank: length localChunkCount*numReplicas, wrapping i%chunkCount
// once numReplicas > 1 so that every rank processes the same number of
// chunks. When numReplicas == 1 the padded space is simply [0,chunkCount).
func (b *base) paddedIndices() []int {
	if b.numReplicas == 1 {
		indices := make([]int, b.chunkCount)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	n := b.localChunkCount * b.numReplicas
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i % b.chunkCount
	}
	return indices
}

// New constructs a Selector for the given policy. chunkCount is the total
// number of chunks; numReplicas and rank partition them across a
// data-parallel training setup (numReplicas == 1, rank == 0 for a single
// process).
func New(policy Policy, chunkCount, numReplicas, rank int) (Selector, error) {
	b, err := newBase(chunkCount, numReplicas, rank)
	if err != nil {
		return nil, err
	}
	switch policy {
	case Random:
		return &randomSelector{base: b}, nil
	case Sequential:
		s := &sequentialSelector{base: b}
		s.begin = int64(rank * b.localChunkCount)
		s.end = s.begin + int64(b.localChunkCount)
		s.cursor.Store(s.begin)
		return s, nil
	default:
		return nil, errors.E(errors.Invalid, "selector: unknown policy")
	}
}

// sequentialSelector hands out indices rank*local .. (rank+1)*local-1,
// wrapped mod chunkCount.
type sequentialSelector struct {
	base
	begin, end int64
	cursor     atomic.Int64
}

func (s *sequentialSelector) Reset() {
	s.cursor.Store(s.begin)
}

func (s *sequentialSelector) Next() (int, bool, error) {
	idx := s.cursor.Add(1) - 1
	if idx >= s.end || s.chunkCount == 0 {
		return 0, false, nil
	}
	return int(idx) % s.chunkCount, true, nil
}

// randomSelector shuffles the padded index vector deterministically by
// epoch on every Reset, then hands this rank the contiguous window
// [rank*local, (rank+1)*local).
type randomSelector struct {
	base

	// chunkIndices is this rank's window after the most recent Reset. It
	// is read via atomic.Pointer so that Next never takes a lock on the
	// hot path, and so Next can detect "Reset was never called" without
	// one.
	chunkIndices atomic.Pointer[[]int]
	cursor       atomic.Int64
}

func (s *randomSelector) Reset() {
	all := s.paddedIndices()
	shuffle(all, s.epoch)
	window := make([]int, s.localChunkCount)
	copy(window, all[s.rank*s.localChunkCount:(s.rank+1)*s.localChunkCount])
	s.chunkIndices.Store(&window)
	s.cursor.Store(0)
}

func (s *randomSelector) Next() (int, bool, error) {
	window := s.chunkIndices.Load()
	if window == nil {
		return 0, false, errors.E(errors.Invalid, "selector: Reset must be called before Next")
	}
	idx := s.cursor.Add(1) - 1
	if int(idx) >= len(*window) {
		return 0, false, nil
	}
	return (*window)[idx], true, nil
}

// shuffle performs an in-place Fisher-Yates shuffle of indices, seeded
// deterministically from epoch via a murmur3 mix rather than relying on
// math/rand's own seeding, so the permutation for a given epoch is stable
// regardless of the Go runtime's default source implementation.
func shuffle(indices []int, epoch uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], epoch)
	seed := int64(murmur3.Sum64(buf[:]))
	rng := rand.New(rand.NewSource(seed))
	for i := len(indices) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}
}
