// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package batchqueue implements the bounded producer/consumer buffer that
// sits between a preloader worker pool and the training consumer: a
// single mutex protects a FIFO of batch/failure entries and two
// counters, while two condition variables wake the consumer and the
// producers respectively.
//
// This is the part of chunkdata with the real concurrency, so its
// comments lean on invariants rather than narration: every exported
// method documents what must be true of the queue and counters when it
// returns.
package batchqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"

	"github.com/segmentedml/chunkdata/ctxsync"
)

// ExampleSampler selects the order in which examples within one chunk are
// delivered to the consumer. Reset/Next are always called while the
// Buffer's mutex is held, so implementations need not be independently
// thread-safe.
type ExampleSampler interface {
	Reset(n int)
	Next(k int) []int
}

type entryKind int

const (
	dataEntry entryKind = iota
	failureEntry
)

// entry is the tagged queue element: either a batch of examples or a
// captured worker error.
type entry[E any] struct {
	kind  entryKind
	batch []E
	err   error
}

// Buffer is the bounded FIFO of batch and failure entries shared between
// a preloader worker pool and one training consumer. The zero value is
// not usable; construct with New.
type Buffer[E any] struct {
	batchSize int
	cacheSize int
	sampler   ExampleSampler

	mu         sync.Mutex
	condRead   *ctxsync.Cond // consumer waits here
	condWrite  *ctxsync.Cond // producers wait here
	queue      []entry[E]
	remaining  int // remainingChunkCount
	queuedSize int // queueExampleCount

	stopped atomic.Bool
}

// New constructs a Buffer for one epoch. remainingChunks is the local
// chunk count this epoch's preloaders will account for (see
// selector.Selector.LocalChunkCount). cacheSize must be >= batchSize.
func New[E any](remainingChunks, batchSize, cacheSize int, sampler ExampleSampler) (*Buffer[E], error) {
	if batchSize < 1 {
		return nil, errors.E(errors.Invalid, "batchqueue: batchSize must be >= 1")
	}
	if cacheSize < batchSize {
		return nil, errors.E(errors.Invalid, "batchqueue: cacheSize must be >= batchSize")
	}
	b := &Buffer[E]{
		batchSize: batchSize,
		cacheSize: cacheSize,
		sampler:   sampler,
		remaining: remainingChunks,
	}
	b.condRead = ctxsync.NewCond(&b.mu)
	b.condWrite = ctxsync.NewCond(&b.mu)
	return b, nil
}

// GetBatch returns the next batch, or (nil, true, nil) once the epoch is
// exhausted, or a non-nil error wrapping a WorkerFailure captured from a
// worker. It must only be called by one consumer goroutine at a time.
func (b *Buffer[E]) GetBatch() (batch []E, done bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.readReady() {
		// GetBatch takes no cancellation token: callers that need to abort
		// a hung epoch tear the Dataset down instead, which calls Stop and
		// wakes every waiter.
		_ = b.condRead.Wait(context.Background())
	}
	if b.stopped.Load() {
		// The buffer is being torn down (Dataset.Close); the consumer gets
		// the same terminal result as a naturally exhausted epoch rather
		// than hanging forever on a pool that will never produce again.
		return nil, true, nil
	}
	if len(b.queue) == 0 {
		// readReady only returns true on an empty queue once remaining
		// reached zero: this is the terminal case.
		return nil, true, nil
	}
	head := b.queue[0]
	b.queue = b.queue[1:]
	b.condWrite.Broadcast()
	if head.kind == failureEntry {
		return nil, false, newWorkerFailure(head.err)
	}
	b.queuedSize -= len(head.batch)
	return head.batch, false, nil
}

// readReady is the consumer's wait predicate: enough examples for a full
// batch, or the epoch fully accounted for, or a failure at the head of
// the queue. Must be called with mu held.
func (b *Buffer[E]) readReady() bool {
	if b.stopped.Load() || b.queuedSize >= b.batchSize || b.remaining == 0 {
		return true
	}
	return len(b.queue) > 0 && b.queue[0].kind == failureEntry
}

// writeReady is the producer's wait predicate, shared by AddChunkData and
// AddChunkError: either there's room, or the buffer has been stopped and
// the producer must give up without touching remaining.
func (b *Buffer[E]) writeReady() bool {
	return b.queuedSize < b.cacheSize || b.stopped.Load()
}

func (b *Buffer[E]) decrementRemaining() {
	if b.remaining <= 0 {
		panic(errors.E(errors.Fatal, "batchqueue: remaining chunk count underflow"))
	}
	b.remaining--
}

// AddChunkData splices a non-empty chunk's examples into the queue,
// repacking them into batchSize-sized batches (tail-fill then spill).
// Called from a preloader worker. Empty chunks must go through SkipChunk
// instead.
func (b *Buffer[E]) AddChunkData(examples []E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.writeReady() {
		_ = b.condWrite.Wait(context.Background())
	}
	if b.stopped.Load() {
		// The whole buffer is being discarded; accounting no longer
		// matters, and remaining must not be touched.
		return
	}

	dataSize := len(examples)
	remainingSize := dataSize
	b.sampler.Reset(dataSize)

	fill := func(n int, dst []E) []E {
		indices := b.sampler.Next(n)
		for _, i := range indices {
			if i < 0 || i >= dataSize {
				panic(errors.E(errors.Fatal, "batchqueue: sampler produced an index out of range"))
			}
			dst = append(dst, examples[i])
		}
		remainingSize -= n
		return dst
	}

	// Tail-fill: top up the last batch in the queue if it is short.
	if n := len(b.queue); n > 0 && b.queue[n-1].kind == dataEntry {
		tail := &b.queue[n-1]
		if current := len(tail.batch); current < b.batchSize {
			want := b.batchSize - current
			if remainingSize < want {
				want = remainingSize
			}
			tail.batch = fill(want, tail.batch)
		}
	}

	// Spill: allocate new batchSize-capacity batches for what remains.
	// The final batch of the final chunk of an epoch may end up shorter
	// than batchSize; that's expected, not an error.
	for remainingSize > 0 {
		n := b.batchSize
		if remainingSize < n {
			n = remainingSize
		}
		batch := make([]E, 0, b.batchSize)
		batch = fill(n, batch)
		b.queue = append(b.queue, entry[E]{kind: dataEntry, batch: batch})
	}

	b.queuedSize += dataSize
	b.decrementRemaining()
	b.condRead.Broadcast()
}

// AddChunkError enqueues a failure entry captured while reading a chunk.
// Called from a preloader worker in place of AddChunkData.
func (b *Buffer[E]) AddChunkError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.writeReady() {
		_ = b.condWrite.Wait(context.Background())
	}
	if b.stopped.Load() {
		return
	}

	b.queue = append(b.queue, entry[E]{kind: failureEntry, err: err})
	b.decrementRemaining()
	b.condRead.Broadcast()
}

// SkipChunk accounts for an empty chunk without enqueuing anything.
func (b *Buffer[E]) SkipChunk() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decrementRemaining()
	b.condRead.Broadcast()
}

// Stop releases any producer blocked in AddChunkData/AddChunkError and
// any consumer blocked in GetBatch, which will see the same terminal
// result as a naturally exhausted epoch. It is the mechanism behind
// chunkdata.Dataset.Close aborting a hung epoch even while GetBatch is
// blocked on a different goroutine. The Buffer must not be used after
// Stop.
func (b *Buffer[E]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped.Store(true)
	b.condWrite.Broadcast()
	b.condRead.Broadcast()
}
