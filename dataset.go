// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkdata

import (
	"context"
	"io"
	"sync"

	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"

	"github.com/segmentedml/chunkdata/batchqueue"
	"github.com/segmentedml/chunkdata/selector"
)

// Dataset owns the chunk selector, the preloader pool, and the batch
// buffer for one epoch at a time, and is the type callers construct
// directly.
//
// Reset and Close are not safe for concurrent use with each other or
// with themselves; GetBatch must only be called by one training
// consumer goroutine at a time.
//
// Dataset implements io.Closer so the preloader pool can always be torn
// down with a deferred Close.
type Dataset[E any] struct {
	opts    Options
	reader  ChunkReader[E]
	sampler ExampleSampler
	sel     selector.Selector

	mu     sync.Mutex
	buf    *batchqueue.Buffer[E]
	cancel context.CancelFunc
	group  *errgroup.Group
}

var _ io.Closer = (*Dataset[struct{}])(nil)

// New constructs a Dataset over reader with the given options and
// sampler. The dataset has no active epoch until Reset is called;
// GetBatch returns ErrNotInitialized until then.
func New[E any](reader ChunkReader[E], sampler ExampleSampler, opts Options) (*Dataset[E], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	sel, err := selector.New(opts.Policy, reader.ChunkCount(), opts.NumReplicas, opts.Rank)
	if err != nil {
		return nil, err
	}
	return &Dataset[E]{
		opts:    opts,
		reader:  reader,
		sampler: sampler,
		sel:     sel,
	}, nil
}

// Reset starts a new epoch seeded by epoch: it tears down the previous
// epoch's preloaders (if any), rewinds the reader and selector, and
// spawns a fresh preloader pool feeding a fresh buffer.
func (d *Dataset[E]) Reset(epoch uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.teardownLocked(); err != nil {
		log.Error.Printf("chunkdata: Reset: previous epoch's preloader pool reported an error: %v", err)
	}

	d.reader.Reset()
	d.sel.SetEpoch(epoch)
	d.sel.Reset()

	buf, err := batchqueue.New[E](d.sel.LocalChunkCount(), d.opts.BatchSize, d.opts.CacheSize, d.sampler)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, _ := errgroup.WithContext(ctx)
	for i := 0; i < d.opts.PreloaderCount; i++ {
		group.Go(func() error {
			return runPreloader(ctx, d.sel, d.reader, buf)
		})
	}

	d.buf = buf
	d.cancel = cancel
	d.group = group
	return nil
}

// GetBatch returns the next batch of n examples (the last batch of an
// epoch may be shorter), or (nil, true,
// nil) once the epoch is exhausted, or an error wrapping a WorkerFailure
// from a preloader. n must equal Options.BatchSize: the batch size is
// fixed for the lifetime of the dataset rather than allowed to vary per
// call.
func (d *Dataset[E]) GetBatch(n int) ([]E, bool, error) {
	d.mu.Lock()
	buf := d.buf
	batchSize := d.opts.BatchSize
	d.mu.Unlock()

	if buf == nil {
		return nil, false, ErrNotInitialized
	}
	if n != batchSize {
		return nil, false, newBatchSizeMismatchError(n, batchSize)
	}
	return buf.GetBatch()
}

// Close tears down the current epoch's preloader pool, if any, and
// reports any programming error (as opposed to a per-chunk
// WorkerFailure, which is delivered through GetBatch instead) one of
// them returned. It is idempotent: calling Close on an already-closed
// or never-reset Dataset is a no-op.
func (d *Dataset[E]) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.teardownLocked()
}

// teardownLocked stops the current buffer, cancels the preloader pool's
// context, and waits for every preloader goroutine to return. Must be
// called with d.mu held.
func (d *Dataset[E]) teardownLocked() error {
	if d.buf == nil {
		return nil
	}
	d.buf.Stop()
	d.cancel()
	err := d.group.Wait()
	d.buf, d.cancel, d.group = nil, nil, nil
	return err
}
