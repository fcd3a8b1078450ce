// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkdata

import (
	"context"

	"github.com/segmentedml/chunkdata/batchqueue"
)

// ChunkReader maps a chunk index to its examples. It is a caller-supplied
// collaborator: chunkdata invokes it but does not care what format it
// parses or where the bytes come from (file, archive member, network
// range). Implementations must be safe for concurrent calls to ReadChunk
// from distinct indices — the preloader pool calls it from multiple
// goroutines at once. With the Random policy and NumReplicas > 1, a
// rank's window of the padded index space can hold the same index twice,
// so two preloaders can then read one index at the same time.
type ChunkReader[E any] interface {
	// ReadChunk returns the (possibly empty) ordered sequence of examples
	// for the chunk at index, or an error. index is always in
	// [0, ChunkCount()).
	ReadChunk(ctx context.Context, index int) ([]E, error)

	// ChunkCount returns the total number of chunks. It must be stable
	// for the lifetime of the reader.
	ChunkCount() int

	// Reset clears any reader-local caches. Called once per epoch by the
	// orchestrator, before its preloaders start.
	Reset()
}

// ExampleSampler selects the order in which examples within one chunk are
// delivered to the consumer. It is shared across preloader goroutines,
// but its Reset/Next pair is always called while batchqueue.Buffer's
// mutex is held by the caller, so implementations need not be
// independently thread-safe. It is a type alias for batchqueue's
// ExampleSampler so implementations satisfy both without an adapter.
type ExampleSampler = batchqueue.ExampleSampler
