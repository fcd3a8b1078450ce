// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkdata

import (
	"context"
	"fmt"

	"github.com/grailbio/base/log"

	"github.com/segmentedml/chunkdata/batchqueue"
	"github.com/segmentedml/chunkdata/selector"
)

// runPreloader pulls chunk indices from sel until it is exhausted, reads
// each one with reader, and pushes the result into buf. It returns when
// sel.Next reports exhaustion or a selector error; the caller (Dataset)
// runs one of these per Options.PreloaderCount, fanned out with
// errgroup.Group.
//
// A panic from reader.ReadChunk is recovered and forwarded to buf as a
// worker failure rather than propagated, so one misbehaving ChunkReader
// cannot take down the whole process.
func runPreloader[E any](ctx context.Context, sel selector.Selector, reader ChunkReader[E], buf *batchqueue.Buffer[E]) error {
	for {
		select {
		case <-ctx.Done():
			// Dataset is tearing this epoch down (Reset or Close): quit
			// between chunks rather than starting another one.
			return nil
		default:
		}
		index, ok, err := sel.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		readChunk(context.Background(), index, reader, buf)
	}
}

// readChunk reads one chunk and reports it to buf, recovering from a
// panicking reader so that one misbehaving ChunkReader cannot take down
// the worker goroutine (an unrecovered panic ends the whole process). The
// recover is scoped to reader.ReadChunk only: a panic from buf itself means the
// buffer's own repacking invariant is broken, not a reader failure the
// caller can recover from, and must propagate.
func readChunk[E any](ctx context.Context, index int, reader ChunkReader[E], buf *batchqueue.Buffer[E]) {
	examples, err := readChunkSafely(ctx, index, reader)
	if err != nil {
		log.Printf("chunkdata: chunk %d: read error: %v", index, err)
		buf.AddChunkError(err)
		return
	}
	if len(examples) == 0 {
		buf.SkipChunk()
		return
	}
	buf.AddChunkData(examples)
}

// readChunkSafely calls reader.ReadChunk, recovering a panic into an
// error so that one misbehaving ChunkReader cannot take down the worker
// goroutine.
func readChunkSafely[E any](ctx context.Context, index int, reader ChunkReader[E]) (examples []E, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("chunkdata: chunk %d: recovered panic in ChunkReader: %v", index, r)
			err = fmt.Errorf("chunkdata: panic reading chunk %d: %v", index, r)
		}
	}()
	return reader.ReadChunk(ctx, index)
}
