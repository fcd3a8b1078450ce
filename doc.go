// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package chunkdata implements a chunk-based prefetching pipeline for
// ML training data.
//
// Large training corpora do not fit in memory and per-example random I/O
// is too expensive, so the pipeline amortizes I/O by reading coarse
// chunks in parallel on background preloader goroutines while the
// consumer drains fixed-size batches from an in-memory buffer. Two
// independent samplers — one over chunks, one over examples within a
// chunk — approximate a global shuffle without the cost of one.
//
// The package is a library: chunk I/O and example sampling are supplied
// by the caller through the ChunkReader and ExampleSampler interfaces.
// chunkdata owns the concurrency: chunk selection (package selector),
// the bounded producer/consumer buffer (package batchqueue), the
// preloader pool, and the reset/epoch lifecycle tying them together.
package chunkdata
