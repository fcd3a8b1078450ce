// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkdata

import (
	"fmt"

	"github.com/grailbio/base/errors"

	"github.com/segmentedml/chunkdata/selector"
)

// defaultCacheSize is the soft upper bound on buffered examples used when
// Options.CacheSize is left at zero.
const defaultCacheSize = 2048

// Options configures a Dataset. There is no file or flag surface for
// these — construct an Options literal and pass it to New.
type Options struct {
	// PreloaderCount is the number of preloader goroutines spawned per
	// epoch. Must be >= 1.
	PreloaderCount int

	// BatchSize is the fixed batch size returned by GetBatch. Must be
	// >= 1.
	BatchSize int

	// CacheSize is the soft upper bound on the total number of examples
	// buffered at once. Must be >= BatchSize. Zero means
	// defaultCacheSize.
	CacheSize int

	// Policy selects chunk ordering: selector.Sequential or
	// selector.Random. Zero value is selector.Sequential.
	Policy selector.Policy

	// NumReplicas and Rank partition the chunk space across a
	// data-parallel training setup. Zero means a single replica at
	// rank 0.
	NumReplicas int
	Rank        int
}

func (o *Options) validate() error {
	if o.PreloaderCount < 1 {
		return errors.E(errors.Invalid, fmt.Errorf(
			"chunkdata: PreloaderCount is %d, at least one preloader must be specified", o.PreloaderCount))
	}
	if o.BatchSize < 1 {
		return errors.E(errors.Invalid, fmt.Errorf(
			"chunkdata: BatchSize is %d, a positive batch size must be specified", o.BatchSize))
	}
	if o.CacheSize == 0 {
		o.CacheSize = defaultCacheSize
	}
	if o.CacheSize < o.BatchSize {
		return errors.E(errors.Invalid, fmt.Errorf(
			"chunkdata: CacheSize (%d) is less than BatchSize (%d); the cache must hold at least one batch",
			o.CacheSize, o.BatchSize))
	}
	if o.NumReplicas == 0 {
		o.NumReplicas = 1
	}
	if o.NumReplicas < 1 {
		return errors.E(errors.Invalid, fmt.Errorf(
			"chunkdata: NumReplicas is %d, must be >= 1", o.NumReplicas))
	}
	if o.Rank < 0 || o.Rank >= o.NumReplicas {
		return errors.E(errors.Invalid, fmt.Errorf(
			"chunkdata: Rank (%d) must be in [0, NumReplicas) = [0, %d)", o.Rank, o.NumReplicas))
	}
	return nil
}
