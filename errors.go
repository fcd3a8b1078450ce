// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkdata

import (
	"fmt"

	"github.com/grailbio/base/errors"

	"github.com/segmentedml/chunkdata/batchqueue"
)

// ErrNotInitialized is returned when GetBatch is called before Reset.
var ErrNotInitialized = errors.E(errors.Invalid, "chunkdata: Reset must be called before GetBatch")

// newBatchSizeMismatchError reports a GetBatch call whose requested size
// does not match the dataset's configured batch size.
func newBatchSizeMismatchError(requested, configured int) error {
	return errors.E(errors.Invalid, fmt.Errorf(
		"chunkdata: requested batch size %d does not match configured batch size %d",
		requested, configured))
}

// WorkerFailure wraps an error captured from a preloader worker and
// surfaced to the consumer through GetBatch, in arrival order relative to
// batches enqueued ahead of it. It is a type alias for batchqueue's
// WorkerFailure so callers of this package never need to import
// batchqueue directly to do an errors.As/errors.Is match.
type WorkerFailure = batchqueue.WorkerFailure
