// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package batchqueue

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// WorkerFailure wraps an error captured from a preloader worker via
// AddChunkError and surfaced to the consumer through GetBatch, in arrival
// order relative to batches enqueued ahead of it.
type WorkerFailure struct {
	Err error
}

func (w *WorkerFailure) Error() string {
	return fmt.Sprintf("batchqueue: worker failure: %v", w.Err)
}

func (w *WorkerFailure) Unwrap() error {
	return w.Err
}

// newWorkerFailure wraps err as a Fatal-severity error carrying a
// WorkerFailure, so callers can distinguish it from an Invalid-kind
// configuration error by checking errors.Recover(err).Severity ==
// errors.Fatal.
func newWorkerFailure(err error) error {
	return errors.E(errors.Fatal, &WorkerFailure{Err: err})
}
