// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sampler

import "math/rand"

// mathRand adapts *rand.Rand to the randSource interface.
type mathRand struct {
	*rand.Rand
}

func newMathRand(seed int64) randSource {
	return mathRand{rand.New(rand.NewSource(seed))}
}
