// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sampler

import "testing"

func TestSequentialOrder(t *testing.T) {
	s := NewSequential()
	s.Reset(10)
	got := append(s.Next(4), s.Next(6)...)
	for i, v := range got {
		if v != i {
			t.Errorf("index %d: got %d, want %d", i, v, i)
		}
	}
}

func TestRandomIsPermutation(t *testing.T) {
	r := NewRandom(1)
	r.Reset(20)
	got := append(r.Next(8), r.Next(12)...)
	seen := make(map[int]bool)
	for _, v := range got {
		if v < 0 || v >= 20 {
			t.Fatalf("index %d out of range", v)
		}
		if seen[v] {
			t.Fatalf("index %d returned twice", v)
		}
		seen[v] = true
	}
	if len(seen) != 20 {
		t.Fatalf("got %d distinct indices, want 20", len(seen))
	}
}

func TestRandomDeterministicForSameSeed(t *testing.T) {
	a := NewRandom(42)
	a.Reset(50)
	gotA := a.Next(50)

	b := NewRandom(42)
	b.Reset(50)
	gotB := b.Next(50)

	for i := range gotA {
		if gotA[i] != gotB[i] {
			t.Fatalf("index %d differs between identically seeded samplers: %d vs %d", i, gotA[i], gotB[i])
		}
	}
}
