// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package selector

import (
	"sort"
	"testing"

	fuzz "github.com/google/gofuzz"
)

func drain(t *testing.T, s Selector) []int {
	t.Helper()
	var got []int
	for {
		idx, ok, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, idx)
	}
	return got
}

func TestSequentialSingleReplicaCoversAllChunks(t *testing.T) {
	s, err := New(Sequential, 10, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Reset()
	got := drain(t, s)
	if len(got) != 10 {
		t.Fatalf("got %d indices, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("index %d: got %d, want %d", i, v, i)
		}
	}
}

func TestRandomNotInitialized(t *testing.T) {
	s, err := New(Random, 10, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Next(); err == nil {
		t.Fatal("expected NotInitialized error calling Next before Reset")
	}
}

func TestRandomDeterministicAcrossResets(t *testing.T) {
	s, err := New(Random, 37, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.SetEpoch(7)
	s.Reset()
	first := drain(t, s)

	s.SetEpoch(7)
	s.Reset()
	second := drain(t, s)

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("index %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestRandomDifferentEpochsUsuallyDiffer(t *testing.T) {
	s, err := New(Random, 1000, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.SetEpoch(1)
	s.Reset()
	a := drain(t, s)

	s.SetEpoch(2)
	s.Reset()
	b := drain(t, s)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("two different epochs produced identical orderings")
	}
}

func TestDistributedCoverageAndBalance(t *testing.T) {
	const chunkCount = 13
	const numReplicas = 4

	seen := map[int]int{}
	var localCounts []int
	for rank := 0; rank < numReplicas; rank++ {
		s, err := New(Sequential, chunkCount, numReplicas, rank)
		if err != nil {
			t.Fatal(err)
		}
		s.Reset()
		got := drain(t, s)
		localCounts = append(localCounts, len(got))
		for _, idx := range got {
			seen[idx]++
		}
	}
	for i := 0; i < chunkCount; i++ {
		if seen[i] == 0 {
			t.Errorf("chunk %d never visited by any rank", i)
		}
	}
	for i, n := range localCounts {
		if n != localCounts[0] {
			t.Errorf("rank %d processed %d chunks, rank 0 processed %d", i, n, localCounts[0])
		}
	}
}

func TestLocalChunkCountMatchesCeilDivision(t *testing.T) {
	fz := fuzz.New().NilChance(0)
	for i := 0; i < 50; i++ {
		var chunkCount, numReplicas uint16
		fz.Fuzz(&chunkCount)
		fz.Fuzz(&numReplicas)
		cc := int(chunkCount)
		nr := int(numReplicas)%8 + 1
		s, err := New(Sequential, cc, nr, 0)
		if err != nil {
			t.Fatal(err)
		}
		want := (cc + nr - 1) / nr
		if got := s.LocalChunkCount(); got != want {
			t.Errorf("chunkCount=%d numReplicas=%d: got local count %d, want %d", cc, nr, got, want)
		}
	}
}

func TestInvalidConstruction(t *testing.T) {
	cases := []struct {
		name                          string
		chunkCount, numReplicas, rank int
	}{
		{"zero replicas", 10, 0, 0},
		{"rank equals replicas", 10, 2, 2},
		{"negative rank", 10, 2, -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := New(Sequential, c.chunkCount, c.numReplicas, c.rank); err == nil {
				t.Fatal("expected a ConfigurationError")
			}
		})
	}
}

func TestRandomWindowsArePermutationOfPaddedSpace(t *testing.T) {
	const chunkCount = 7
	const numReplicas = 3
	local := (chunkCount + numReplicas - 1) / numReplicas

	var all []int
	for rank := 0; rank < numReplicas; rank++ {
		s, err := New(Random, chunkCount, numReplicas, rank)
		if err != nil {
			t.Fatal(err)
		}
		s.SetEpoch(42)
		s.Reset()
		got := drain(t, s)
		if len(got) != local {
			t.Fatalf("rank %d: got %d indices, want %d", rank, len(got), local)
		}
		all = append(all, got...)
	}
	if len(all) != local*numReplicas {
		t.Fatalf("got %d total indices, want %d", len(all), local*numReplicas)
	}
	sort.Ints(all)
	for _, v := range all {
		if v < 0 || v >= chunkCount {
			t.Fatalf("index %d out of range [0, %d)", v, chunkCount)
		}
	}
}
