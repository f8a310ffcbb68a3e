// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/exp/rand"
)

func TestSetBasic(t *testing.T) {
	s, err := NewSet[string]()
	require.NoError(t, err)
	assert.True(t, s.Empty())

	ins, err := s.Insert("a")
	require.NoError(t, err)
	assert.True(t, ins)

	ins, err = s.Insert("a")
	require.NoError(t, err)
	assert.False(t, ins)

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("a"))
	assert.Equal(t, 1, s.Count("a"))
	assert.Equal(t, 0, s.Count("b"))

	k, ok := s.Find("a")
	require.True(t, ok)
	assert.Equal(t, "a", k)

	assert.Equal(t, 1, s.Erase("a"))
	assert.Equal(t, 0, s.Erase("a"))
	assert.True(t, s.Empty())
}

func TestSetRoundTrip(t *testing.T) {
	// Inserting a set of distinct keys and iterating yields that set.
	s, err := NewSet[uint64]()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))
	want := map[uint64]bool{}
	for i := 0; i < 10000; i++ {
		k := rng.Uint64()
		want[k] = true
		_, err := s.Insert(k)
		require.NoError(t, err)
	}
	require.Equal(t, len(want), s.Len())

	got := map[uint64]bool{}
	for k := range s.All() {
		require.False(t, got[k], "key %d iterated twice", k)
		got[k] = true
	}
	assert.Equal(t, len(want), len(got))
	for k := range want {
		assert.True(t, got[k])
	}
}

func TestSetIterErase(t *testing.T) {
	s, err := NewSet[uint64](
		WithCapacity(64),
		WithHasher(HashFn[uint64](func(k uint64) uint64 { return k })),
	)
	require.NoError(t, err)
	for i := uint64(0); i < 20; i++ {
		s.Insert(i)
	}
	for it := s.Iter(); it.Next(); {
		if it.Key() >= 10 {
			it.Erase()
		}
	}
	assert.Equal(t, 10, s.Len())
	for i := uint64(0); i < 20; i++ {
		assert.Equal(t, i < 10, s.Contains(i))
	}
}

func TestSetCloneAndEqual(t *testing.T) {
	a, err := NewSet[int]()
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		a.Insert(i)
	}

	b, err := a.Clone()
	require.NoError(t, err)
	assert.True(t, SetsEqual(a, b))

	b.Erase(50)
	assert.False(t, SetsEqual(a, b))

	// Equality ignores capacity differences.
	c, err := NewSet[int](WithCapacity(1024))
	require.NoError(t, err)
	for i := 99; i >= 0; i-- {
		c.Insert(i)
	}
	assert.True(t, SetsEqual(a, c))
}

func TestNodeSetBasic(t *testing.T) {
	s, err := NewNodeSet[uint64]()
	require.NoError(t, err)
	for i := uint64(0); i < 5000; i++ {
		_, err := s.Insert(i)
		require.NoError(t, err)
	}
	assert.Equal(t, 5000, s.Len())
	for i := uint64(0); i < 5000; i += 7 {
		assert.Equal(t, 1, s.Erase(i))
	}
	for i := uint64(0); i < 5000; i++ {
		assert.Equal(t, i%7 != 0, s.Contains(i), "key %d", i)
	}

	o, err := NewNodeSet[uint64]()
	require.NoError(t, err)
	for i := uint64(0); i < 5000; i++ {
		if i%7 != 0 {
			o.Insert(i)
		}
	}
	assert.True(t, NodeSetsEqual(s, o))
}

func TestSetEmplace(t *testing.T) {
	s, err := NewNodeSet[int]()
	require.NoError(t, err)
	ins, err := s.Emplace(1)
	require.NoError(t, err)
	assert.True(t, ins)
	// Emplace on a duplicate constructs and discards the node.
	ins, err = s.Emplace(1)
	require.NoError(t, err)
	assert.False(t, ins)
	assert.Equal(t, 1, s.Len())
}

func TestSetSwapAndFree(t *testing.T) {
	a, _ := NewSet[int]()
	b, _ := NewSet[int]()
	a.Insert(1)
	b.Insert(2)
	b.Insert(3)
	a.Swap(b)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, b.Len())

	sorted := []int{}
	for k := range a.All() {
		sorted = append(sorted, k)
	}
	sort.Ints(sorted)
	assert.Equal(t, []int{2, 3}, sorted)

	a.Free()
	assert.Zero(t, a.Len())
	assert.Zero(t, a.BucketCount())
}
