// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhoodlabs/rhood/mem"
)

// Region-backed node containers must survive a remap of the backing bytes at
// a different base address: populate, copy the bytes, reopen, and compare.

func TestNodeMapRegionRoundTrip(t *testing.T) {
	const seed = 0xfeed
	buf := make([]byte, 1<<20)
	region, err := mem.InitRegion(buf)
	require.NoError(t, err)

	m, err := NewNodeMap[uint64, uint64](
		WithStore(region),
		WithHasher(Uint64Hasher(seed)),
	)
	require.NoError(t, err)
	region.SetRoot(m.Root())

	for i := uint64(0); i < 3000; i++ {
		_, err := m.Insert(i, i*i)
		require.NoError(t, err)
	}
	for i := uint64(0); i < 3000; i += 3 {
		require.Equal(t, 1, m.Erase(i))
	}

	// Simulate a later process mapping the same bytes elsewhere.
	moved := make([]byte, len(buf))
	copy(moved, buf)
	region2, err := mem.OpenRegion(moved)
	require.NoError(t, err)

	reopened, err := OpenNodeMap[uint64, uint64](region2, region2.Root(),
		WithHasher(Uint64Hasher(seed)))
	require.NoError(t, err)

	assert.Equal(t, m.Len(), reopened.Len())
	assert.True(t, NodeMapsEqual(m, reopened))

	// The reopened handle is fully mutable.
	_, err = reopened.Insert(1_000_000, 42)
	require.NoError(t, err)
	v, ok := reopened.Find(1_000_000)
	require.True(t, ok)
	assert.Equal(t, uint64(42), v)
	assert.False(t, NodeMapsEqual(m, reopened))
}

func TestNodeSetRegionRoundTrip(t *testing.T) {
	const seed = 7
	buf := make([]byte, 1<<19)
	region, err := mem.InitRegion(buf)
	require.NoError(t, err)

	s, err := NewNodeSet[uint64](
		WithStore(region),
		WithHasher(Uint64Hasher(seed)),
	)
	require.NoError(t, err)
	region.SetRoot(s.Root())

	for i := uint64(0); i < 1000; i++ {
		_, err := s.Insert(i * 7)
		require.NoError(t, err)
	}

	moved := make([]byte, len(buf))
	copy(moved, buf)
	region2, err := mem.OpenRegion(moved)
	require.NoError(t, err)

	reopened, err := OpenNodeSet[uint64](region2, region2.Root(),
		WithHasher(Uint64Hasher(seed)))
	require.NoError(t, err)

	assert.Equal(t, 1000, reopened.Len())
	for i := uint64(0); i < 1000; i++ {
		assert.True(t, reopened.Contains(i*7))
	}
	assert.True(t, NodeSetsEqual(s, reopened))
}

func TestOpenNodeMapBadRoot(t *testing.T) {
	buf := make([]byte, 1<<16)
	region, err := mem.InitRegion(buf)
	require.NoError(t, err)

	_, err = OpenNodeMap[uint64, uint64](region, 0,
		WithHasher(Uint64Hasher(1)))
	require.ErrorIs(t, err, ErrBadRoot)
}

func TestFlatMapInRegion(t *testing.T) {
	// Flat containers work in a region too when the record type is plain
	// data.
	buf := make([]byte, 1<<20)
	region, err := mem.InitRegion(buf)
	require.NoError(t, err)

	m, err := NewMap[uint64, [4]byte](
		WithStore(region),
		WithHasher(Uint64Hasher(11)),
	)
	require.NoError(t, err)
	for i := uint64(0); i < 2000; i++ {
		_, err := m.Insert(i, [4]byte{byte(i)})
		require.NoError(t, err)
	}
	v, ok := m.Find(17)
	require.True(t, ok)
	assert.Equal(t, [4]byte{17}, v)
}
