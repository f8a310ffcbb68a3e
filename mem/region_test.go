// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionInitOpen(t *testing.T) {
	buf := make([]byte, 1<<16)
	r, err := InitRegion(buf)
	require.NoError(t, err)
	assert.Equal(t, uintptr(1<<16), r.Limit())
	assert.Zero(t, r.Root())

	r.SetRoot(Ref(128))
	reopened, err := OpenRegion(buf)
	require.NoError(t, err)
	assert.Equal(t, Ref(128), reopened.Root())

	_, err = OpenRegion(make([]byte, 1<<16))
	require.ErrorIs(t, err, ErrBadRegion)

	_, err = InitRegion(make([]byte, 8))
	require.ErrorIs(t, err, ErrBadRegion)
}

func TestRegionAllocFree(t *testing.T) {
	buf := make([]byte, 1<<16)
	r, err := InitRegion(buf)
	require.NoError(t, err)

	a := Bind[uint64](r)
	ref, err := a.Alloc(8)
	require.NoError(t, err)
	require.NotZero(t, ref)

	s := a.Slice(ref, 8)
	for i := range s {
		s[i] = uint64(i) * 3
	}
	assert.Equal(t, uint64(0), *a.At(ref))
	assert.Equal(t, uint64(21), a.Slice(ref, 8)[7])

	// Freed blocks are reused.
	a.Free(ref, 8)
	ref2, err := a.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, ref, ref2)
}

func TestRegionFirstFitSplit(t *testing.T) {
	buf := make([]byte, 1<<16)
	r, err := InitRegion(buf)
	require.NoError(t, err)

	a := Bind[byte](r)
	big, err := a.Alloc(1024)
	require.NoError(t, err)
	a.Free(big, 1024)

	// A smaller allocation is carved out of the freed block.
	small, err := a.Alloc(64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uint64(small), uint64(big))
	assert.Less(t, uint64(small), uint64(big)+1024)

	// The remainder stays allocatable.
	rest, err := a.Alloc(512)
	require.NoError(t, err)
	require.NotZero(t, rest)
}

func TestRegionOutOfMemory(t *testing.T) {
	buf := make([]byte, 4096)
	r, err := InitRegion(buf)
	require.NoError(t, err)

	a := Bind[byte](r)
	_, err = a.Alloc(1 << 20)
	require.ErrorIs(t, err, ErrOutOfMemory)

	// Small allocations still succeed afterwards.
	ref, err := a.Alloc(16)
	require.NoError(t, err)
	assert.NotZero(t, ref)
}

func TestRegionRelocation(t *testing.T) {
	buf := make([]byte, 1<<16)
	r, err := InitRegion(buf)
	require.NoError(t, err)

	a := Bind[uint32](r)
	ref, err := a.Alloc(4)
	require.NoError(t, err)
	copy(a.Slice(ref, 4), []uint32{10, 20, 30, 40})
	r.SetRoot(ref)

	// Simulate remapping at a different base address.
	moved := make([]byte, 1<<16)
	copy(moved, buf)
	r2, err := OpenRegion(moved)
	require.NoError(t, err)

	a2 := Bind[uint32](r2)
	assert.Equal(t, []uint32{10, 20, 30, 40}, a2.Slice(r2.Root(), 4))
	assert.False(t, r.Same(r2))
	assert.True(t, r2.Same(r2))
}

func TestHeapStore(t *testing.T) {
	h := NewHeap()
	a := Bind[string](h)
	ref, err := a.Alloc(2)
	require.NoError(t, err)
	s := a.Slice(ref, 2)
	s[0], s[1] = "x", "y"
	assert.Equal(t, "x", *a.At(ref))

	other := NewHeap()
	assert.True(t, h.Same(h))
	assert.False(t, h.Same(other))

	a.Free(ref, 2)
}
