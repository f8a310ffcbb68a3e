// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhoodlabs/rhood/mem"
	"golang.org/x/exp/rand"
)

// checkProbeInvariant verifies, for every occupied bucket, that the actual
// probe distance matches the distance from the key's ideal position and that
// a displaced record's predecessor is occupied with a distance of at least
// one less, which together imply the Robin Hood probe invariant.
func checkProbeInvariant[K comparable, V any](t *testing.T, m *Map[K, V]) {
	t.Helper()
	tb := &m.t
	c := tb.capacity()
	for i := uintptr(0); i < c; i++ {
		if tb.arr.hdr(i).empty() {
			continue
		}
		pd := tb.probeDistanceAt(i)
		ip := idealPos(tb.hash(*tb.keyAt(i)), c)
		require.Equal(t, (i+c-ip)%c, pd, "stored distance mismatch at %d", i)
		if pd > 0 {
			prev := decPos(i, c)
			require.False(t, tb.arr.hdr(prev).empty(),
				"hole before displaced record at %d", i)
			require.GreaterOrEqual(t, tb.probeDistanceAt(prev), pd-1,
				"probe distances not non-decreasing at %d", i)
		}
	}
}

func checkLoadInvariant[K comparable, V any](t *testing.T, m *Map[K, V]) {
	t.Helper()
	if m.BucketCount() > 0 {
		require.LessOrEqual(t, float64(m.Len()),
			float64(m.MaxLoadFactor())*float64(m.BucketCount()))
	} else {
		require.Zero(t, m.Len())
	}
}

func TestTableFirstGrowth(t *testing.T) {
	m, err := NewMap[int, int]()
	require.NoError(t, err)
	require.Zero(t, m.BucketCount())

	// Insertion into a capacity-0 table triggers the first growth.
	ins, err := m.Insert(1, 11)
	require.NoError(t, err)
	assert.True(t, ins)
	assert.Greater(t, m.BucketCount(), 0)
	assert.Equal(t, 1, m.Len())
	checkLoadInvariant(t, m)
}

func TestTableGrowthBeforeOverload(t *testing.T) {
	m, err := NewMap[int, int](WithCapacity(8))
	require.NoError(t, err)
	require.Equal(t, 8, m.BucketCount())

	// Filling to the load limit must grow before the offending insert
	// completes, never after.
	for i := 0; i < 100; i++ {
		_, err := m.Insert(i, i)
		require.NoError(t, err)
		checkLoadInvariant(t, m)
	}
	assert.Equal(t, 100, m.Len())
	checkProbeInvariant(t, m)
}

func TestTableWraparound(t *testing.T) {
	// A hasher that pins every key to the last bucket forces probes to
	// wrap into position 0.
	m, err := NewMap[uint64, int](
		WithCapacity(16),
		WithHasher(HashFn[uint64](func(k uint64) uint64 { return 15 })),
	)
	require.NoError(t, err)
	for i := uint64(0); i < 4; i++ {
		_, err := m.Insert(i, int(i))
		require.NoError(t, err)
	}
	for i := uint64(0); i < 4; i++ {
		v, ok := m.Find(i)
		require.True(t, ok)
		assert.Equal(t, int(i), v)
	}
	checkProbeInvariant(t, m)
}

func TestTableSaturatedProbeDistance(t *testing.T) {
	// A constant hash collides every key, driving probe distances past the
	// one-byte limit so lookups exercise the recomputation path.
	const n = 400
	m, err := NewMap[int, int](
		WithHasher(HashFn[int](func(int) uint64 { return 7 })),
	)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := m.Insert(i, i*3)
		require.NoError(t, err)
	}
	require.Equal(t, n, m.Len())

	_, _, max := m.ProbeDistanceStats()
	assert.Greater(t, max, int(maxProbeDistance))

	hist := m.ProbeDistanceHistogram()
	require.Len(t, hist, int(maxProbeDistance)+1)
	assert.Greater(t, hist[maxProbeDistance], uint64(0))

	for i := 0; i < n; i++ {
		v, ok := m.Find(i)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, i*3, v)
	}
	assert.False(t, m.Contains(n))
	checkProbeInvariant(t, m)

	// Erasing from the middle of the saturated run must keep the invariant.
	assert.Equal(t, 1, m.Erase(n/2))
	assert.False(t, m.Contains(n/2))
	checkProbeInvariant(t, m)
}

func TestTableEraseBackwardShift(t *testing.T) {
	m, err := NewMap[int, int](WithCapacity(8))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := m.Insert(i, 10+i)
		require.NoError(t, err)
	}
	require.Equal(t, 1, m.Erase(0))

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 0, m.Count(0))
	for i := 1; i < 4; i++ {
		assert.Equal(t, 1, m.Count(i))
	}
	checkProbeInvariant(t, m)

	assert.Equal(t, 0, m.Erase(0))
	assert.Equal(t, 3, m.Len())
}

func TestTableMeanProbeDistance(t *testing.T) {
	m, err := NewMap[uint64, uint64]()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		_, err := m.Insert(rng.Uint64(), 0)
		require.NoError(t, err)
	}
	// The incremental estimate drifts but must stay in the neighborhood
	// of the scanned mean.
	_, mean, _ := m.ProbeDistanceStats()
	approx := m.ApproxMeanProbeDistance()
	assert.InDelta(t, mean, approx, 2.0)
	// The automatic rehash keeps the mean itself small.
	assert.Less(t, mean, 10.0)
}

func TestTableRandomLookups(t *testing.T) {
	const n = 200000
	m, err := NewMap[uint64, uint64]()
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	inserted := make([]uint64, 0, n)
	ref := make(map[uint64]uint64, n)
	for i := 0; i < n; i++ {
		k := rng.Uint64()
		v := rng.Uint64()
		ins, err := m.Insert(k, v)
		require.NoError(t, err)
		if _, dup := ref[k]; !dup {
			assert.True(t, ins)
			ref[k] = v
			inserted = append(inserted, k)
		}
	}
	require.Equal(t, len(ref), m.Len())

	// 50% hit rate lookups: every hit succeeds with the inserted value,
	// no miss produces a spurious hit.
	for i := 0; i < n; i++ {
		if rng.Intn(2) == 0 {
			k := inserted[rng.Intn(len(inserted))]
			v, ok := m.Find(k)
			require.True(t, ok)
			require.Equal(t, ref[k], v)
		} else {
			k := rng.Uint64()
			_, expect := ref[k]
			_, ok := m.Find(k)
			require.Equal(t, expect, ok)
		}
	}

	_, _, max := m.ProbeDistanceStats()
	assert.Less(t, max, 30)
}

func TestTableMixedOpsAgainstReference(t *testing.T) {
	const ops = 1 << 18
	m, err := NewMap[uint32, uint32]()
	require.NoError(t, err)
	ref := make(map[uint32]uint32)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < ops; i++ {
		k := uint32(rng.Intn(1 << 18))
		if rng.Float64() < 0.9 {
			_, err := m.Insert(k, k)
			require.NoError(t, err)
			if _, ok := ref[k]; !ok {
				ref[k] = k
			}
		} else {
			got := m.Erase(k)
			_, had := ref[k]
			if had {
				require.Equal(t, 1, got)
				delete(ref, k)
			} else {
				require.Equal(t, 0, got)
			}
		}
	}

	require.Equal(t, len(ref), m.Len())
	seen := make(map[uint32]uint32, m.Len())
	for it := m.Iter(); it.Next(); {
		_, dup := seen[it.Key()]
		require.False(t, dup, "key %d iterated twice", it.Key())
		seen[it.Key()] = it.Val()
	}
	require.Equal(t, len(ref), len(seen))
	for k, v := range ref {
		require.Equal(t, v, seen[k])
	}
	checkProbeInvariant(t, m)
}

func TestTableClearKeepsCapacity(t *testing.T) {
	m, err := NewMap[int, int](WithCapacity(64))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		m.Insert(i, i)
	}
	bc := m.BucketCount()
	m.Clear()
	assert.Zero(t, m.Len())
	assert.Equal(t, bc, m.BucketCount())
	assert.Zero(t, m.ApproxMeanProbeDistance())

	m.Free()
	assert.Zero(t, m.BucketCount())
	_, err = m.Insert(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestTableShrinkToFit(t *testing.T) {
	m, err := NewMap[int, int](WithCapacity(1024))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		m.Insert(i, i)
	}
	require.NoError(t, m.ShrinkToFit())
	assert.Less(t, m.BucketCount(), 1024)
	for i := 0; i < 10; i++ {
		assert.True(t, m.Contains(i))
	}
	checkProbeInvariant(t, m)

	// Shrinking an empty map releases the array entirely.
	e, err := NewMap[int, int](WithCapacity(64))
	require.NoError(t, err)
	require.NoError(t, e.ShrinkToFit())
	assert.Zero(t, e.BucketCount())
}

func TestTableAllocationFailureEmptiesTable(t *testing.T) {
	// A region too small for the next growth step: the failed reserve
	// frees the current table, the deliberately lossy policy.
	buf := make([]byte, 4096)
	region, err := mem.InitRegion(buf)
	require.NoError(t, err)

	m, err := NewMap[uint64, uint64](
		WithStore(region),
		WithHasher(Uint64Hasher(99)),
	)
	require.NoError(t, err)

	var insertErr error
	for i := uint64(0); i < 4096; i++ {
		if _, insertErr = m.Insert(i, i); insertErr != nil {
			break
		}
	}
	require.ErrorIs(t, insertErr, mem.ErrOutOfMemory)
	assert.Zero(t, m.Len())
	assert.Zero(t, m.BucketCount())
}

func TestTableCapacityExceeded(t *testing.T) {
	m, err := NewMap[int, int]()
	require.NoError(t, err)
	m.Insert(1, 1)
	err = m.Reserve(int(capMaxCapacity()>>1) + 1)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	// The table must not be corrupted by the rejected request.
	assert.True(t, m.Contains(1))
	assert.Equal(t, 1, m.Len())
}
