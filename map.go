// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"iter"

	"github.com/rhoodlabs/rhood/mem"
)

// mapBase carries every map operation that does not name the concrete façade
// type. Map and NodeMap embed it with their respective holder types.
type mapBase[K comparable, V any, H any, PH holderOps[H, Pair[K, V]]] struct {
	t table[K, Pair[K, V], H, PH, mapTraits[K, V]]
}

// Len returns the number of entries.
func (m *mapBase[K, V, H, PH]) Len() int { return int(m.t.size()) }

// Empty reports whether the map has no entries.
func (m *mapBase[K, V, H, PH]) Empty() bool { return m.t.size() == 0 }

// Clear removes every entry. The capacity is kept.
func (m *mapBase[K, V, H, PH]) Clear() { m.t.clearAll() }

// Free removes every entry and releases the bucket array, returning the map
// to the empty, capacity-zero state. The map remains usable.
func (m *mapBase[K, V, H, PH]) Free() { m.t.freeTable() }

// Insert adds key with value v if key is absent. It reports whether the
// entry was inserted; an existing entry's value is left untouched.
func (m *mapBase[K, V, H, PH]) Insert(key K, v V) (bool, error) {
	rec := Pair[K, V]{Key: key, Val: v}
	_, inserted, err := m.t.insertRecord(&rec)
	return inserted, err
}

// Emplace behaves like Insert but constructs the record before checking for
// the key, so in a node map the record node is allocated and released even
// when the key is already present.
func (m *mapBase[K, V, H, PH]) Emplace(key K, v V) (bool, error) {
	rec := Pair[K, V]{Key: key, Val: v}
	_, inserted, err := m.t.emplaceRecord(&rec)
	return inserted, err
}

// TryEmplace adds key with value v only if key is absent, constructing
// nothing when it is present.
func (m *mapBase[K, V, H, PH]) TryEmplace(key K, v V) (bool, error) {
	rec := Pair[K, V]{Key: key, Val: v}
	_, inserted, err := m.t.insertRecord(&rec)
	return inserted, err
}

// Ref returns a pointer to the value for key, inserting the zero value first
// when key is absent. The pointer is valid until the next operation that can
// grow the table or erase from it.
func (m *mapBase[K, V, H, PH]) Ref(key K) (*V, error) {
	rec := Pair[K, V]{Key: key}
	pos, _, err := m.t.insertRecord(&rec)
	if err != nil {
		return nil, err
	}
	return &m.t.recordAt(pos).Val, nil
}

// At returns the value for key, or ErrKeyNotFound without mutating the map.
func (m *mapBase[K, V, H, PH]) At(key K) (V, error) {
	pos, found := m.t.locate(key)
	if !found {
		var zero V
		return zero, ErrKeyNotFound
	}
	return m.t.recordAt(pos).Val, nil
}

// Find returns the value for key and whether it is present.
func (m *mapBase[K, V, H, PH]) Find(key K) (V, bool) {
	pos, found := m.t.locate(key)
	if !found {
		var zero V
		return zero, false
	}
	return m.t.recordAt(pos).Val, true
}

// Contains reports whether key is present.
func (m *mapBase[K, V, H, PH]) Contains(key K) bool { return m.t.contains(key) }

// Count returns the number of entries for key: 0 or 1.
func (m *mapBase[K, V, H, PH]) Count(key K) int {
	if m.t.contains(key) {
		return 1
	}
	return 0
}

// Erase removes key and returns the number of entries removed.
func (m *mapBase[K, V, H, PH]) Erase(key K) int { return int(m.t.eraseKey(key)) }

// BucketCount returns the capacity of the bucket array.
func (m *mapBase[K, V, H, PH]) BucketCount() int { return int(m.t.capacity()) }

// LoadFactor returns Len divided by BucketCount, or 0 for an empty array.
func (m *mapBase[K, V, H, PH]) LoadFactor() float64 { return m.t.loadFactor() }

// MaxLoadFactor returns the growth threshold ratio.
func (m *mapBase[K, V, H, PH]) MaxLoadFactor() float32 { return m.t.maxLoadFactor() }

// SetMaxLoadFactor changes the growth threshold, clamped to (0, 1]. Lowering
// it rehashes to restore the load invariant.
func (m *mapBase[K, V, H, PH]) SetMaxLoadFactor(f float32) error { return m.t.setMaxLoadFactor(f) }

// Reserve grows the bucket array to hold at least n buckets. On allocation
// failure the map is emptied; see DESIGN.md.
func (m *mapBase[K, V, H, PH]) Reserve(n int) error { return m.t.reserve(uintptr(n)) }

// Rehash rebuilds the table with at least n buckets, never fewer than the
// current size requires.
func (m *mapBase[K, V, H, PH]) Rehash(n int) error { return m.t.rehash(uintptr(n)) }

// ShrinkToFit rehashes to the smallest capacity holding the current entries.
func (m *mapBase[K, V, H, PH]) ShrinkToFit() error { return m.t.shrinkToFit() }

// MaxSize returns a theoretical upper bound on the entry count.
func (m *mapBase[K, V, H, PH]) MaxSize() int { return int(m.t.maxSize()) }

// HashFunc returns the hash function in use.
func (m *mapBase[K, V, H, PH]) HashFunc() HashFn[K] { return m.t.hash }

// KeyEq returns the key equality function in use.
func (m *mapBase[K, V, H, PH]) KeyEq() EqualFn[K] { return m.t.eq }

// Store returns the memory store the map allocates from.
func (m *mapBase[K, V, H, PH]) Store() mem.Store { return m.t.store }

// Root returns the Ref of the map's state block inside its store. Recording
// it (for example with Region.SetRoot) lets a later process reopen the map.
func (m *mapBase[K, V, H, PH]) Root() mem.Ref { return m.t.sref }

// ProbeDistanceStats scans the table and returns the minimum, mean, and
// maximum probe distance over occupied buckets. O(BucketCount).
func (m *mapBase[K, V, H, PH]) ProbeDistanceStats() (min int, mean float64, max int) {
	mn, mean, mx := m.t.probeStats()
	return int(mn), mean, int(mx)
}

// ProbeDistanceHistogram counts occupied buckets by stored distance byte.
// O(BucketCount).
func (m *mapBase[K, V, H, PH]) ProbeDistanceHistogram() []uint64 { return m.t.probeHistogram() }

// ApproxMeanProbeDistance returns the incrementally maintained mean probe
// distance estimate without scanning.
func (m *mapBase[K, V, H, PH]) ApproxMeanProbeDistance() float64 {
	return m.t.approxMeanProbeDistance()
}

// Iter returns an iterator over the map. See MapIter for validity rules.
func (m *mapBase[K, V, H, PH]) Iter() *MapIter[K, V, H, PH] {
	return &MapIter[K, V, H, PH]{it: tableIter[K, Pair[K, V], H, PH, mapTraits[K, V]]{t: &m.t}}
}

// All returns an iterator over key-value pairs.
func (m *mapBase[K, V, H, PH]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Key(), it.Val()) {
				return
			}
		}
	}
}

// Keys returns an iterator over keys.
func (m *mapBase[K, V, H, PH]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

// Values returns an iterator over values.
func (m *mapBase[K, V, H, PH]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Val()) {
				return
			}
		}
	}
}

// MapIter iterates a map in unspecified order. Key, Val, and Erase are only
// valid after a call to Next that returned true. Operations that can grow the
// map invalidate the iterator.
type MapIter[K comparable, V any, H any, PH holderOps[H, Pair[K, V]]] struct {
	it tableIter[K, Pair[K, V], H, PH, mapTraits[K, V]]
}

// Next moves to the next entry and reports whether one exists.
func (it *MapIter[K, V, H, PH]) Next() bool { return it.it.next() }

// Key returns the key at the current position.
func (it *MapIter[K, V, H, PH]) Key() K { return it.it.record().Key }

// Val returns the value at the current position.
func (it *MapIter[K, V, H, PH]) Val() V { return it.it.record().Val }

// Erase removes the current entry. The iterator continues at the first
// occupied bucket at or after the erased position, which, because of
// backward-shift, may be a record displaced into that position.
func (it *MapIter[K, V, H, PH]) Erase() { it.it.erase() }

// Map is a Robin Hood hash map with records stored inline in the bucket
// array (flat layout).
type Map[K comparable, V any] struct {
	mapBase[K, V, embedded[Pair[K, V]], *embedded[Pair[K, V]]]
}

// NewMap returns an empty flat map.
func NewMap[K comparable, V any](opts ...Option) (*Map[K, V], error) {
	cfg := newConfig(opts)
	m := &Map[K, V]{}
	err := m.t.init(cfg.newStore(), uintptr(cfg.capacity), cfg.maxLoad, hasherOf[K](&cfg), equalOf[K](&cfg))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Clone returns a copy of the map in the same store.
func (m *Map[K, V]) Clone() (*Map[K, V], error) { return m.CloneTo(m.t.store) }

// CloneTo returns a copy of the map allocated from st.
func (m *Map[K, V]) CloneTo(st mem.Store) (*Map[K, V], error) {
	c := &Map[K, V]{}
	if err := c.t.cloneFrom(&m.t, st); err != nil {
		return nil, err
	}
	return c, nil
}

// Swap exchanges the contents of the two maps, including their stores.
func (m *Map[K, V]) Swap(other *Map[K, V]) { m.t.swap(&other.t) }

// NodeMap is a Robin Hood hash map whose records live in individually
// allocated nodes; the bucket array stores relocation-safe refs to them.
// Keys of entries are never moved once inserted.
type NodeMap[K comparable, V any] struct {
	mapBase[K, V, node[Pair[K, V]], *node[Pair[K, V]]]
}

// NewNodeMap returns an empty node map.
func NewNodeMap[K comparable, V any](opts ...Option) (*NodeMap[K, V], error) {
	cfg := newConfig(opts)
	m := &NodeMap[K, V]{}
	err := m.t.init(cfg.newStore(), uintptr(cfg.capacity), cfg.maxLoad, hasherOf[K](&cfg), equalOf[K](&cfg))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// OpenNodeMap attaches to a node map previously built in st, identified by
// the Root it recorded. The hash function must be the same deterministic
// function the map was built with (such as Uint64Hasher); WithCapacity and
// WithMaxLoadFactor options are ignored.
func OpenNodeMap[K comparable, V any](st mem.Store, root mem.Ref, opts ...Option) (*NodeMap[K, V], error) {
	cfg := newConfig(opts)
	m := &NodeMap[K, V]{}
	if err := m.t.attach(st, root, hasherOf[K](&cfg), equalOf[K](&cfg)); err != nil {
		return nil, err
	}
	return m, nil
}

// Clone returns a copy of the map in the same store.
func (m *NodeMap[K, V]) Clone() (*NodeMap[K, V], error) { return m.CloneTo(m.t.store) }

// CloneTo returns a copy of the map allocated from st.
func (m *NodeMap[K, V]) CloneTo(st mem.Store) (*NodeMap[K, V], error) {
	c := &NodeMap[K, V]{}
	if err := c.t.cloneFrom(&m.t, st); err != nil {
		return nil, err
	}
	return c, nil
}

// Swap exchanges the contents of the two maps, including their stores.
func (m *NodeMap[K, V]) Swap(other *NodeMap[K, V]) { m.t.swap(&other.t) }
