// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"iter"

	"github.com/rhoodlabs/rhood/mem"
)

// setBase carries every set operation that does not name the concrete façade
// type. Set and NodeSet embed it with their respective holder types.
type setBase[K comparable, H any, PH holderOps[H, K]] struct {
	t table[K, K, H, PH, setTraits[K]]
}

// Len returns the number of keys.
func (s *setBase[K, H, PH]) Len() int { return int(s.t.size()) }

// Empty reports whether the set has no keys.
func (s *setBase[K, H, PH]) Empty() bool { return s.t.size() == 0 }

// Clear removes every key. The capacity is kept.
func (s *setBase[K, H, PH]) Clear() { s.t.clearAll() }

// Free removes every key and releases the bucket array, returning the set to
// the empty, capacity-zero state. The set remains usable.
func (s *setBase[K, H, PH]) Free() { s.t.freeTable() }

// Insert adds key if absent and reports whether it was inserted.
func (s *setBase[K, H, PH]) Insert(key K) (bool, error) {
	k := key
	_, inserted, err := s.t.insertRecord(&k)
	return inserted, err
}

// Emplace behaves like Insert but constructs the record before checking for
// the key, so in a node set the record node is allocated and released even
// when the key is already present.
func (s *setBase[K, H, PH]) Emplace(key K) (bool, error) {
	k := key
	_, inserted, err := s.t.emplaceRecord(&k)
	return inserted, err
}

// Contains reports whether key is present.
func (s *setBase[K, H, PH]) Contains(key K) bool { return s.t.contains(key) }

// Count returns the number of entries for key: 0 or 1.
func (s *setBase[K, H, PH]) Count(key K) int {
	if s.t.contains(key) {
		return 1
	}
	return 0
}

// Find reports whether key is present and returns the stored key.
func (s *setBase[K, H, PH]) Find(key K) (K, bool) {
	pos, found := s.t.locate(key)
	if !found {
		var zero K
		return zero, false
	}
	return *s.t.recordAt(pos), true
}

// Erase removes key and returns the number of keys removed.
func (s *setBase[K, H, PH]) Erase(key K) int { return int(s.t.eraseKey(key)) }

// BucketCount returns the capacity of the bucket array.
func (s *setBase[K, H, PH]) BucketCount() int { return int(s.t.capacity()) }

// LoadFactor returns Len divided by BucketCount, or 0 for an empty array.
func (s *setBase[K, H, PH]) LoadFactor() float64 { return s.t.loadFactor() }

// MaxLoadFactor returns the growth threshold ratio.
func (s *setBase[K, H, PH]) MaxLoadFactor() float32 { return s.t.maxLoadFactor() }

// SetMaxLoadFactor changes the growth threshold, clamped to (0, 1]. Lowering
// it rehashes to restore the load invariant.
func (s *setBase[K, H, PH]) SetMaxLoadFactor(f float32) error { return s.t.setMaxLoadFactor(f) }

// Reserve grows the bucket array to hold at least n buckets. On allocation
// failure the set is emptied; see DESIGN.md.
func (s *setBase[K, H, PH]) Reserve(n int) error { return s.t.reserve(uintptr(n)) }

// Rehash rebuilds the table with at least n buckets, never fewer than the
// current size requires.
func (s *setBase[K, H, PH]) Rehash(n int) error { return s.t.rehash(uintptr(n)) }

// ShrinkToFit rehashes to the smallest capacity holding the current keys.
func (s *setBase[K, H, PH]) ShrinkToFit() error { return s.t.shrinkToFit() }

// MaxSize returns a theoretical upper bound on the key count.
func (s *setBase[K, H, PH]) MaxSize() int { return int(s.t.maxSize()) }

// HashFunc returns the hash function in use.
func (s *setBase[K, H, PH]) HashFunc() HashFn[K] { return s.t.hash }

// KeyEq returns the key equality function in use.
func (s *setBase[K, H, PH]) KeyEq() EqualFn[K] { return s.t.eq }

// Store returns the memory store the set allocates from.
func (s *setBase[K, H, PH]) Store() mem.Store { return s.t.store }

// Root returns the Ref of the set's state block inside its store.
func (s *setBase[K, H, PH]) Root() mem.Ref { return s.t.sref }

// ProbeDistanceStats scans the table and returns the minimum, mean, and
// maximum probe distance over occupied buckets. O(BucketCount).
func (s *setBase[K, H, PH]) ProbeDistanceStats() (min int, mean float64, max int) {
	mn, mean, mx := s.t.probeStats()
	return int(mn), mean, int(mx)
}

// ProbeDistanceHistogram counts occupied buckets by stored distance byte.
// O(BucketCount).
func (s *setBase[K, H, PH]) ProbeDistanceHistogram() []uint64 { return s.t.probeHistogram() }

// ApproxMeanProbeDistance returns the incrementally maintained mean probe
// distance estimate without scanning.
func (s *setBase[K, H, PH]) ApproxMeanProbeDistance() float64 {
	return s.t.approxMeanProbeDistance()
}

// Iter returns an iterator over the set. See SetIter for validity rules.
func (s *setBase[K, H, PH]) Iter() *SetIter[K, H, PH] {
	return &SetIter[K, H, PH]{it: tableIter[K, K, H, PH, setTraits[K]]{t: &s.t}}
}

// All returns an iterator over keys.
func (s *setBase[K, H, PH]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for it := s.Iter(); it.Next(); {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

// SetIter iterates a set in unspecified order. Key and Erase are only valid
// after a call to Next that returned true. Operations that can grow the set
// invalidate the iterator.
type SetIter[K comparable, H any, PH holderOps[H, K]] struct {
	it tableIter[K, K, H, PH, setTraits[K]]
}

// Next moves to the next key and reports whether one exists.
func (it *SetIter[K, H, PH]) Next() bool { return it.it.next() }

// Key returns the key at the current position.
func (it *SetIter[K, H, PH]) Key() K { return *it.it.record() }

// Erase removes the current key. The iterator continues at the first
// occupied bucket at or after the erased position, which, because of
// backward-shift, may be a record displaced into that position.
func (it *SetIter[K, H, PH]) Erase() { it.it.erase() }

// Set is a Robin Hood hash set with keys stored inline in the bucket array
// (flat layout).
type Set[K comparable] struct {
	setBase[K, embedded[K], *embedded[K]]
}

// NewSet returns an empty flat set.
func NewSet[K comparable](opts ...Option) (*Set[K], error) {
	cfg := newConfig(opts)
	s := &Set[K]{}
	err := s.t.init(cfg.newStore(), uintptr(cfg.capacity), cfg.maxLoad, hasherOf[K](&cfg), equalOf[K](&cfg))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a copy of the set in the same store.
func (s *Set[K]) Clone() (*Set[K], error) { return s.CloneTo(s.t.store) }

// CloneTo returns a copy of the set allocated from st.
func (s *Set[K]) CloneTo(st mem.Store) (*Set[K], error) {
	c := &Set[K]{}
	if err := c.t.cloneFrom(&s.t, st); err != nil {
		return nil, err
	}
	return c, nil
}

// Swap exchanges the contents of the two sets, including their stores.
func (s *Set[K]) Swap(other *Set[K]) { s.t.swap(&other.t) }

// NodeSet is a Robin Hood hash set whose keys live in individually allocated
// nodes; the bucket array stores relocation-safe refs to them. Keys are
// never moved once inserted.
type NodeSet[K comparable] struct {
	setBase[K, node[K], *node[K]]
}

// NewNodeSet returns an empty node set.
func NewNodeSet[K comparable](opts ...Option) (*NodeSet[K], error) {
	cfg := newConfig(opts)
	s := &NodeSet[K]{}
	err := s.t.init(cfg.newStore(), uintptr(cfg.capacity), cfg.maxLoad, hasherOf[K](&cfg), equalOf[K](&cfg))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenNodeSet attaches to a node set previously built in st, identified by
// the Root it recorded. The hash function must be the same deterministic
// function the set was built with.
func OpenNodeSet[K comparable](st mem.Store, root mem.Ref, opts ...Option) (*NodeSet[K], error) {
	cfg := newConfig(opts)
	s := &NodeSet[K]{}
	if err := s.t.attach(st, root, hasherOf[K](&cfg), equalOf[K](&cfg)); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a copy of the set in the same store.
func (s *NodeSet[K]) Clone() (*NodeSet[K], error) { return s.CloneTo(s.t.store) }

// CloneTo returns a copy of the set allocated from st.
func (s *NodeSet[K]) CloneTo(st mem.Store) (*NodeSet[K], error) {
	c := &NodeSet[K]{}
	if err := c.t.cloneFrom(&s.t, st); err != nil {
		return nil, err
	}
	return c, nil
}

// Swap exchanges the contents of the two sets, including their stores.
func (s *NodeSet[K]) Swap(other *NodeSet[K]) { s.t.swap(&other.t) }
