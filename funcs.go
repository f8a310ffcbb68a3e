// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Container equality per the engine contract: equal sizes, and for every
// record in one container an equal-keyed record in the other whose full
// record compares equal. Iteration order plays no part.

func mapsEqualFunc[K comparable, V any, H any, PH holderOps[H, Pair[K, V]]](
	a, b *mapBase[K, V, H, PH], eq func(V, V) bool) bool {
	return a.t.equal(&b.t, func(x, y *Pair[K, V]) bool { return eq(x.Val, y.Val) })
}

func setsEqual[K comparable, H any, PH holderOps[H, K]](a, b *setBase[K, H, PH]) bool {
	return a.t.equal(&b.t, func(x, y *K) bool { return true })
}

// MapsEqual reports whether the two maps hold the same entries. Values are
// compared with ==.
func MapsEqual[K, V comparable](a, b *Map[K, V]) bool {
	return mapsEqualFunc(&a.mapBase, &b.mapBase, func(x, y V) bool { return x == y })
}

// MapsEqualFunc is MapsEqual with values compared by eq.
func MapsEqualFunc[K comparable, V any](a, b *Map[K, V], eq func(V, V) bool) bool {
	return mapsEqualFunc(&a.mapBase, &b.mapBase, eq)
}

// NodeMapsEqual reports whether the two node maps hold the same entries.
// Values are compared with ==.
func NodeMapsEqual[K, V comparable](a, b *NodeMap[K, V]) bool {
	return mapsEqualFunc(&a.mapBase, &b.mapBase, func(x, y V) bool { return x == y })
}

// NodeMapsEqualFunc is NodeMapsEqual with values compared by eq.
func NodeMapsEqualFunc[K comparable, V any](a, b *NodeMap[K, V], eq func(V, V) bool) bool {
	return mapsEqualFunc(&a.mapBase, &b.mapBase, eq)
}

// SetsEqual reports whether the two sets hold the same keys.
func SetsEqual[K comparable](a, b *Set[K]) bool {
	return setsEqual(&a.setBase, &b.setBase)
}

// NodeSetsEqual reports whether the two node sets hold the same keys.
func NodeSetsEqual[K comparable](a, b *NodeSet[K]) bool {
	return setsEqual(&a.setBase, &b.setBase)
}

type strKV struct {
	k string
	v string
}

func mapString[K comparable, V any, H any, PH holderOps[H, Pair[K, V]]](m *mapBase[K, V, H, PH]) string {
	strs := make([]strKV, 0, m.Len())
	s := 0
	for it := m.Iter(); it.Next(); {
		kv := strKV{k: fmt.Sprint(it.Key()), v: fmt.Sprint(it.Val())}
		s += len(kv.k) + len(kv.v)
		strs = append(strs, kv)
	}
	// Iteration order is unspecified; sort for a stable representation.
	slices.SortFunc(strs, func(a, b strKV) int { return strings.Compare(a.k, b.k) })

	var b strings.Builder
	b.Grow(len("rhood.Map[]") + len(strs)*2 + s)
	b.WriteString("rhood.Map[")
	for i, kv := range strs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv.k)
		b.WriteByte(':')
		b.WriteString(kv.v)
	}
	b.WriteByte(']')
	return b.String()
}

func setString[K comparable, H any, PH holderOps[H, K]](s *setBase[K, H, PH]) string {
	strs := make([]string, 0, s.Len())
	n := 0
	for it := s.Iter(); it.Next(); {
		k := fmt.Sprint(it.Key())
		n += len(k)
		strs = append(strs, k)
	}
	slices.Sort(strs)

	var b strings.Builder
	b.Grow(len("rhood.Set[]") + len(strs) + n)
	b.WriteString("rhood.Set[")
	for i, k := range strs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
	}
	b.WriteByte(']')
	return b.String()
}

// String renders the entries sorted by formatted key.
func (m *Map[K, V]) String() string { return mapString(&m.mapBase) }

// String renders the entries sorted by formatted key.
func (m *NodeMap[K, V]) String() string { return mapString(&m.mapBase) }

// String renders the keys in sorted formatted order.
func (s *Set[K]) String() string { return setString(&s.setBase) }

// String renders the keys in sorted formatted order.
func (s *NodeSet[K]) String() string { return setString(&s.setBase) }
