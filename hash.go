// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import "hash/maphash"

// HashFn hashes a key to 64 bits. For good performance the result should be
// uniformly distributed across the entire value.
type HashFn[K any] func(K) uint64

// EqualFn reports whether two keys are equal.
type EqualFn[K any] func(a, b K) bool

// DefaultHasher returns a hasher for any comparable key, seeded randomly per
// returned function. It is not deterministic across processes and must not be
// used for containers stored in a mem.Region that will be reopened later.
func DefaultHasher[K comparable]() HashFn[K] {
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}

// DefaultEqual returns == for any comparable key.
func DefaultEqual[K comparable]() EqualFn[K] {
	return func(a, b K) bool { return a == b }
}

// StringEqual is an EqualFn for string keys.
func StringEqual(a, b string) bool { return a == b }

// Uint64Hasher returns a deterministic hasher for uint64 keys: an
// avalanche-finalizer mix of the key with the caller's seed. Deterministic
// across processes, so suitable for region-backed containers.
func Uint64Hasher(seed uint64) HashFn[uint64] {
	return func(k uint64) uint64 {
		return mix64(k + seed)
	}
}

// Int64Hasher is Uint64Hasher for int64 keys.
func Int64Hasher(seed uint64) HashFn[int64] {
	return func(k int64) uint64 {
		return mix64(uint64(k) + seed)
	}
}

// StringHasher returns a deterministic FNV-1a hasher for string keys, folded
// with the caller's seed. Suitable for region-backed containers.
func StringHasher(seed uint64) HashFn[string] {
	return func(s string) uint64 {
		const (
			offset64 = 14695981039346656037
			prime64  = 1099511628211
		)
		h := uint64(offset64) ^ seed
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= prime64
		}
		return mix64(h)
	}
}

// mix64 forces all bits of the input to avalanche.
func mix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}
