// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mem provides the memory stores the rhood containers allocate from.
//
// A Store hands out storage addressed by Ref values instead of machine
// pointers. A Ref stays meaningful when the backing memory is mapped at a
// different base address, which is what makes a Region-backed container
// reopenable from another process. The Heap store is the default and is
// backed by ordinary garbage-collected allocation.
package mem

import "errors"

// Ref is a relocation-safe reference to storage inside a Store. The zero Ref
// is the null reference. For a Region, a Ref is the byte offset of the block
// from the region base; for a Heap it is an opaque block id. A Ref is only
// meaningful to the Store that produced it.
type Ref uint64

var (
	// ErrOutOfMemory is returned when a store cannot satisfy an allocation.
	ErrOutOfMemory = errors.New("mem: out of memory")
	// ErrBadRegion is returned when a byte slice does not contain a valid
	// region image.
	ErrBadRegion = errors.New("mem: not a valid region")
)

// Store is a source of allocatable memory. Implementations are not safe for
// concurrent use.
type Store interface {
	// Same reports whether other is backed by the same memory as this
	// store. Containers sharing a store may exchange Refs.
	Same(other Store) bool
	// Limit returns the number of bytes the store can hand out in total,
	// or the maximum uintptr if it is effectively unbounded.
	Limit() uintptr
}

// Advice hints how a range of store memory is about to be accessed. Stores
// that cannot act on it ignore it; it never changes semantics.
type Advice int

const (
	AdviseNormal Advice = iota
	AdviseSequential
	AdviseRandom
)

// Adviser is implemented by stores that can pass access-pattern hints to the
// operating system.
type Adviser interface {
	Advise(r Ref, size uintptr, advice Advice)
}

// Allocator allocates arrays of T from a Store and resolves Refs back to
// typed storage. Allocators are cheap handles; all state lives in the Store,
// so two allocators bound to the same store resolve each other's Refs.
type Allocator[T any] interface {
	// Alloc allocates an array of n values of T. The returned Ref is
	// non-zero on success.
	Alloc(n int) (Ref, error)
	// Free releases an array previously returned by Alloc. The caller
	// supplies the same n it allocated with.
	Free(r Ref, n int)
	// At resolves r to the first element of its array. The returned
	// pointer is valid until the block is freed or, for a Region, until
	// the backing slice is remapped.
	At(r Ref) *T
	// Slice resolves r to its array of n elements.
	Slice(r Ref, n int) []T
	// Store returns the store this allocator is bound to.
	Store() Store
}

// Bind returns a typed allocator over st. Only the stores provided by this
// package are supported.
func Bind[T any](st Store) Allocator[T] {
	switch s := st.(type) {
	case *Heap:
		return heapAlloc[T]{s}
	case *Region:
		return regionAlloc[T]{s}
	}
	panic("mem: unsupported store implementation")
}
