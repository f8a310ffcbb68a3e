// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mem

// Heap is a Store backed by the Go heap. Blocks are ordinary garbage-collected
// slices kept alive by the store, so any Go type may be stored through it.
// Refs are opaque block ids and are stable for the lifetime of the block.
type Heap struct {
	next   Ref
	blocks map[Ref]any
}

// NewHeap returns an empty heap store.
func NewHeap() *Heap {
	return &Heap{blocks: make(map[Ref]any)}
}

func (h *Heap) Same(other Store) bool {
	o, ok := other.(*Heap)
	return ok && o == h
}

func (h *Heap) Limit() uintptr { return ^uintptr(0) }

func (h *Heap) put(b any) Ref {
	h.next++
	h.blocks[h.next] = b
	return h.next
}

type heapAlloc[T any] struct {
	h *Heap
}

func (a heapAlloc[T]) Alloc(n int) (Ref, error) {
	return a.h.put(make([]T, n)), nil
}

func (a heapAlloc[T]) Free(r Ref, n int) {
	delete(a.h.blocks, r)
}

func (a heapAlloc[T]) At(r Ref) *T {
	return &a.h.blocks[r].([]T)[0]
}

func (a heapAlloc[T]) Slice(r Ref, n int) []T {
	return a.h.blocks[r].([]T)[:n]
}

func (a heapAlloc[T]) Store() Store { return a.h }
