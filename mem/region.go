// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mem

import (
	"unsafe"
)

const (
	regionMagic   = 0x5248445247494f4e // "RHDRGION"
	regionVersion = 1

	// Every block is a multiple of blockAlign bytes, which also bounds the
	// alignment requirement of any type stored in a region.
	blockAlign = 16
)

// regionHeader sits at offset 0 of the backing slice. It is plain data; the
// free list and the root Ref live inside the region so they survive remapping.
type regionHeader struct {
	Magic   uint64
	Version uint32
	_       uint32
	Root    Ref
	Brk     uint64
	Free    Ref
}

// freeBlock is written into the first bytes of a freed block.
type freeBlock struct {
	Size uint64
	Next Ref
}

// Region is a Store carved out of a caller-supplied byte slice, typically a
// file mapping. Refs are byte offsets from the region base, so a region
// written in one process can be reopened in another even when the mapping
// lands at a different address.
//
// Types stored in a region must not contain Go pointers: the region is opaque
// bytes to the garbage collector. Fixed-size integer, float, array, and
// struct types are fine; strings, slices, maps, and pointers are not.
type Region struct {
	buf []byte
	hdr *regionHeader
}

// InitRegion formats buf as a fresh region and returns a store over it. Any
// previous content of buf is discarded.
func InitRegion(buf []byte) (*Region, error) {
	if uintptr(len(buf)) < alignUp(unsafe.Sizeof(regionHeader{}))+blockAlign {
		return nil, ErrBadRegion
	}
	r := &Region{buf: buf, hdr: (*regionHeader)(unsafe.Pointer(&buf[0]))}
	*r.hdr = regionHeader{
		Magic:   regionMagic,
		Version: regionVersion,
		Brk:     uint64(alignUp(unsafe.Sizeof(regionHeader{}))),
	}
	return r, nil
}

// OpenRegion attaches to a region previously formatted by InitRegion. The
// slice may be a new mapping of the same bytes at any base address.
func OpenRegion(buf []byte) (*Region, error) {
	if uintptr(len(buf)) < unsafe.Sizeof(regionHeader{}) {
		return nil, ErrBadRegion
	}
	r := &Region{buf: buf, hdr: (*regionHeader)(unsafe.Pointer(&buf[0]))}
	if r.hdr.Magic != regionMagic || r.hdr.Version != regionVersion {
		return nil, ErrBadRegion
	}
	if r.hdr.Brk > uint64(len(buf)) {
		return nil, ErrBadRegion
	}
	return r, nil
}

func (r *Region) Same(other Store) bool {
	o, ok := other.(*Region)
	return ok && &o.buf[0] == &r.buf[0]
}

func (r *Region) Limit() uintptr { return uintptr(len(r.buf)) }

// SetRoot records a Ref in the region header, typically the state block of a
// container stored in the region, so a later OpenRegion can find it.
func (r *Region) SetRoot(root Ref) { r.hdr.Root = root }

// Root returns the Ref recorded by SetRoot, or zero.
func (r *Region) Root() Ref { return r.hdr.Root }

// Advise forwards an access-pattern hint for the given block to the OS.
func (r *Region) Advise(ref Ref, size uintptr, advice Advice) {
	if ref == 0 || size == 0 {
		return
	}
	end := uintptr(ref) + size
	if end > uintptr(len(r.buf)) {
		end = uintptr(len(r.buf))
	}
	osAdvise(r.buf[ref:end], advice)
}

func (r *Region) ptr(ref Ref) unsafe.Pointer {
	return unsafe.Pointer(&r.buf[ref])
}

func (r *Region) freeBlockAt(ref Ref) *freeBlock {
	return (*freeBlock)(r.ptr(ref))
}

func alignUp(n uintptr) uintptr {
	return (n + blockAlign - 1) &^ (blockAlign - 1)
}

// alloc hands out a block of at least size bytes: first fit from the free
// list, carving the tail off oversized blocks, then from the bump pointer.
func (r *Region) alloc(size uintptr) (Ref, error) {
	size = alignUp(size)
	if size == 0 {
		size = blockAlign
	}

	var prev Ref
	for cur := r.hdr.Free; cur != 0; {
		fb := r.freeBlockAt(cur)
		if uintptr(fb.Size) >= size {
			rem := uintptr(fb.Size) - size
			if rem >= blockAlign {
				fb.Size = uint64(rem)
				return cur + Ref(rem), nil
			}
			if prev == 0 {
				r.hdr.Free = fb.Next
			} else {
				r.freeBlockAt(prev).Next = fb.Next
			}
			return cur, nil
		}
		prev = cur
		cur = fb.Next
	}

	off := uintptr(r.hdr.Brk)
	if off+size > uintptr(len(r.buf)) {
		return 0, ErrOutOfMemory
	}
	r.hdr.Brk = uint64(off + size)
	return Ref(off), nil
}

// free returns a block to the free list. The caller passes the size it
// allocated with, as in the allocator contract.
func (r *Region) free(ref Ref, size uintptr) {
	if ref == 0 {
		return
	}
	size = alignUp(size)
	if size == 0 {
		size = blockAlign
	}
	fb := r.freeBlockAt(ref)
	fb.Size = uint64(size)
	fb.Next = r.hdr.Free
	r.hdr.Free = ref
}

type regionAlloc[T any] struct {
	r *Region
}

func sizeOf[T any](n int) uintptr {
	var z T
	return unsafe.Sizeof(z) * uintptr(n)
}

func (a regionAlloc[T]) Alloc(n int) (Ref, error) {
	return a.r.alloc(sizeOf[T](n))
}

func (a regionAlloc[T]) Free(r Ref, n int) {
	a.r.free(r, sizeOf[T](n))
}

func (a regionAlloc[T]) At(r Ref) *T {
	return (*T)(a.r.ptr(r))
}

func (a regionAlloc[T]) Slice(r Ref, n int) []T {
	return unsafe.Slice((*T)(a.r.ptr(r)), n)
}

func (a regionAlloc[T]) Store() Store { return a.r }
