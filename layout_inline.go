// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !rhood_split

package rhood

import (
	"unsafe"

	"github.com/rhoodlabs/rhood/mem"
)

// Interleaved bucket layout: each bucket pairs its header byte with its
// holder, so a probe touches one cache line per step. Build with the
// rhood_split tag for the separated layout in layout_split.go. The engine
// only sees the bucketArray surface, which is identical under both.

type bucket[H any] struct {
	hdr  header
	hold H
}

type bucketArray[H any] struct {
	ref mem.Ref
	bkt []bucket[H]
}

func allocBuckets[H any](st mem.Store, n uintptr) (bucketArray[H], error) {
	a := mem.Bind[bucket[H]](st)
	ref, err := a.Alloc(int(n))
	if err != nil {
		return bucketArray[H]{}, err
	}
	data := a.Slice(ref, int(n))
	for i := range data {
		data[i].hdr.clear()
	}
	return bucketArray[H]{ref: ref, bkt: data}, nil
}

// loadBuckets resolves an array previously allocated in st, identified by the
// refs recorded in the table state.
func loadBuckets[H any](st mem.Store, refs [2]mem.Ref, n uintptr) bucketArray[H] {
	if refs[0] == 0 || n == 0 {
		return bucketArray[H]{}
	}
	a := mem.Bind[bucket[H]](st)
	return bucketArray[H]{ref: refs[0], bkt: a.Slice(refs[0], int(n))}
}

func (b *bucketArray[H]) free(st mem.Store, n uintptr) {
	if b.ref == 0 {
		return
	}
	mem.Bind[bucket[H]](st).Free(b.ref, int(n))
	*b = bucketArray[H]{}
}

func (b *bucketArray[H]) refs() [2]mem.Ref { return [2]mem.Ref{b.ref, 0} }

func (b *bucketArray[H]) hdr(i uintptr) *header { return &b.bkt[i].hdr }

func (b *bucketArray[H]) holder(i uintptr) *H { return &b.bkt[i].hold }

func (b *bucketArray[H]) advise(st mem.Store, n uintptr, advice mem.Advice) {
	if b.ref == 0 {
		return
	}
	if ad, ok := st.(mem.Adviser); ok {
		ad.Advise(b.ref, bucketBytes[H](n), advice)
	}
}

func bucketBytes[H any](n uintptr) uintptr {
	var b bucket[H]
	return unsafe.Sizeof(b) * n
}
