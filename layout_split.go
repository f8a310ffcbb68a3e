// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build rhood_split

package rhood

import (
	"unsafe"

	"github.com/rhoodlabs/rhood/mem"
)

// Separated bucket layout: all header bytes in one array, all holders in
// another. Header-only scans (iteration, statistics) touch far less memory at
// the cost of an extra cache line per probe hit. Semantics are identical to
// the interleaved layout in layout_inline.go.

type bucketArray[H any] struct {
	href mem.Ref
	dref mem.Ref
	hdrs []header
	hold []H
}

func allocBuckets[H any](st mem.Store, n uintptr) (bucketArray[H], error) {
	ha := mem.Bind[header](st)
	da := mem.Bind[H](st)
	href, err := ha.Alloc(int(n))
	if err != nil {
		return bucketArray[H]{}, err
	}
	dref, err := da.Alloc(int(n))
	if err != nil {
		ha.Free(href, int(n))
		return bucketArray[H]{}, err
	}
	hdrs := ha.Slice(href, int(n))
	for i := range hdrs {
		hdrs[i].clear()
	}
	return bucketArray[H]{href: href, dref: dref, hdrs: hdrs, hold: da.Slice(dref, int(n))}, nil
}

func loadBuckets[H any](st mem.Store, refs [2]mem.Ref, n uintptr) bucketArray[H] {
	if refs[0] == 0 || n == 0 {
		return bucketArray[H]{}
	}
	ha := mem.Bind[header](st)
	da := mem.Bind[H](st)
	return bucketArray[H]{
		href: refs[0],
		dref: refs[1],
		hdrs: ha.Slice(refs[0], int(n)),
		hold: da.Slice(refs[1], int(n)),
	}
}

func (b *bucketArray[H]) free(st mem.Store, n uintptr) {
	if b.href == 0 {
		return
	}
	mem.Bind[header](st).Free(b.href, int(n))
	mem.Bind[H](st).Free(b.dref, int(n))
	*b = bucketArray[H]{}
}

func (b *bucketArray[H]) refs() [2]mem.Ref { return [2]mem.Ref{b.href, b.dref} }

func (b *bucketArray[H]) hdr(i uintptr) *header { return &b.hdrs[i] }

func (b *bucketArray[H]) holder(i uintptr) *H { return &b.hold[i] }

func (b *bucketArray[H]) advise(st mem.Store, n uintptr, advice mem.Advice) {
	if b.href == 0 {
		return
	}
	if ad, ok := st.(mem.Adviser); ok {
		var h H
		ad.Advise(b.href, n*unsafe.Sizeof(header(0)), advice)
		ad.Advise(b.dref, n*unsafe.Sizeof(h), advice)
	}
}

func bucketBytes[H any](n uintptr) uintptr {
	var h H
	return (unsafe.Sizeof(header(0)) + unsafe.Sizeof(h)) * n
}
