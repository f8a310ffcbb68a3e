// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import "github.com/rhoodlabs/rhood/mem"

// A holder is the per-bucket record storage. embedded keeps the record inline
// in the bucket array; node keeps a mem.Ref to a record allocated on its own.
// The engine manipulates holders only through the holderOps methods, so the
// two modes share one engine. Swapping two holders during Robin Hood
// displacement is a plain value swap in both modes and is done by the engine
// directly; the engine guarantees both holders belong to the same store.
//
// holderOps is the pointer-receiver constraint tying a holder type H to its
// record type R.
type holderOps[H, R any] interface {
	*H
	// emplace constructs the holder's record by moving *rec into place.
	emplace(recs mem.Allocator[R], rec *R) error
	// get returns the held record.
	get(recs mem.Allocator[R]) *R
	// clear destroys the record and releases its storage. Safe on a
	// moved-from holder.
	clear(recs mem.Allocator[R])
	// moveFrom move-assigns from other, destroying any record this holder
	// currently owns. Both holders must share recs' store.
	moveFrom(recs mem.Allocator[R], other *H)
	// reset leaves the holder logically moved-from without destroying
	// anything.
	reset()
}

// embedded stores the record inline in the bucket array.
type embedded[R any] struct {
	rec R
}

func (h *embedded[R]) emplace(recs mem.Allocator[R], rec *R) error {
	h.rec = *rec
	return nil
}

func (h *embedded[R]) get(recs mem.Allocator[R]) *R { return &h.rec }

func (h *embedded[R]) clear(recs mem.Allocator[R]) {
	var zero R
	h.rec = zero
}

func (h *embedded[R]) moveFrom(recs mem.Allocator[R], other *embedded[R]) {
	h.rec = other.rec
}

func (h *embedded[R]) reset() {
	var zero R
	h.rec = zero
}

// node stores a Ref to a record allocated from the container's store. The
// Ref, not the record, moves during displacement and backward-shift erase.
type node[R any] struct {
	ref mem.Ref
}

func (h *node[R]) emplace(recs mem.Allocator[R], rec *R) error {
	r, err := recs.Alloc(1)
	if err != nil {
		return err
	}
	*recs.At(r) = *rec
	h.ref = r
	return nil
}

func (h *node[R]) get(recs mem.Allocator[R]) *R { return recs.At(h.ref) }

func (h *node[R]) clear(recs mem.Allocator[R]) {
	if h.ref == 0 {
		return
	}
	var zero R
	*recs.At(h.ref) = zero
	recs.Free(h.ref, 1)
	h.ref = 0
}

func (h *node[R]) moveFrom(recs mem.Allocator[R], other *node[R]) {
	if h.ref != 0 {
		h.clear(recs)
	}
	h.ref = other.ref
	other.ref = 0
}

func (h *node[R]) reset() { h.ref = 0 }
