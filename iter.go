// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

// tableIter walks the bucket array in position order, skipping empty buckets.
// Iteration order is unspecified. Any operation that can grow the table
// invalidates the iterator; erasing through it does not, but backward-shift
// moves records, so the continuation order after an erase is unspecified too.
type tableIter[K, R, H any, PH holderOps[H, R], TR traits[K, R]] struct {
	t       *table[K, R, H, PH, TR]
	pos     uintptr
	started bool
	stale   bool
}

// next advances to the next occupied bucket. After erase it rescans from the
// erased position itself, because the record that backward-shift pulled into
// that slot is the logical successor.
func (it *tableIter[K, R, H, PH, TR]) next() bool {
	t := it.t
	if t == nil {
		return false
	}
	if it.started && !it.stale {
		it.pos++
	}
	it.started = true
	it.stale = false
	it.pos = t.nextOccupied(it.pos)
	return it.pos < t.capacity()
}

// record is only valid after next returned true.
func (it *tableIter[K, R, H, PH, TR]) record() *R {
	return it.t.recordAt(it.pos)
}

// erase removes the current record. The iterator stays usable: the following
// next resumes at the first occupied bucket at or after the erased position.
// Erasing at the end position does nothing.
func (it *tableIter[K, R, H, PH, TR]) erase() {
	if it.t == nil || it.pos >= it.t.capacity() {
		return
	}
	it.t.eraseAt(it.pos)
	it.stale = true
}
