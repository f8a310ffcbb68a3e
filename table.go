// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rhood provides Robin Hood open-addressing hash containers: flat and
// node maps and sets over a pluggable memory store.
//
// The containers require the user-supplied hash and equality functions to
// agree: equal(a, b) implies hash(a) == hash(b), and equal must be reflexive,
// symmetric, and transitive. Keys containing references must not be mutated
// in a way that changes either function's result while stored. Containers are
// single-threaded; concurrent use of one instance is undefined.
//
// The node containers can live inside a mem.Region, in which case every
// internal reference is a relocation-safe offset and a populated container
// can be reopened from a remapping of the region at a different base address.
// Region-backed containers must use a hash function that is deterministic
// across processes, such as Uint64Hasher or StringHasher; the maphash-based
// default is not.
package rhood

import (
	"fmt"
	"math"

	"github.com/rhoodlabs/rhood/mem"
)

const (
	// defaultMaxLoadFactor is used when the caller does not set one.
	defaultMaxLoadFactor = 0.875

	// minMaxLoadFactor is the floor a caller-supplied max load factor is
	// clamped to: 100 times the float32 epsilon.
	minMaxLoadFactor = 100 * 1.1920929e-07

	// The table grows when the approximate mean probe distance exceeds
	// autoGrowMeanDistance while the load factor is above autoGrowMinLoad.
	autoGrowMeanDistance = 10
	autoGrowMinLoad      = 0.125
)

const invalidPos = ^uintptr(0)

// tableState is the relocatable part of a table: plain data, stored through
// the table's own store so that a region-backed table can be reopened. All
// positions derive from CapIdx; the bucket array is reachable through Bkts.
type tableState struct {
	Size    uint64
	MeanPD  float64
	Bkts    [2]mem.Ref
	MaxLoad float32
	CapIdx  uint8
	_       [3]byte
}

// table is the Robin Hood engine. It is monomorphised over the key type K,
// the record type R (a Pair for maps, K itself for sets), the holder type H
// (embedded or node storage), PH (pointer to H, carrying the holder method
// set), and the key projection TR.
type table[K, R, H any, PH holderOps[H, R], TR traits[K, R]] struct {
	store  mem.Store
	salloc mem.Allocator[tableState]
	recs   mem.Allocator[R]
	sref   mem.Ref
	st     *tableState
	arr    bucketArray[H]
	hash   HashFn[K]
	eq     EqualFn[K]
	tr     TR
}

func cleanseMaxLoadFactor(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < minMaxLoadFactor {
		return minMaxLoadFactor
	}
	return f
}

// init sets up a fresh table in st with at least the requested capacity.
func (t *table[K, R, H, PH, TR]) init(st mem.Store, capacity uintptr, maxLoad float32, hash HashFn[K], eq EqualFn[K]) error {
	t.store = st
	t.salloc = mem.Bind[tableState](st)
	t.recs = mem.Bind[R](st)
	sref, err := t.salloc.Alloc(1)
	if err != nil {
		return fmt.Errorf("rhood: allocate table state: %w", err)
	}
	t.sref = sref
	t.st = t.salloc.At(sref)
	*t.st = tableState{MaxLoad: cleanseMaxLoadFactor(maxLoad)}
	t.hash = hash
	t.eq = eq
	if capacity > 0 {
		return t.reserve(capacity)
	}
	return nil
}

// attach binds this handle to a table state already present in st, typically
// one written by an earlier process into a mem.Region.
func (t *table[K, R, H, PH, TR]) attach(st mem.Store, root mem.Ref, hash HashFn[K], eq EqualFn[K]) error {
	if root == 0 {
		return ErrBadRoot
	}
	t.store = st
	t.salloc = mem.Bind[tableState](st)
	t.recs = mem.Bind[R](st)
	t.sref = root
	t.st = t.salloc.At(root)
	if t.st.MaxLoad <= 0 || t.st.MaxLoad > 1 {
		return ErrBadRoot
	}
	t.arr = loadBuckets[H](st, t.st.Bkts, capToCapacity(t.st.CapIdx))
	t.hash = hash
	t.eq = eq
	return nil
}

func (t *table[K, R, H, PH, TR]) capacity() uintptr { return capToCapacity(t.st.CapIdx) }

func (t *table[K, R, H, PH, TR]) size() uintptr { return uintptr(t.st.Size) }

func (t *table[K, R, H, PH, TR]) loadFactor() float64 {
	c := t.capacity()
	if c == 0 {
		return 0
	}
	return float64(t.size()) / float64(c)
}

func (t *table[K, R, H, PH, TR]) maxLoadFactor() float32 { return t.st.MaxLoad }

func (t *table[K, R, H, PH, TR]) setMaxLoadFactor(f float32) error {
	old := t.st.MaxLoad
	t.st.MaxLoad = cleanseMaxLoadFactor(f)
	if t.st.MaxLoad < old {
		return t.rehash(t.capacity())
	}
	return nil
}

// maxSize returns a theoretical upper bound on the element count, limited by
// the store and the capacity schedule.
func (t *table[K, R, H, PH, TR]) maxSize() uintptr {
	n := t.store.Limit() / bucketBytes[H](1)
	if n > capMaxCapacity() {
		n = capMaxCapacity()
	}
	return n
}

func (t *table[K, R, H, PH, TR]) recordAt(pos uintptr) *R {
	return PH(t.arr.holder(pos)).get(t.recs)
}

func (t *table[K, R, H, PH, TR]) keyAt(pos uintptr) *K {
	return t.tr.key(t.recordAt(pos))
}

// probeDistanceAt returns the actual probe distance of the occupied bucket at
// pos, recomputing it from the key when the stored distance is saturated.
func (t *table[K, R, H, PH, TR]) probeDistanceAt(pos uintptr) uintptr {
	if d := t.arr.hdr(pos).distance(); d < maxProbeDistance {
		return d
	}
	c := t.capacity()
	ip := idealPos(t.hash(*t.keyAt(pos)), c)
	return (pos + c - ip) % c
}

// locate returns the bucket holding key, or the position probing stopped at.
// A stop position is a valid insertion hint for the same key as long as the
// table has not been modified in between.
func (t *table[K, R, H, PH, TR]) locate(key K) (uintptr, bool) {
	c := t.capacity()
	if c == 0 {
		return c, false
	}
	pos := idealPos(t.hash(key), c)
	for d := uintptr(0); d < c; d++ {
		hd := t.arr.hdr(pos)
		if hd.empty() || t.probeDistanceAt(pos) < d {
			// A present key would have displaced this bucket.
			return pos, false
		}
		if t.eq(*t.keyAt(pos), key) {
			return pos, true
		}
		pos = incPos(pos, c)
	}
	return pos, false
}

func (t *table[K, R, H, PH, TR]) contains(key K) bool {
	_, found := t.locate(key)
	return found
}

func (t *table[K, R, H, PH, TR]) requiredCapacity(n uintptr) uintptr {
	r := uintptr(math.Ceil(float64(n) / float64(t.st.MaxLoad)))
	if r < n {
		r = n
	}
	return r
}

func (t *table[K, R, H, PH, TR]) enough(n, capacity uintptr) bool {
	return float64(capacity)*float64(t.st.MaxLoad) >= float64(n)
}

// insertRecord inserts *rec unless its key is present. The record is only
// constructed in the table when the key is absent (try-emplace semantics).
func (t *table[K, R, H, PH, TR]) insertRecord(rec *R) (uintptr, bool, error) {
	pos, found := t.locate(*t.tr.key(rec))
	if found {
		return pos, false, nil
	}
	var h H
	if err := PH(&h).emplace(t.recs, rec); err != nil {
		return invalidPos, false, fmt.Errorf("rhood: allocate record: %w", err)
	}
	pos, err := t.insertCore(&h, pos, true)
	if err != nil {
		return invalidPos, false, err
	}
	return pos, true, nil
}

// emplaceRecord constructs the record first and discards it when the key
// turns out to be present, mirroring emplace semantics: in node mode the
// record node is allocated and freed even on a duplicate.
func (t *table[K, R, H, PH, TR]) emplaceRecord(rec *R) (uintptr, bool, error) {
	var h H
	if err := PH(&h).emplace(t.recs, rec); err != nil {
		return invalidPos, false, fmt.Errorf("rhood: allocate record: %w", err)
	}
	pos, found := t.locate(*t.tr.key(PH(&h).get(t.recs)))
	if found {
		PH(&h).clear(t.recs)
		return pos, false, nil
	}
	pos, err := t.insertCore(&h, pos, true)
	if err != nil {
		return invalidPos, false, err
	}
	return pos, true, nil
}

// insertCore places a constructed holder into the table, growing first when
// the load factor demands it and again when the mean probe distance drifts
// too high. Growth invalidates the caller's position hint.
func (t *table[K, R, H, PH, TR]) insertCore(h *H, hint uintptr, hasHint bool) (uintptr, error) {
	if !t.enough(t.size()+1, t.capacity()) {
		if err := t.grow(t.size() + 1); err != nil {
			PH(h).clear(t.recs)
			return invalidPos, err
		}
		hasHint = false
	}
	pos := t.forceInsert(h, hint, hasHint)

	if t.st.MeanPD > autoGrowMeanDistance && t.loadFactor() > autoGrowMinLoad {
		key := *t.keyAt(pos)
		if err := t.reserve(t.capacity() * 2); err != nil {
			return invalidPos, err
		}
		pos, found := t.locate(key)
		if !found {
			panic("rhood: inserted key lost during growth")
		}
		return pos, nil
	}
	return pos, nil
}

// forceInsert is the Robin Hood displacement loop. It assumes capacity is
// sufficient and the key absent, and returns the position the new record
// ended up at (before any displacement of it by later inserts).
func (t *table[K, R, H, PH, TR]) forceInsert(h *H, hint uintptr, hasHint bool) uintptr {
	c := t.capacity()
	var pos, d uintptr
	if hasHint {
		pos = hint
		ip := idealPos(t.hash(*t.tr.key(PH(h).get(t.recs))), c)
		d = (pos + c - ip) % c
	} else {
		pos = idealPos(t.hash(*t.tr.key(PH(h).get(t.recs))), c)
	}

	inserted := invalidPos
	for ; d < c; d++ {
		hd := t.arr.hdr(pos)
		if hd.empty() {
			hd.setDistance(d)
			sz := float64(t.size())
			t.st.MeanPD = (t.st.MeanPD*sz + float64(d)) / (sz + 1)
			bh := t.arr.holder(pos)
			*bh = *h
			PH(h).reset()
			t.st.Size++
			if inserted == invalidPos {
				inserted = pos
			}
			return inserted
		}

		pd := t.probeDistanceAt(pos)
		if pd < d {
			// Steal the richer bucket and keep probing for the
			// displaced record.
			bh := t.arr.holder(pos)
			*bh, *h = *h, *bh
			hd.setDistance(d)
			sz := float64(t.size())
			t.st.MeanPD = (t.st.MeanPD*sz - float64(pd) + float64(d)) / sz
			d = pd
			if inserted == invalidPos {
				inserted = pos
			}
		}
		pos = incPos(pos, c)
	}
	panic("rhood: probe loop completed a full cycle")
}

// grow raises the capacity to the next schedule step that fits min elements.
func (t *table[K, R, H, PH, TR]) grow(min uintptr) error {
	idx := t.st.CapIdx + 1
	for !t.enough(min, capToCapacity(idx)) {
		if capToCapacity(idx) >= capMaxCapacity() {
			return ErrCapacityExceeded
		}
		idx++
	}
	return t.reserve(capToCapacity(idx))
}

// reserve grows the table to hold at least n buckets. If the new array cannot
// be allocated the table is freed and left empty; see DESIGN.md on this
// deliberately lossy policy.
func (t *table[K, R, H, PH, TR]) reserve(n uintptr) error {
	if n <= t.capacity() {
		return nil
	}
	if n > t.maxSize() {
		return ErrCapacityExceeded
	}
	newCap := capAdjust(n)
	newArr, err := allocBuckets[H](t.store, newCap)
	if err != nil {
		t.freeTable()
		return fmt.Errorf("rhood: reserve %d buckets: %w", newCap, err)
	}
	t.transfer(newArr, newCap)
	return nil
}

// rehash rebuilds the table at the smallest schedule step covering both the
// request and the current size. rehash(0) on an empty table releases the
// bucket array entirely.
func (t *table[K, R, H, PH, TR]) rehash(n uintptr) error {
	if need := t.requiredCapacity(t.size()); n < need {
		n = need
	}
	if n > t.maxSize() {
		return ErrCapacityExceeded
	}
	newCap := capAdjust(n)
	if newCap == 0 {
		t.freeTable()
		return nil
	}
	newArr, err := allocBuckets[H](t.store, newCap)
	if err != nil {
		t.freeTable()
		return fmt.Errorf("rhood: rehash to %d buckets: %w", newCap, err)
	}
	t.transfer(newArr, newCap)
	return nil
}

func (t *table[K, R, H, PH, TR]) shrinkToFit() error {
	return t.rehash(t.size())
}

// transfer installs newArr and reinserts every record by move. The new
// capacity is known to suffice, so no capacity checks run. Access hints: the
// old array is read once sequentially, the new one is written randomly.
func (t *table[K, R, H, PH, TR]) transfer(newArr bucketArray[H], newCap uintptr) {
	oldArr := t.arr
	oldCap := t.capacity()

	t.arr = newArr
	t.st.Bkts = newArr.refs()
	t.st.CapIdx = capToIndex(newCap)
	t.st.Size = 0
	t.st.MeanPD = 0

	t.arr.advise(t.store, newCap, mem.AdviseRandom)
	if oldCap == 0 {
		return
	}
	oldArr.advise(t.store, oldCap, mem.AdviseSequential)

	for i := uintptr(0); i < oldCap; i++ {
		if oldArr.hdr(i).empty() {
			continue
		}
		oh := oldArr.holder(i)
		moved := *oh
		PH(oh).reset()
		t.forceInsert(&moved, 0, false)
		oldArr.hdr(i).clear()
		PH(oh).clear(t.recs)
	}
	oldArr.free(t.store, oldCap)
}

// eraseKey removes key if present, returning the number of records erased.
func (t *table[K, R, H, PH, TR]) eraseKey(key K) uintptr {
	pos, found := t.locate(key)
	if !found {
		return 0
	}
	t.eraseAt(pos)
	return 1
}

// eraseAt removes the record at pos, then shifts the following run one slot
// back until an empty bucket or a record already at its ideal position, which
// keeps the probe invariant without tombstones.
func (t *table[K, R, H, PH, TR]) eraseAt(pos uintptr) {
	c := t.capacity()
	i := incPos(pos, c)
	for !t.arr.hdr(i).empty() && t.probeDistanceAt(i) > 0 {
		oldPD := t.probeDistanceAt(i)
		prev := decPos(i, c)
		PH(t.arr.holder(prev)).moveFrom(t.recs, t.arr.holder(i))
		t.arr.hdr(prev).setDistance(oldPD - 1)
		sz := float64(t.size())
		t.st.MeanPD = (t.st.MeanPD*sz - float64(oldPD) + float64(oldPD-1)) / sz
		i = incPos(i, c)
	}
	t.clearAt(decPos(i, c))
	t.st.Size--
}

// clearAt destroys the record at pos and marks the bucket empty. Safe on an
// already-empty bucket.
func (t *table[K, R, H, PH, TR]) clearAt(pos uintptr) {
	if t.arr.hdr(pos).empty() {
		return
	}
	t.arr.hdr(pos).clear()
	PH(t.arr.holder(pos)).clear(t.recs)
}

// clearAll destroys every record, keeping the bucket array and capacity.
func (t *table[K, R, H, PH, TR]) clearAll() {
	c := t.capacity()
	for i := uintptr(0); i < c; i++ {
		t.clearAt(i)
	}
	t.st.Size = 0
	t.st.MeanPD = 0
}

// freeTable destroys every record and releases the bucket array, leaving the
// table in the empty, capacity-zero state. The state block stays allocated so
// the handle remains usable.
func (t *table[K, R, H, PH, TR]) freeTable() {
	t.clearAll()
	t.arr.free(t.store, t.capacity())
	t.st.CapIdx = 0
	t.st.Bkts = [2]mem.Ref{}
}

// nextOccupied returns the first occupied position at or after pos, or the
// capacity when there is none.
func (t *table[K, R, H, PH, TR]) nextOccupied(pos uintptr) uintptr {
	c := t.capacity()
	for ; pos < c; pos++ {
		if !t.arr.hdr(pos).empty() {
			return pos
		}
	}
	return c
}

// equal reports whether both tables hold the same size and, for each record
// here, a record with an equal key over there whose full record recEq accepts.
func (t *table[K, R, H, PH, TR]) equal(other *table[K, R, H, PH, TR], recEq func(a, b *R) bool) bool {
	if t.size() != other.size() {
		return false
	}
	c := t.capacity()
	for i := uintptr(0); i < c; i++ {
		if t.arr.hdr(i).empty() {
			continue
		}
		rec := t.recordAt(i)
		pos, found := other.locate(*t.tr.key(rec))
		if !found || !recEq(rec, other.recordAt(pos)) {
			return false
		}
	}
	return true
}

// cloneFrom rebuilds this table in st as a record-by-record copy of src,
// preserving bucket positions, headers, and the mean estimate. Record copies
// are shallow in the usual Go sense.
func (t *table[K, R, H, PH, TR]) cloneFrom(src *table[K, R, H, PH, TR], st mem.Store) error {
	if err := t.init(st, 0, src.maxLoadFactor(), src.hash, src.eq); err != nil {
		return err
	}
	srcCap := src.capacity()
	if srcCap == 0 {
		return nil
	}
	arr, err := allocBuckets[H](st, srcCap)
	if err != nil {
		return fmt.Errorf("rhood: clone: %w", err)
	}
	t.arr = arr
	t.st.Bkts = arr.refs()
	t.st.CapIdx = src.st.CapIdx
	t.st.MeanPD = src.st.MeanPD
	for i := uintptr(0); i < srcCap; i++ {
		sh := src.arr.hdr(i)
		if sh.empty() {
			continue
		}
		*t.arr.hdr(i) = *sh
		rec := *src.recordAt(i)
		if err := PH(t.arr.holder(i)).emplace(t.recs, &rec); err != nil {
			t.freeTable()
			return fmt.Errorf("rhood: clone: %w", err)
		}
		t.st.Size++
	}
	return nil
}

// swap exchanges the entire contents of two handles, including their stores.
func (t *table[K, R, H, PH, TR]) swap(other *table[K, R, H, PH, TR]) {
	*t, *other = *other, *t
}

// probeStats scans the whole table and returns the minimum, mean, and maximum
// actual probe distance over occupied buckets.
func (t *table[K, R, H, PH, TR]) probeStats() (min uintptr, mean float64, max uintptr) {
	if t.size() == 0 {
		return 0, 0, 0
	}
	min = invalidPos
	var sum uintptr
	c := t.capacity()
	for i := uintptr(0); i < c; i++ {
		if t.arr.hdr(i).empty() {
			continue
		}
		pd := t.probeDistanceAt(i)
		if pd < min {
			min = pd
		}
		if pd > max {
			max = pd
		}
		sum += pd
	}
	return min, float64(sum) / float64(t.size()), max
}

// probeHistogram counts occupied buckets by stored distance byte. The last
// entry aggregates every saturated distance.
func (t *table[K, R, H, PH, TR]) probeHistogram() []uint64 {
	hist := make([]uint64, maxProbeDistance+1)
	c := t.capacity()
	for i := uintptr(0); i < c; i++ {
		if !t.arr.hdr(i).empty() {
			hist[t.arr.hdr(i).distance()]++
		}
	}
	return hist
}

func (t *table[K, R, H, PH, TR]) approxMeanProbeDistance() float64 {
	return t.st.MeanPD
}
