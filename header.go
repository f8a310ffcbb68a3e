// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

// header is the per-bucket metadata byte. It encodes either "empty" or a
// saturating probe distance: 255 marks an empty bucket, 254 means the real
// distance is 254 or more and must be recomputed from the key, anything else
// is the distance itself.
type header uint8

const (
	emptyMark        header = 255
	maxProbeDistance        = 254
)

func (h *header) empty() bool { return *h == emptyMark }

func (h *header) clear() { *h = emptyMark }

// setDistance stores d, saturating at maxProbeDistance.
func (h *header) setDistance(d uintptr) {
	if d < maxProbeDistance {
		*h = header(d)
	} else {
		*h = maxProbeDistance
	}
}

func (h *header) distance() uintptr { return uintptr(*h) }
