// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderEmpty(t *testing.T) {
	var h header = emptyMark
	assert.True(t, h.empty())

	h.setDistance(0)
	assert.False(t, h.empty())
	assert.Equal(t, uintptr(0), h.distance())

	h.clear()
	assert.True(t, h.empty())
}

func TestHeaderSaturation(t *testing.T) {
	tests := []struct {
		in   uintptr
		want uintptr
	}{
		{0, 0},
		{1, 1},
		{253, 253},
		{254, 254},
		{255, 254},
		{100000, 254},
	}
	for _, tc := range tests {
		var h header
		h.setDistance(tc.in)
		assert.Equal(t, tc.want, h.distance(), "distance %d", tc.in)
		assert.False(t, h.empty())
	}
}
