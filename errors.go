// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import "errors"

var (
	// ErrKeyNotFound is returned by At for a key that is not in the map.
	ErrKeyNotFound = errors.New("rhood: key not found")

	// ErrCapacityExceeded is returned when a requested capacity is beyond
	// the capacity schedule's maximum or beyond what the store could hold.
	// The container is left unchanged.
	ErrCapacityExceeded = errors.New("rhood: requested capacity exceeds maximum")

	// ErrBadRoot is returned when opening a container from a store root
	// that does not reference a valid table state.
	ErrBadRoot = errors.New("rhood: invalid table root")
)
