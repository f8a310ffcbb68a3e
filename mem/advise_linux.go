// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package mem

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// osAdvise forwards the hint to madvise(2) for the page-aligned interior of
// b. The kernel may return EAGAIN under memory pressure, so the call is
// retried a few times. Failures are ignored; the hint is advisory.
func osAdvise(b []byte, advice Advice) {
	page := uintptr(os.Getpagesize())
	start := uintptr(unsafe.Pointer(&b[0]))
	aligned := (start + page - 1) &^ (page - 1)
	skip := aligned - start
	if skip >= uintptr(len(b)) {
		return
	}
	sub := b[skip:]
	sub = sub[:uintptr(len(sub))&^(page-1)]
	if len(sub) == 0 {
		return
	}

	var flag int
	switch advice {
	case AdviseSequential:
		flag = unix.MADV_SEQUENTIAL
	case AdviseRandom:
		flag = unix.MADV_RANDOM
	default:
		flag = unix.MADV_NORMAL
	}

	const maxRetries = 4
	for i := 0; i < maxRetries; i++ {
		if err := unix.Madvise(sub, flag); err != unix.EAGAIN {
			return
		}
	}
}
