// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package main

import "fmt"

func mapFile(path string, size int64) ([]byte, func(), error) {
	return nil, nil, fmt.Errorf("file-backed regions require linux")
}
