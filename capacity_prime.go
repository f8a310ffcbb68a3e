// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build rhood_prime

package rhood

import (
	"math/bits"
	"sort"
)

// Prime-ladder capacity schedule: a fixed table of 64 primes, roughly
// doubling each step. Position arithmetic uses modulo. The default
// power-of-two schedule lives in capacity_pow2.go.

var primeCapacities = [64]uintptr{
	1,
	2,
	5,
	11,
	23,
	47,
	97,
	199,
	409,
	823,
	1741,
	3469,
	6949,
	14033,
	28411,
	57557,
	116731,
	236897,
	480881,
	976369,
	1982627,
	4026031,
	8175383,
	16601593,
	33712729,
	68460391,
	139022417,
	282312799,
	573292817,
	1164186217,
	2364114217,
	4294967291,
	8589934583,
	17179869143,
	34359738337,
	68719476731,
	137438953447,
	274877906899,
	549755813881,
	1099511627689,
	2199023255531,
	4398046511093,
	8796093022151,
	17592186044399,
	35184372088777,
	70368744177643,
	140737488355213,
	281474976710597,
	562949953421231,
	1125899906842597,
	2251799813685119,
	4503599627370449,
	9007199254740881,
	18014398509481951,
	36028797018963913,
	72057594037927931,
	144115188075855859,
	288230376151711717,
	576460752303423433,
	1152921504606846883,
	2305843009213693951,
	4611686018427387847,
	9223372036854775783,
	18446744073709551557,
}

func capToIndex(n uintptr) uint8 {
	if n == 0 {
		return 0
	}
	i := sort.Search(len(primeCapacities), func(i int) bool {
		return primeCapacities[i] >= n
	})
	return uint8(i) + 1
}

func capToCapacity(i uint8) uintptr {
	if i == 0 {
		return 0
	}
	if int(i) >= len(primeCapacities) {
		return capMaxCapacity()
	}
	return primeCapacities[i-1]
}

func capAdjust(n uintptr) uintptr {
	return capToCapacity(capToIndex(n))
}

func capMaxCapacity() uintptr {
	return uintptr(1) << (bits.UintSize - 1)
}

func idealPos(hash uint64, capacity uintptr) uintptr {
	return uintptr(hash % uint64(capacity))
}

func incPos(p, capacity uintptr) uintptr {
	return (p + 1) % capacity
}

func decPos(p, capacity uintptr) uintptr {
	return (p + capacity - 1) % capacity
}
