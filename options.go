// Copyright (c) 2024 The rhood Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhood

import "github.com/rhoodlabs/rhood/mem"

// Option configures a container at construction time.
type Option func(*config)

type config struct {
	capacity int
	maxLoad  float32
	store    mem.Store
	hasher   any
	keyEq    any
}

func newConfig(opts []Option) config {
	c := config{maxLoad: defaultMaxLoadFactor}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c *config) newStore() mem.Store {
	if c.store != nil {
		return c.store
	}
	return mem.NewHeap()
}

func hasherOf[K comparable](c *config) HashFn[K] {
	if c.hasher == nil {
		return DefaultHasher[K]()
	}
	h, ok := c.hasher.(HashFn[K])
	if !ok {
		panic("rhood: WithHasher key type does not match the container key type")
	}
	return h
}

func equalOf[K comparable](c *config) EqualFn[K] {
	if c.keyEq == nil {
		return DefaultEqual[K]()
	}
	eq, ok := c.keyEq.(EqualFn[K])
	if !ok {
		panic("rhood: WithKeyEqual key type does not match the container key type")
	}
	return eq
}

// WithCapacity requests an initial capacity, rounded up by the capacity
// schedule.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithMaxLoadFactor sets the maximum load factor in (0, 1]. Values outside
// the range are clamped.
func WithMaxLoadFactor(f float32) Option {
	return func(c *config) { c.maxLoad = f }
}

// WithStore places the container in st instead of a private heap store.
func WithStore(st mem.Store) Option {
	return func(c *config) { c.store = st }
}

// WithHasher overrides the default hash function. The key type must match
// the container's key type or construction panics.
func WithHasher[K comparable](h HashFn[K]) Option {
	return func(c *config) { c.hasher = h }
}

// WithKeyEqual overrides the default key equality. The key type must match
// the container's key type or construction panics.
func WithKeyEqual[K comparable](eq EqualFn[K]) Option {
	return func(c *config) { c.keyEq = eq }
}
