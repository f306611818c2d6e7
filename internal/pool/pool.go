// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package pool provides an index-addressed arena of fixed-size records.
//
// Records are referred to by int32 IDs rather than pointers.  IDs of freed
// records are recycled, and a bitset tracks which IDs are live so the pool
// can be iterated without consulting the records themselves.
package pool

import (
	"fmt"

	"github.com/bpowers/arraystore/internal/bitset"
)

// Pool is an arena of T records.  The zero value is ready to use.
//
// Pointers returned by Alloc and Get are only valid until the next call to
// Alloc, which may move the backing array.
type Pool[T any] struct {
	items []T
	live  bitset.Bitset
	free  []int32
}

// New returns a pool with room for `capacity` records before it has to grow.
func New[T any](capacity int) *Pool[T] {
	return &Pool[T]{
		items: make([]T, 0, capacity),
	}
}

// Alloc returns the ID of a zeroed record along with a pointer to it.
func (p *Pool[T]) Alloc() (int32, *T) {
	var id int32
	if k := len(p.free); k > 0 {
		id = p.free[k-1]
		p.free = p.free[:k-1]
	} else {
		if len(p.items) >= maxRecords {
			panic(fmt.Errorf("pool: more than %d live records", maxRecords))
		}
		id = int32(len(p.items))
		var zero T
		p.items = append(p.items, zero)
		p.live.Grow(int64(len(p.items)))
	}
	p.live.Set(int64(id))
	return id, &p.items[id]
}

const maxRecords = 1<<31 - 1

// Free returns the record to the pool.  Freeing a record that isn't live
// panics.
func (p *Pool[T]) Free(id int32) {
	if !p.live.IsSet(int64(id)) {
		panic(fmt.Errorf("invariant broken: pool record %d freed twice (or never allocated)", id))
	}
	var zero T
	p.items[id] = zero
	p.live.Clear(int64(id))
	p.free = append(p.free, id)
}

// Get returns a pointer to the live record `id`.
func (p *Pool[T]) Get(id int32) *T {
	if !p.live.IsSet(int64(id)) {
		panic(fmt.Errorf("invariant broken: pool record %d is not live", id))
	}
	return &p.items[id]
}

// IsLive reports whether `id` refers to an allocated record.
func (p *Pool[T]) IsLive(id int32) bool {
	return p.live.IsSet(int64(id))
}

// Len returns the number of live records.
func (p *Pool[T]) Len() int {
	return int(p.live.Count())
}

// Each calls fn for every live record in ID order.  fn must not allocate
// from or free to the pool.
func (p *Pool[T]) Each(fn func(id int32, item *T)) {
	for off := p.live.NextSet(0); off >= 0; off = p.live.NextSet(off + 1) {
		fn(int32(off), &p.items[off])
	}
}

// Reset frees every record at once, keeping the backing memory.
func (p *Pool[T]) Reset() {
	var zero T
	for i := range p.items {
		p.items[i] = zero
	}
	p.items = p.items[:0]
	p.free = p.free[:0]
	p.live.Reset()
}
