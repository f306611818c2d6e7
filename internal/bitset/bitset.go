// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import (
	"math/bits"
)

// Bitset is an in-memory bitmap that is conceptually similar to []bool, but
// more memory efficient.  Unlike a []bool it can be grown in place and
// scanned for set bits a word at a time.  The zero value is an empty bitset.
type Bitset struct {
	bits   []uint64
	length int64
}

func getOffsets(off int64) (sliceOff int64, bitOff uint64) {
	sliceOff = off / 64
	bitOff = uint64(off) % 64
	return
}

// Set sets the bit at position `off` to 1.
func (b *Bitset) Set(off int64) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	*u64 |= 1 << bitOff
}

// Clear sets the bit at position `off` to 0.
func (b *Bitset) Clear(off int64) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	*u64 &= ^(1 << bitOff)
}

// IsSet returns true if the bit at position `off` is 1.
func (b *Bitset) IsSet(off int64) bool {
	if off < 0 || off >= b.length {
		return false
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	return *u64&(1<<bitOff) != 0
}

// Grow extends the bitset so that it can address at least `length` bits.
// New bits are 0.  Grow never shrinks.
func (b *Bitset) Grow(length int64) {
	if length <= b.length {
		return
	}
	sliceLen := (length + 63) / 64
	if n := int64(len(b.bits)); sliceLen > n {
		if sliceLen <= int64(cap(b.bits)) {
			b.bits = b.bits[:sliceLen]
		} else {
			// double, so that growing one bit at a time stays amortized O(1)
			newCap := 2 * int64(cap(b.bits))
			if newCap < sliceLen {
				newCap = sliceLen
			}
			grown := make([]uint64, sliceLen, newCap)
			copy(grown, b.bits)
			b.bits = grown
		}
	}
	b.length = length
}

// Reset clears every bit and sets the length to 0, keeping the backing
// memory for reuse.
func (b *Bitset) Reset() {
	for i := range b.bits {
		b.bits[i] = 0
	}
	b.bits = b.bits[:0]
	b.length = 0
}

// Count returns the number of bits set to 1.
func (b *Bitset) Count() int64 {
	var n int
	for _, u64 := range b.bits {
		n += bits.OnesCount64(u64)
	}
	return int64(n)
}

// NextSet returns the position of the first set bit at or after `off`, or
// -1 if there is none.
func (b *Bitset) NextSet(off int64) int64 {
	if off < 0 {
		off = 0
	}
	if off >= b.length {
		return -1
	}
	sliceOff, bitOff := getOffsets(off)
	// mask off the bits below `off` in the first word
	u64 := b.bits[sliceOff] & (^uint64(0) << bitOff)
	for {
		if u64 != 0 {
			pos := sliceOff*64 + int64(bits.TrailingZeros64(u64))
			if pos >= b.length {
				return -1
			}
			return pos
		}
		sliceOff++
		if sliceOff >= int64(len(b.bits)) {
			return -1
		}
		u64 = b.bits[sliceOff]
	}
}
