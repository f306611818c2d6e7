// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"fmt"
	"math"

	"github.com/dgryski/go-farm"
)

// HashStrategy selects how the key identifying the start of a chunk is
// computed.  Keys are only used to find candidate chunks; matches are always
// confirmed by comparing bytes, so the strategy affects speed and dedup
// quality but never correctness.
type HashStrategy int

const (
	// HashAccumulate hashes each element of a short read-ahead window, then
	// folds later elements' hashes back into earlier ones.  This gives
	// usable keys even for low-entropy data like boolean arrays.
	HashAccumulate HashStrategy = iota
	// HashReadAhead hashes the raw bytes of a fixed read-ahead window.
	HashReadAhead
	// HashFarm is like HashReadAhead, using farmhash over the window.
	HashFarm
)

func (s HashStrategy) String() string {
	switch s {
	case HashAccumulate:
		return "accumulate"
	case HashReadAhead:
		return "read-ahead"
	case HashFarm:
		return "farm"
	default:
		return fmt.Sprintf("HashStrategy(%d)", int(s))
	}
}

type hashKey uint32

const (
	// keyUnset marks a chunk whose key hasn't been computed yet.
	keyUnset hashKey = math.MaxUint32
	// keyFallback stands in for a real key that happens to equal keyUnset.
	keyFallback hashKey = math.MaxUint32 - 1

	hashInit hashKey = 5381

	// number of elements hashed by the non-accumulating strategies
	readAheadElements = 16

	// accumulation steps, by element width; fewer steps are needed as
	// elements themselves carry more entropy.
	accumStepsDefault = 3
	accumSteps32Bits  = 4
	accumSteps16Bits  = 5
	accumSteps8Bits   = 6
)

func hashByte(b byte) hashKey {
	// bytes are sign-extended, matching the classic djb2 string hash over
	// `signed char`
	return ((hashInit << 5) + hashInit) + hashKey(int8(b))
}

func hashBytes(b []byte) hashKey {
	h := hashInit
	for _, c := range b {
		h = (h << 5) + h + hashKey(int8(c))
	}
	return h
}

func normalizeKey(key hashKey) hashKey {
	if key == keyUnset {
		return keyFallback
	}
	return key
}

// hashAccumulate folds the hash of element i+off into element i, for each
// off from steps down to 1, over the whole array.
func hashAccumulate(h []hashKey, steps int) {
	// very unlikely: happens with a chunk count of 1, for example
	if steps > len(h) {
		steps = len(h)
	}
	searchLen := len(h) - steps
	for ; steps != 0; steps-- {
		off := steps
		for i := 0; i < searchLen; i++ {
			h[i] += (h[i+off] << 3) ^ (h[i] >> 1)
		}
	}
}

// hashAccumulateSingle computes the same h[0] as hashAccumulate would, but
// shrinks the region it updates each step since only the first value is
// needed.
func hashAccumulateSingle(h []hashKey, steps int) {
	if steps > len(h) {
		steps = len(h)
	}
	sub := steps
	for steps != 0 {
		searchLen := len(h) - sub
		if searchLen <= 0 {
			break
		}
		off := steps
		for i := 0; i < searchLen; i++ {
			h[i] += (h[i+off] << 3) ^ (h[i] >> 1)
		}
		steps--
		sub += steps
	}
}

// keyer computes chunk-start keys for a store's stride and hash strategy.
type keyer struct {
	strategy HashStrategy
	stride   int

	accumSteps     int
	readAheadLen   int // in elements
	readAheadBytes int

	elems []hashKey
}

func newKeyer(strategy HashStrategy, stride, chunkCount int) keyer {
	k := keyer{
		strategy: strategy,
		stride:   stride,
	}

	if strategy == HashAccumulate {
		// one is always subtracted from steps below, which intentionally
		// leaves wide elements with a single step.
		steps := accumStepsDefault - 1
		switch {
		case stride <= 1:
			steps = accumSteps8Bits + 1
		case stride <= 2:
			steps = accumSteps16Bits + 1
		case stride <= 4:
			steps = accumSteps32Bits + 1
		}
		for {
			steps--
			// a triangular number (+1): the furthest element whose hash
			// reaches the first one after accumulating
			k.readAheadLen = steps*(steps+1)/2 + 1
			// the window may never extend past a regular chunk
			if chunkCount >= k.readAheadLen {
				break
			}
		}
		k.accumSteps = steps
	} else {
		k.readAheadLen = readAheadElements
		if chunkCount < k.readAheadLen {
			k.readAheadLen = chunkCount
		}
	}
	k.readAheadBytes = k.readAheadLen * stride
	k.elems = make([]hashKey, k.readAheadLen)
	return k
}

// hashElements fills out with one hash per stride-sized element of data.
func (k *keyer) hashElements(data []byte, out []hashKey) {
	if k.stride == 1 {
		for i, b := range data[:len(out)] {
			out[i] = hashByte(b)
		}
		return
	}
	for i := range out {
		off := i * k.stride
		out[i] = hashBytes(data[off : off+k.stride])
	}
}

func (k *keyer) windowKey(window []byte) hashKey {
	if k.strategy == HashFarm {
		return hashKey(farm.Hash32(window))
	}
	return hashBytes(window)
}

// chunkKey returns the key for a chunk whose first readAheadBytes bytes
// (possibly gathered across following chunks) are window.
func (k *keyer) chunkKey(window []byte) hashKey {
	if k.strategy != HashAccumulate {
		return normalizeKey(k.windowKey(window))
	}
	elems := k.elems[:len(window)/k.stride]
	k.hashElements(window, elems)
	hashAccumulateSingle(elems, k.accumSteps)
	if len(elems) == 0 {
		return keyFallback
	}
	return normalizeKey(elems[0])
}

// dataKeys fills out with the key for every stride-aligned offset of data,
// such that a chunk starting at that offset would get the same key.
// Offsets too close to the end of data for a full window get keys that
// usually won't match anything.
func (k *keyer) dataKeys(data []byte, out []hashKey) {
	if k.strategy == HashAccumulate {
		k.hashElements(data, out)
		hashAccumulate(out, k.accumSteps)
		for i, key := range out {
			out[i] = normalizeKey(key)
		}
		return
	}
	for i := range out {
		off := i * k.stride
		if off+k.readAheadBytes > len(data) {
			out[i] = keyUnset
			continue
		}
		out[i] = normalizeKey(k.windowKey(data[off : off+k.readAheadBytes]))
	}
}
