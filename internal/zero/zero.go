// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package zero provides functions to zero slices of specific types.
package zero

func U32(b []uint32) {
	for i := 0; i < len(b); i++ {
		b[i] = 0
	}
}

// U32Len returns b resized to n elements, all zero, reusing b's backing
// array when it is large enough.
func U32Len(b []uint32, n int) []uint32 {
	if cap(b) < n {
		return make([]uint32, n)
	}
	b = b[:n]
	U32(b)
	return b
}
