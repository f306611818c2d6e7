// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package arraystore stores many versions of byte arrays in memory,
// keeping each distinct span of bytes only once.
//
// Arrays are split into chunks of roughly equal size.  When a new version
// is added along with a reference to an earlier one, the chunks of the
// reference that still appear in the new data are shared rather than
// copied, even if they moved: a hash table of chunk-start keys finds
// chunks at any element-aligned offset.  This makes it cheap to keep a
// long undo history of a large array where each step changes a little of
// it.
//
//	s, _ := arraystore.New(4, 256) // 4-byte elements, ~1KiB chunks
//	v1, _ := s.Add(data, nil)
//	// ...edit data...
//	v2, _ := s.Add(data, v1)       // shares most of v1's memory
//	_ = s.Remove(v1)               // v2 is unaffected
//
// A Store is not safe for concurrent use.  Distinct states may be read
// concurrently as long as nothing is being added or removed.
//
// Arrays dominated by long runs of one value should be encoded with
// package rle before being added.
package arraystore
