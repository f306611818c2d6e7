// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !unix

package main

func peakRSS() uint64 {
	return 0
}
