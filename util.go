// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

type stateSet map[*State]struct{}

func (set stateSet) Contains(st *State) bool {
	_, ok := set[st]
	return ok
}

func (set stateSet) Add(st *State) {
	set[st] = struct{}{}
}

func (set stateSet) Remove(st *State) {
	delete(set, st)
}

// concatInto fills dst with the bytes of a followed by b, starting at
// offset `off` of the concatenation.
func concatInto(dst []byte, off int, a, b []byte) {
	n := 0
	if off < len(a) {
		n = copy(dst, a[off:])
		off = 0
	} else {
		off -= len(a)
	}
	copy(dst[n:], b[off:])
}
