// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"bytes"
	"fmt"
)

type chunkID int32

type listID int32

// chunk is an immutable span of bytes shared by every chunk list that
// references it.  The only exception to immutability is a chunk whose sole
// user is the list currently being built, which may be extended in place.
type chunk struct {
	data  []byte
	users int32
	key   hashKey
}

// chunkList is the ordered sequence of chunks making up one state's data.
type chunkList struct {
	refs  []chunkID
	total int // expanded size: always the sum of the chunk lengths
	users int32
}

func (s *Store) chunk(id chunkID) *chunk {
	return s.chunks.Get(int32(id))
}

func (s *Store) list(id listID) *chunkList {
	return s.lists.Get(int32(id))
}

// newChunk takes ownership of data.
func (s *Store) newChunk(data []byte) chunkID {
	id, c := s.chunks.Alloc()
	c.data = data
	c.users = 0
	c.key = keyUnset
	return chunkID(id)
}

func (s *Store) newChunkCopy(data []byte) chunkID {
	buf := make([]byte, len(data))
	copy(buf, data)
	return s.newChunk(buf)
}

func (s *Store) chunkDecref(id chunkID) {
	c := s.chunk(id)
	if c.users <= 0 {
		panic(fmt.Errorf("invariant broken: chunk %d released with %d users", id, c.users))
	}
	c.users--
	if c.users == 0 {
		s.chunks.Free(int32(id))
	}
}

func (s *Store) newList(total int) listID {
	id, l := s.lists.Alloc()
	l.total = total
	return listID(id)
}

func (s *Store) listDecref(id listID) {
	l := s.list(id)
	if l.users <= 0 {
		panic(fmt.Errorf("invariant broken: chunk list %d released with %d users", id, l.users))
	}
	l.users--
	if l.users == 0 {
		// freeing chunks never moves the list pool, so l stays valid
		for _, cid := range l.refs {
			s.chunkDecref(cid)
		}
		s.lists.Free(int32(id))
	}
}

// chunkEqualAt reports whether the chunk's bytes appear in data at off.
func (s *Store) chunkEqualAt(id chunkID, data []byte, off int) bool {
	c := s.chunk(id).data
	if off+len(c) > len(data) {
		return false
	}
	return bytes.Equal(c, data[off:off+len(c)])
}

// appendOnly appends a chunk to the list without any merging.
func (s *Store) appendOnly(lid listID, cid chunkID) {
	l := s.list(lid)
	l.refs = append(l.refs, cid)
	s.chunk(cid).users++
}

// appendChunk appends an existing (usually reference) chunk, merging it
// with its new neighbour if either is undersized.
func (s *Store) appendChunk(lid listID, cid chunkID) {
	s.appendOnly(lid, cid)
	if s.opts.chunkMerging {
		s.ensureMinSizeLast(lid)
	}
}

// ensureMinSizeLast merges the last two chunks of the list if either is
// smaller than chunkSizeMin.  The old chunks may be shared with other lists,
// so fresh chunks are always created and the old ones released.
func (s *Store) ensureMinSizeLast(lid listID) {
	l := s.list(lid)
	n := len(l.refs)
	if n < 2 {
		return
	}
	prevID, currID := l.refs[n-2], l.refs[n-1]
	prev, curr := s.chunk(prevID).data, s.chunk(currID).data
	if min(len(prev), len(curr)) >= s.chunkSizeMin {
		return
	}

	mergeLen := len(prev) + len(curr)
	if mergeLen <= s.chunkSizeMax {
		merged := make([]byte, mergeLen)
		concatInto(merged, 0, prev, curr)
		mergedID := s.newChunk(merged)

		l = s.list(lid)
		l.refs = l.refs[:n-1]
		l.refs[n-2] = mergedID
		s.chunk(mergedID).users++
	} else {
		// always merging small chunks means this is rare: keep the chunk on
		// the left a regular size and put the rest on the right.
		split := s.chunkSize
		left := make([]byte, split)
		right := make([]byte, mergeLen-split)
		concatInto(left, 0, prev, curr)
		concatInto(right, split, prev, curr)
		leftID := s.newChunk(left)
		rightID := s.newChunk(right)

		l = s.list(lid)
		l.refs[n-2] = leftID
		l.refs[n-1] = rightID
		s.chunk(leftID).users++
		s.chunk(rightID).users++
	}

	s.chunkDecref(currID)
	s.chunkDecref(prevID)
}

// appendData appends a single chunk's worth of new data (at most
// chunkSizeMax bytes), merging with the list's last chunk when either is
// undersized.  Use appendDataN for larger spans.
func (s *Store) appendData(lid listID, data []byte) {
	if len(data) == 0 {
		panic("invariant broken: appending empty data")
	}

	if s.opts.chunkMerging {
		if len(data) > s.chunkSizeMax {
			panic(fmt.Errorf("invariant broken: single append of %d bytes exceeds max chunk size %d", len(data), s.chunkSizeMax))
		}
		l := s.list(lid)
		if n := len(l.refs); n > 0 {
			prevID := l.refs[n-1]
			prev := s.chunk(prevID)
			if min(len(prev.data), len(data)) < s.chunkSizeMin {
				s.mergeIntoLast(lid, prevID, data)
				return
			}
		}
	}

	s.appendOnly(lid, s.newChunkCopy(data))
}

// mergeIntoLast combines the list's last chunk with data.
func (s *Store) mergeIntoLast(lid listID, prevID chunkID, data []byte) {
	prev := s.chunk(prevID)
	prevData := prev.data
	mergeLen := len(prevData) + len(data)

	if mergeLen <= s.chunkSizeMax {
		// the list being built is the only owner: nothing else can observe
		// the chunk changing, so grow it rather than copying it.
		if prev.users == 1 {
			prev.data = append(prevData, data...)
			prev.key = keyUnset
			return
		}
		merged := make([]byte, mergeLen)
		concatInto(merged, 0, prevData, data)
		mergedID := s.newChunk(merged)

		l := s.list(lid)
		l.refs[len(l.refs)-1] = mergedID
		s.chunk(mergedID).users++
		s.chunkDecref(prevID)
		return
	}

	split := s.chunkSize
	left := make([]byte, split)
	right := make([]byte, mergeLen-split)
	concatInto(left, 0, prevData, data)
	concatInto(right, split, prevData, data)
	leftID := s.newChunk(left)
	rightID := s.newChunk(right)

	l := s.list(lid)
	l.refs[len(l.refs)-1] = leftID
	s.chunk(leftID).users++
	s.appendOnly(lid, rightID)
	s.chunkDecref(prevID)
}

// calcTrimLen splits n into a multiple of chunkSize (trim) and what is left
// over (last).  With chunk merging, a remainder smaller than chunkSizeMin
// takes one regular chunk with it so the final chunk is never undersized.
func (s *Store) calcTrimLen(n int) (trim, last int) {
	if !s.opts.chunkMerging {
		last = n % s.chunkSize
		return n - last, last
	}
	if n <= s.chunkSize {
		return 0, n
	}
	last = n % s.chunkSize
	trim = n - last
	if last != 0 && last < s.chunkSizeMin {
		// may leave trim at zero, and that's OK
		trim -= s.chunkSize
		last += s.chunkSize
	}
	return trim, last
}

// appendDataN appends new data of any length, cut into regular chunks.
func (s *Store) appendDataN(lid listID, data []byte) {
	trim, last := s.calcTrimLen(len(data))

	if trim != 0 {
		// only the first chunk can be adjacent to an undersized one
		s.appendData(lid, data[:s.chunkSize])
		for off := s.chunkSize; off != trim; off += s.chunkSize {
			s.appendOnly(lid, s.newChunkCopy(data[off:off+s.chunkSize]))
		}
		if last != 0 {
			s.appendOnly(lid, s.newChunkCopy(data[trim:]))
		}
	} else if last != 0 {
		// nothing written yet: this may need merging with the previous chunk
		s.appendData(lid, data)
	}
}

// fillFromArray cuts data into regular chunks for a list that is empty.
func (s *Store) fillFromArray(lid listID, data []byte) {
	if len(s.list(lid).refs) != 0 {
		panic("invariant broken: filling a non-empty chunk list")
	}
	trim, last := s.calcTrimLen(len(data))
	for off := 0; off != trim; off += s.chunkSize {
		s.appendOnly(lid, s.newChunkCopy(data[off:off+s.chunkSize]))
	}
	if last != 0 {
		s.appendOnly(lid, s.newChunkCopy(data[trim:]))
	}
}

// listSize sums the chunk lengths of a list.
func (s *Store) listSize(lid listID) int {
	total := 0
	for _, cid := range s.list(lid).refs {
		total += len(s.chunk(cid).data)
	}
	return total
}

// listCopyTo writes the list's expanded data into dst, which must be at
// least the list's total length.
func (s *Store) listCopyTo(lid listID, dst []byte) {
	off := 0
	for _, cid := range s.list(lid).refs {
		off += copy(dst[off:], s.chunk(cid).data)
	}
}
