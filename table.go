// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"bytes"

	"github.com/bpowers/arraystore/internal/zero"
)

// tableEntry is one reference chunk in a bucket's chain.
type tableEntry struct {
	ref  int32 // index into the reference list's refs
	key  hashKey
	next uint32 // 1-based index of the next entry in entries, 0 ends the chain
}

// chunkTable is a chained hash table from chunk-start keys to reference
// chunks.  It only lives for the duration of a single merge; the backing
// slices are kept on the Store and reused unless they grew past
// scratchKeepChunks.
type chunkTable struct {
	heads   []uint32 // 1-based indexes into entries, 0 is an empty bucket
	entries []tableEntry
}

// scratchKeepChunks bounds the merge scratch a Store holds on to between
// merges, in chunks' worth of elements.  Anything larger is dropped once the
// merge that needed it is done.
const scratchKeepChunks = 64

func (t *chunkTable) reset(slots int) {
	t.heads = zero.U32Len(t.heads, slots)
	t.entries = t.entries[:0]
}

func (t *chunkTable) bucket(key hashKey) uint32 {
	return uint32(key) % uint32(len(t.heads))
}

func (t *chunkTable) first(key hashKey) uint32 {
	return t.heads[t.bucket(key)]
}

func (t *chunkTable) entry(e uint32) *tableEntry {
	return &t.entries[e-1]
}

func (t *chunkTable) insert(key hashKey, ref int32) {
	b := t.bucket(key)
	t.entries = append(t.entries, tableEntry{
		ref:  ref,
		key:  key,
		next: t.heads[b],
	})
	t.heads[b] = uint32(len(t.entries))
}

// releaseScratch drops the table and key scratch if a merge grew them past
// what the Store keeps between merges.
func (s *Store) releaseScratch() {
	chunkCount := s.chunkSize / s.stride
	if cap(s.hashes)/scratchKeepChunks > chunkCount {
		s.hashes = nil
	}
	if cap(s.table.heads)/scratchKeepChunks > chunkCount || cap(s.table.entries)/scratchKeepChunks > chunkCount {
		s.table = chunkTable{}
	}
}

// keyFromChunkRef returns the key for the chunk at refs[i].  Chunks at least
// a read-ahead window long have their key cached; shorter ones borrow bytes
// from the chunks following them, so their key depends on the list and
// isn't cached.
func (s *Store) keyFromChunkRef(refs []chunkID, i int) hashKey {
	rab := s.keyer.readAheadBytes
	c := s.chunk(refs[i])
	if len(c.data) >= rab {
		if s.opts.keyCache && c.key != keyUnset {
			return c.key
		}
		key := s.keyer.chunkKey(c.data[:rab])
		if s.opts.keyCache {
			c.key = key
		}
		return key
	}

	window := s.window[:0]
	for j := i; j < len(refs) && len(window) < rab; j++ {
		d := s.chunk(refs[j]).data
		if need := rab - len(window); len(d) > need {
			d = d[:need]
		}
		window = append(window, d...)
	}
	s.window = window
	return s.keyer.chunkKey(window)
}

// buildTable fills s.table with the reference chunks refs[start:stop].
// Chunks too close to the end of the reference to fill a read-ahead window
// are skipped, as no data position could produce the same key.
func (s *Store) buildTable(refs []chunkID, start, stop int) {
	s.table.reset((len(refs) - start + 1) * s.opts.tableMultiplier)

	remaining := 0
	for _, cid := range refs[start:] {
		remaining += len(s.chunk(cid).data)
	}

	for i := start; i < stop && remaining >= s.keyer.readAheadBytes; i++ {
		cid := refs[i]
		key := s.keyFromChunkRef(refs, i)
		remaining -= len(s.chunk(cid).data)

		if s.opts.tableDedup && s.tableContains(refs, key, cid) {
			continue
		}
		s.table.insert(key, int32(i))
	}
}

// tableContains reports whether the chain for key already holds a chunk
// with cid's contents.
func (s *Store) tableContains(refs []chunkID, key hashKey, cid chunkID) bool {
	data := s.chunk(cid).data
	for e := s.table.first(key); e != 0; {
		ent := s.table.entry(e)
		if ent.key == key {
			other := refs[ent.ref]
			if other == cid {
				return true
			}
			if od := s.chunk(other).data; len(od) == len(data) && bytes.Equal(od, data) {
				return true
			}
		}
		e = ent.next
	}
	return false
}

// tableLookup returns the index of a reference chunk whose bytes appear in
// data at off without running past end, or -1.  hashes holds the key of
// every stride-aligned offset starting at tableStart.
func (s *Store) tableLookup(refs []chunkID, data []byte, hashes []hashKey, tableStart, off, end int) int {
	key := hashes[(off-tableStart)/s.stride]
	for e := s.table.first(key); e != 0; {
		ent := s.table.entry(e)
		if ent.key == key {
			cid := refs[ent.ref]
			if n := len(s.chunk(cid).data); n <= end-off && s.chunkEqualAt(cid, data, off) {
				return int(ent.ref)
			}
		}
		e = ent.next
	}
	return -1
}
