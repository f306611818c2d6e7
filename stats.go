// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"bytes"

	"github.com/dgryski/go-farm"
)

// Stats describes how a Store's memory is being used.
type Stats struct {
	States     int
	ChunkLists int
	Chunks     int
	// ChunkRefs counts chunk references across all chunk lists.
	ChunkRefs     int
	SizeExpanded  int
	SizeCompacted int
	// DuplicateBytes is the size of chunks whose contents are identical to
	// another, distinct chunk.  Deduplication only looks at a state's
	// reference, so unrelated states can end up holding copies of the same
	// bytes.
	DuplicateBytes int
}

// Stats walks the store to compute usage statistics.
func (s *Store) Stats() Stats {
	stats := Stats{
		States:       len(s.states),
		ChunkLists:   s.lists.Len(),
		Chunks:       s.chunks.Len(),
		SizeExpanded: s.SizeExpanded(),
	}
	s.lists.Each(func(_ int32, l *chunkList) {
		stats.ChunkRefs += len(l.refs)
	})

	seen := make(map[uint64][]chunkID, s.chunks.Len())
	s.chunks.Each(func(id int32, c *chunk) {
		stats.SizeCompacted += len(c.data)

		fp := farm.Fingerprint64(c.data)
		for _, other := range seen[fp] {
			if bytes.Equal(s.chunks.Get(int32(other)).data, c.data) {
				stats.DuplicateBytes += len(c.data)
				return
			}
		}
		seen[fp] = append(seen[fp], chunkID(id))
	})
	return stats
}
