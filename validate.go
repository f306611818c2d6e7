// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"bytes"
	"fmt"
)

// Validate walks every state, chunk list and chunk, checking that sizes and
// reference counts agree with each other and that chunk sizes respect the
// store's limits.  It returns an error wrapping ErrInconsistent describing
// the first problem found.
func (s *Store) Validate() error {
	if s.closed {
		return ErrClosed
	}

	listRefs := make(map[listID]int32, s.lists.Len())
	for st := range s.states {
		if st.store != s {
			return fmt.Errorf("live state attached to another store: %w", ErrInconsistent)
		}
		if !s.lists.IsLive(int32(st.list)) {
			return fmt.Errorf("state references freed chunk list %d: %w", st.list, ErrInconsistent)
		}
		listRefs[st.list]++
	}

	chunkRefs := make(map[chunkID]int32, s.chunks.Len())
	var err error
	s.lists.Each(func(id int32, l *chunkList) {
		if err != nil {
			return
		}
		lid := listID(id)
		if users := listRefs[lid]; l.users != users {
			err = fmt.Errorf("chunk list %d: %d users, %d states: %w", lid, l.users, users, ErrInconsistent)
			return
		}
		total := 0
		for _, cid := range l.refs {
			if !s.chunks.IsLive(int32(cid)) {
				err = fmt.Errorf("chunk list %d references freed chunk %d: %w", lid, cid, ErrInconsistent)
				return
			}
			n := len(s.chunk(cid).data)
			if s.opts.chunkMerging {
				if n > s.chunkSizeMax {
					err = fmt.Errorf("chunk %d: %d bytes exceeds max %d: %w", cid, n, s.chunkSizeMax, ErrInconsistent)
					return
				}
				if n < s.chunkSizeMin && l.total > s.chunkSizeMin {
					err = fmt.Errorf("chunk list %d (%d bytes): chunk %d has %d bytes, below min %d: %w",
						lid, l.total, cid, n, s.chunkSizeMin, ErrInconsistent)
					return
				}
			}
			total += n
			chunkRefs[cid]++
		}
		if total != l.total {
			err = fmt.Errorf("chunk list %d: total %d, chunks sum to %d: %w", lid, l.total, total, ErrInconsistent)
		}
	})
	if err != nil {
		return err
	}

	rab := s.keyer.readAheadBytes
	s.chunks.Each(func(id int32, c *chunk) {
		if err != nil {
			return
		}
		cid := chunkID(id)
		if refs := chunkRefs[cid]; c.users != refs {
			err = fmt.Errorf("chunk %d: %d users, %d references: %w", cid, c.users, refs, ErrInconsistent)
			return
		}
		if len(c.data)%s.stride != 0 {
			err = fmt.Errorf("chunk %d: %d bytes isn't a multiple of the stride: %w", cid, len(c.data), ErrInconsistent)
			return
		}
		if c.key != keyUnset && len(c.data) >= rab {
			if key := s.keyer.chunkKey(c.data[:rab]); key != c.key {
				err = fmt.Errorf("chunk %d: cached key %#x, computed %#x: %w", cid, c.key, key, ErrInconsistent)
			}
		}
	})
	return err
}

// checkParanoid validates the store after a mutation, and if st is non-nil
// that it reads back as data.
func (s *Store) checkParanoid(st *State, data []byte) {
	if err := s.Validate(); err != nil {
		panic(fmt.Errorf("invariant broken: %w", err))
	}
	if st == nil {
		return
	}
	got, err := st.Bytes()
	if err != nil {
		panic(fmt.Errorf("invariant broken: reading back new state: %w", err))
	}
	if !bytes.Equal(got, data) {
		panic("invariant broken: state doesn't read back as the data it was added with")
	}
}
