// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/bpowers/arraystore/internal/pool"
)

var (
	// ErrInvalidSize is returned by New for a non-positive stride or chunk
	// count, or one so large the maximum chunk size overflows an int.
	ErrInvalidSize = errors.New("stride and chunk count must be positive and their chunk size must fit in an int")
	// ErrStride is returned when data isn't a whole number of elements.
	ErrStride = errors.New("data length is not a multiple of the stride")
	// ErrUnknownState is returned for a State that was removed or that
	// belongs to a different Store.
	ErrUnknownState = errors.New("state is not live in this store")
	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("store is closed")
	// ErrInconsistent is wrapped by the errors Validate returns.
	ErrInconsistent = errors.New("store is inconsistent")
)

// Store holds many versions of arrays of the same stride, storing each
// distinct span of bytes only once.  A Store is not safe for concurrent use.
type Store struct {
	stride       int
	chunkSize    int
	chunkSizeMin int
	chunkSizeMax int

	opts   options
	logger *slog.Logger
	keyer  keyer

	chunks *pool.Pool[chunk]
	lists  *pool.Pool[chunkList]
	states stateSet
	closed bool

	// reused between merges
	table  chunkTable
	hashes []hashKey
	window []byte
}

// New creates a Store for arrays made of `stride`-byte elements.  Data is
// split into chunks of roughly `chunkCount` elements: smaller chunks find
// more duplication, at the cost of more per-chunk overhead.
func New(stride, chunkCount int, opts ...Option) (*Store, error) {
	if stride <= 0 || chunkCount <= 0 || stride > math.MaxInt/2 || chunkCount > math.MaxInt/(2*stride) {
		return nil, fmt.Errorf("New(%d, %d): %w", stride, chunkCount, ErrInvalidSize)
	}
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	s := &Store{
		stride:       stride,
		chunkSize:    stride * chunkCount,
		chunkSizeMin: max(1, chunkCount/8) * stride,
		chunkSizeMax: chunkCount * 2 * stride,
		opts:         options,
		logger:       options.logger,
		keyer:        newKeyer(options.hashStrategy, stride, chunkCount),
		chunks:       pool.New[chunk](64),
		lists:        pool.New[chunkList](8),
		states:       make(stateSet),
	}
	s.window = make([]byte, 0, s.keyer.readAheadBytes)
	return s, nil
}

// Stride returns the element size in bytes.
func (s *Store) Stride() int {
	return s.stride
}

// ChunkSize returns the size in bytes chunks are cut to.
func (s *Store) ChunkSize() int {
	return s.chunkSize
}

// Len returns the number of live states.
func (s *Store) Len() int {
	return len(s.states)
}

// Add stores data as a new state.  If ref is non-nil, data is deduplicated
// against it: the closer data is to ref's contents, the less new memory the
// state needs.  data is copied and may be reused once Add returns.
func (s *Store) Add(data []byte, ref *State) (*State, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if len(data)%s.stride != 0 {
		return nil, fmt.Errorf("Add(len %d, stride %d): %w", len(data), s.stride, ErrStride)
	}

	var lid listID
	if ref != nil {
		if !s.states.Contains(ref) {
			return nil, fmt.Errorf("Add: reference %w", ErrUnknownState)
		}
		lid = s.listFromDataMerge(data, ref.list)
	} else {
		lid = s.listFromData(data)
	}

	l := s.list(lid)
	if l.total != len(data) {
		panic(fmt.Errorf("invariant broken: chunk list for %d bytes has total %d", len(data), l.total))
	}
	l.users++

	st := &State{store: s, list: lid}
	s.states.Add(st)

	if s.opts.paranoid {
		s.checkParanoid(st, data)
	}
	return st, nil
}

// Remove releases st.  Chunks no other state uses are freed.
func (s *Store) Remove(st *State) error {
	if s.closed {
		return ErrClosed
	}
	if !s.states.Contains(st) {
		return fmt.Errorf("Remove: %w", ErrUnknownState)
	}
	s.states.Remove(st)
	s.listDecref(st.list)
	st.store = nil

	if s.opts.paranoid {
		s.checkParanoid(nil, nil)
	}
	return nil
}

// SizeExpanded returns the sum of the sizes of every live state, i.e. the
// memory they would take without deduplication.
func (s *Store) SizeExpanded() int {
	total := 0
	for st := range s.states {
		total += s.list(st.list).total
	}
	return total
}

// SizeCompacted returns the number of bytes the store's chunks occupy.
func (s *Store) SizeCompacted() int {
	total := 0
	s.chunks.Each(func(_ int32, c *chunk) {
		total += len(c.data)
	})
	return total
}

// Clear removes every state at once, leaving the store empty and usable.
// States handed out earlier are detached and can no longer be read.
func (s *Store) Clear() {
	s.logger.Debug("clear",
		"states", len(s.states),
		"chunks", s.chunks.Len())
	for st := range s.states {
		st.store = nil
	}
	s.states = make(stateSet)
	s.lists.Reset()
	s.chunks.Reset()
	s.table = chunkTable{}
	s.hashes = nil
}

// Close releases everything the store holds.  The store can't be used
// afterwards.
func (s *Store) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.Clear()
	s.logger.Debug("close")
	s.closed = true
	return nil
}
