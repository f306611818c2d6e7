// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"fmt"
	"io"
)

// State is one stored version of an array.  Its contents can't change; to
// store a modified array, Add it with this State as the reference.
type State struct {
	store *Store // nil once removed
	list  listID
}

func (st *State) live() error {
	if st == nil || st.store == nil || !st.store.states.Contains(st) {
		return ErrUnknownState
	}
	return nil
}

// Size returns the length in bytes of the state's data, or 0 for a removed
// state.
func (st *State) Size() int {
	if st.live() != nil {
		return 0
	}
	return st.store.list(st.list).total
}

// CopyTo writes the state's data to the start of dst.
func (st *State) CopyTo(dst []byte) error {
	if err := st.live(); err != nil {
		return fmt.Errorf("CopyTo: %w", err)
	}
	total := st.store.list(st.list).total
	if len(dst) < total {
		return fmt.Errorf("CopyTo: need %d bytes, have %d: %w", total, len(dst), io.ErrShortBuffer)
	}
	st.store.listCopyTo(st.list, dst)
	return nil
}

// Bytes returns a newly allocated copy of the state's data.
func (st *State) Bytes() ([]byte, error) {
	if err := st.live(); err != nil {
		return nil, fmt.Errorf("Bytes: %w", err)
	}
	buf := make([]byte, st.store.list(st.list).total)
	st.store.listCopyTo(st.list, buf)
	return buf, nil
}
