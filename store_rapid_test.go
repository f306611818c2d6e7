// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// Generators

// genEdit derives new data from prev with a splice, which is how arrays
// tend to change between undo steps.
func genEdit(t *rapid.T, prev []byte, stride int) []byte {
	n := len(prev) / stride
	start := rapid.IntRange(0, n).Draw(t, "start") * stride
	end := start + rapid.IntRange(0, n-start/stride).Draw(t, "cut")*stride
	ins := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "insert")
	ins = ins[:len(ins)/stride*stride]

	out := make([]byte, 0, len(prev)-(end-start)+len(ins))
	out = append(out, prev[:start]...)
	out = append(out, ins...)
	return append(out, prev[end:]...)
}

func genData(t *rapid.T, stride int) []byte {
	// few distinct values, so that content repeats within and across states
	elems := rapid.SliceOfN(rapid.ByteRange('a', 'd'), 0, 400).Draw(t, "elems")
	return bytes.Repeat(elems, stride)
}

// storeMachine checks a Store against a model holding a plain copy of
// every live state's data.
type storeMachine struct {
	s      *Store
	stride int

	// model
	states   []*State
	contents [][]byte
}

func (m *storeMachine) Init(t *rapid.T) {
	m.stride = rapid.SampledFrom([]int{1, 2, 4}).Draw(t, "stride")
	chunkCount := rapid.IntRange(1, 48).Draw(t, "chunkCount")
	opts := []Option{
		WithHashStrategy(rapid.SampledFrom([]HashStrategy{HashAccumulate, HashReadAhead, HashFarm}).Draw(t, "hash")),
		WithPrefixMatch(rapid.Bool().Draw(t, "prefix")),
		WithSuffixMatch(rapid.Bool().Draw(t, "suffix")),
		WithAlignedCheck(rapid.Bool().Draw(t, "aligned")),
		WithChunkMerging(rapid.Bool().Draw(t, "merging")),
		WithKeyCache(rapid.Bool().Draw(t, "keyCache")),
		WithTableDedup(rapid.Bool().Draw(t, "dedup")),
	}
	s, err := New(m.stride, chunkCount, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.s = s
}

func (m *storeMachine) Check(t *rapid.T) {
	if err := m.s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.s.Len() != len(m.states) {
		t.Fatalf("store has %d states, model %d", m.s.Len(), len(m.states))
	}
	expanded := 0
	for i, st := range m.states {
		got, err := st.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if !bytes.Equal(got, m.contents[i]) {
			t.Fatalf("state %d: contents differ from model", i)
		}
		expanded += len(got)
	}
	if expanded != m.s.SizeExpanded() {
		t.Fatalf("SizeExpanded %d, model %d", m.s.SizeExpanded(), expanded)
	}
	if compacted := m.s.SizeCompacted(); compacted > expanded {
		t.Fatalf("SizeCompacted %d exceeds SizeExpanded %d", compacted, expanded)
	}
}

// Action: Add without a reference
func (m *storeMachine) AddFresh(t *rapid.T) {
	data := genData(t, m.stride)
	m.add(t, data, nil)
}

// Action: Add an edited copy of a live state, using it as the reference
func (m *storeMachine) AddEdited(t *rapid.T) {
	if len(m.states) == 0 {
		t.Skip("no states")
	}
	i := rapid.IntRange(0, len(m.states)-1).Draw(t, "ref")
	data := genEdit(t, m.contents[i], m.stride)
	m.add(t, data, m.states[i])
}

// Action: Add unrelated data against a live reference
func (m *storeMachine) AddUnrelated(t *rapid.T) {
	if len(m.states) == 0 {
		t.Skip("no states")
	}
	i := rapid.IntRange(0, len(m.states)-1).Draw(t, "ref")
	m.add(t, genData(t, m.stride), m.states[i])
}

// Action: Add an exact copy of a live state against that state
func (m *storeMachine) AddSame(t *rapid.T) {
	if len(m.states) == 0 {
		t.Skip("no states")
	}
	i := rapid.IntRange(0, len(m.states)-1).Draw(t, "ref")
	ref := m.states[i]
	compacted := m.s.SizeCompacted()
	m.add(t, bytes.Clone(m.contents[i]), ref)

	// identical data is only recognized by walking the matching prefix
	if !m.s.opts.prefixMatch {
		return
	}
	if st := m.states[len(m.states)-1]; st.list != ref.list {
		t.Fatalf("copy of state %d got list %d, reference has %d", i, st.list, ref.list)
	}
	if got := m.s.SizeCompacted(); got != compacted {
		t.Fatalf("SizeCompacted went from %d to %d adding an identical state", compacted, got)
	}
}

func (m *storeMachine) add(t *rapid.T, data []byte, ref *State) {
	st, err := m.s.Add(data, ref)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	m.states = append(m.states, st)
	m.contents = append(m.contents, data)
}

// Action: Remove any live state
func (m *storeMachine) Remove(t *rapid.T) {
	if len(m.states) == 0 {
		t.Skip("no states")
	}
	i := rapid.IntRange(0, len(m.states)-1).Draw(t, "victim")
	if err := m.s.Remove(m.states[i]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	m.states = append(m.states[:i], m.states[i+1:]...)
	m.contents = append(m.contents[:i], m.contents[i+1:]...)
}

func TestStoreProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := &storeMachine{}
		m.Init(t)

		t.Repeat(map[string]func(*rapid.T){
			"AddFresh": func(t *rapid.T) {
				m.AddFresh(t)
				m.Check(t)
			},
			"AddEdited": func(t *rapid.T) {
				m.AddEdited(t)
				m.Check(t)
			},
			"AddSame": func(t *rapid.T) {
				m.AddSame(t)
				m.Check(t)
			},
			"AddUnrelated": func(t *rapid.T) {
				m.AddUnrelated(t)
				m.Check(t)
			},
			"Remove": func(t *rapid.T) {
				m.Remove(t)
				m.Check(t)
			},
		})

		for len(m.states) > 0 {
			m.Remove(t)
		}
		if n := m.s.SizeCompacted(); n != 0 {
			t.Fatalf("%d bytes left after removing every state", n)
		}
	})
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		stride := rapid.IntRange(1, 16).Draw(t, "stride")
		s, err := New(stride, rapid.IntRange(1, 64).Draw(t, "chunkCount"))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		data := rapid.SliceOfN(rapid.Byte(), 0, 2048).Draw(t, "data")
		data = data[:len(data)/stride*stride]

		st, err := s.Add(data, nil)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		got, err := st.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip differs")
		}
		if s.SizeCompacted() != len(data) {
			t.Fatalf("SizeCompacted %d for %d bytes", s.SizeCompacted(), len(data))
		}
		if err := s.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}
