// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package rle is a run-length encoding for byte arrays dominated by long
// runs of a single value, such as selection masks or cleared buffers.
// Encoding such arrays before adding them to an arraystore.Store shrinks
// both the stored states and the time spent deduplicating them.
//
// An encoding is a sequence of records, with every length stored as an
// unsigned varint:
//
//	run:        len (> 0), value byte
//	literal:    0, len (> 0), len raw bytes
//	terminator: 0, 0
package rle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// MinRunLength is the shortest run that gets its own record.  Shorter runs
// are cheaper to leave in a literal.
const MinRunLength = 8

// ErrCorrupt is wrapped by errors for encodings that are truncated,
// malformed or don't match the size of the destination.
var ErrCorrupt = errors.New("rle: corrupt encoding")

const repeatBytes = 0x0101010101010101

// runLen returns the number of leading bytes of b equal to b[0], or 0 if
// that is less than MinRunLength.
func runLen(b []byte) int {
	if len(b) < MinRunLength {
		return 0
	}
	pattern := uint64(b[0]) * repeatBytes
	if binary.LittleEndian.Uint64(b) != pattern {
		return 0
	}
	n := MinRunLength
	for ; len(b)-n >= 8; n += 8 {
		if diff := binary.LittleEndian.Uint64(b[n:]) ^ pattern; diff != 0 {
			// little endian: the lowest differing byte is the first one
			return n + bits.TrailingZeros64(diff)/8
		}
	}
	for ; n < len(b) && b[n] == b[0]; n++ {
	}
	return n
}

// Encode returns the encoding of data, preceded by extraPrefix zero bytes
// the caller can use for a header of its own.
func Encode(data []byte, extraPrefix int) []byte {
	if extraPrefix < 0 {
		extraPrefix = 0
	}
	// worst case is a single literal
	out := make([]byte, extraPrefix, extraPrefix+len(data)+2*binary.MaxVarintLen64+2)

	lit := 0
	for i := 0; i < len(data); {
		n := runLen(data[i:])
		if n == 0 {
			i++
			continue
		}
		out = appendLiteral(out, data[lit:i])
		out = binary.AppendUvarint(out, uint64(n))
		out = append(out, data[i])
		i += n
		lit = i
	}
	out = appendLiteral(out, data[lit:])
	return append(out, 0, 0)
}

func appendLiteral(out, lit []byte) []byte {
	if len(lit) == 0 {
		return out
	}
	out = append(out, 0)
	out = binary.AppendUvarint(out, uint64(len(lit)))
	return append(out, lit...)
}

// decoder walks the records of an encoding.
type decoder struct {
	enc []byte
	off int
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.enc[d.off:])
	if n <= 0 {
		return 0, fmt.Errorf("bad length at offset %d: %w", d.off, ErrCorrupt)
	}
	d.off += n
	return v, nil
}

// next returns the next record: a run of n copies of value, n literal bytes
// in lit, or n == 0 at the terminator.
func (d *decoder) next() (n uint64, value byte, lit []byte, err error) {
	if n, err = d.uvarint(); err != nil {
		return 0, 0, nil, err
	}
	if n > 0 {
		if d.off >= len(d.enc) {
			return 0, 0, nil, fmt.Errorf("truncated run: %w", ErrCorrupt)
		}
		value = d.enc[d.off]
		d.off++
		return n, value, nil, nil
	}
	if n, err = d.uvarint(); err != nil {
		return 0, 0, nil, err
	}
	if n > uint64(len(d.enc)-d.off) {
		return 0, 0, nil, fmt.Errorf("literal of %d bytes overruns input: %w", n, ErrCorrupt)
	}
	lit = d.enc[d.off : d.off+int(n)]
	d.off += int(n)
	if n == 0 && d.off != len(d.enc) {
		return 0, 0, nil, fmt.Errorf("%d bytes after terminator: %w", len(d.enc)-d.off, ErrCorrupt)
	}
	return n, 0, lit, nil
}

// DecodedLen returns the length of the data enc decodes to.
func DecodedLen(enc []byte) (int, error) {
	d := decoder{enc: enc}
	total := 0
	for {
		n, _, _, err := d.next()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return total, nil
		}
		if n > uint64(math.MaxInt-total) {
			return 0, fmt.Errorf("decoded length overflows: %w", ErrCorrupt)
		}
		total += int(n)
	}
}

// Decode decodes enc (without the caller's prefix) into dst, which must be
// exactly the decoded length.
func Decode(enc, dst []byte) error {
	d := decoder{enc: enc}
	off := 0
	for {
		n, value, lit, err := d.next()
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		if n > uint64(len(dst)-off) {
			return fmt.Errorf("decoded data exceeds %d byte destination: %w", len(dst), ErrCorrupt)
		}
		if lit != nil {
			off += copy(dst[off:], lit)
			continue
		}
		run := dst[off : off+int(n)]
		for i := range run {
			run[i] = value
		}
		off += int(n)
	}
	if off != len(dst) {
		return fmt.Errorf("decoded %d bytes into %d byte destination: %w", off, len(dst), ErrCorrupt)
	}
	return nil
}

// DecodeAlloc decodes enc into a newly allocated slice.
func DecodeAlloc(enc []byte) ([]byte, error) {
	n, err := DecodedLen(enc)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, n)
	if err := Decode(enc, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
