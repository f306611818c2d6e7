// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

// merge paths, reported in debug logs
const (
	pathFill         = "fill"
	pathExact        = "exact"
	pathPrefixShrink = "prefix-shrink"
	pathAligned      = "aligned"
	pathTable        = "table"
	pathLiteral      = "literal"
)

// listFromData builds a new chunk list for data with nothing to
// deduplicate against.
func (s *Store) listFromData(data []byte) listID {
	lid := s.newList(len(data))
	s.fillFromArray(lid, data)
	s.logger.Debug("add",
		"path", pathFill,
		"size", len(data),
		"chunks", len(s.list(lid).refs))
	return lid
}

// listFromDataMerge builds a chunk list for data, reusing as many of the
// reference list's chunks as it can find.  The reference list is never
// modified, and is returned as-is if data is identical to it.
func (s *Store) listFromDataMerge(data []byte, refID listID) listID {
	dataLen := len(data)
	refs := s.list(refID).refs
	refTotal := s.list(refID).total

	// i is the start of data not yet accounted for, end is the start of the
	// matched suffix.
	i, end := 0, dataLen

	// refs[:matchFirst] match the start of data
	matchFirst := 0
	if s.opts.prefixMatch {
		for matchFirst < len(refs) && s.chunkEqualAt(refs[matchFirst], data, i) {
			i += len(s.chunk(refs[matchFirst]).data)
			matchFirst++
		}
		if matchFirst == len(refs) && refTotal == dataLen {
			s.logger.Debug("add",
				"path", pathExact,
				"size", dataLen,
				"reused", matchFirst)
			return refID
		}
	}

	lid := s.newList(dataLen)
	for _, cid := range refs[:matchFirst] {
		s.appendOnly(lid, cid)
	}

	if i == dataLen {
		s.logger.Debug("add",
			"path", pathPrefixShrink,
			"size", dataLen,
			"reused", matchFirst)
		return lid
	}

	// refs[matchLast:] match the end of data
	matchLast := len(refs)
	if s.opts.suffixMatch {
		for ci := len(refs) - 1; ci >= matchFirst && ci > 0; ci-- {
			cid := refs[ci]
			n := len(s.chunk(cid).data)
			if n > end-i || !s.chunkEqualAt(cid, data, end-n) {
				break
			}
			end -= n
			matchLast = ci
		}
	}

	path := pathLiteral
	reused := matchFirst + len(refs) - matchLast

	if s.opts.alignedCheck && dataLen == refTotal && end-i <= dataLen/s.opts.alignDivisor {
		path = pathAligned
		// equal totals mean refs[matchFirst:matchLast] span exactly
		// data[i:end], so each chunk can be checked in place.
		for ci := matchFirst; ci < matchLast; ci++ {
			cid := refs[ci]
			n := len(s.chunk(cid).data)
			if s.chunkEqualAt(cid, data, i) {
				s.appendChunk(lid, cid)
				reused++
			} else {
				s.appendDataN(lid, data[i:i+n])
			}
			i += n
		}
	} else if end-i >= s.chunkSize && len(refs) > 0 {
		path = pathTable
		var n int
		i, n = s.mergeWithTable(lid, data, refs, i, end, matchFirst, matchLast)
		reused += n
		s.releaseScratch()
	}

	if i != end {
		s.appendDataN(lid, data[i:end])
	}

	for _, cid := range refs[matchLast:] {
		s.appendChunk(lid, cid)
	}

	s.logger.Debug("add",
		"path", path,
		"size", dataLen,
		"chunks", len(s.list(lid).refs),
		"reused", reused)
	return lid
}

// mergeWithTable searches data[i:end] for reference chunks, appending
// matches and the literal bytes between them to the list.  It returns the
// start of the literal bytes left pending at end along with the number of
// reference chunks reused.
func (s *Store) mergeWithTable(lid listID, data []byte, refs []chunkID, i, end, matchFirst, matchLast int) (int, int) {
	// the last prefix chunk is included so that repeated values (where data
	// continues with copies of the chunk it just matched) are found.
	tableStart := matchFirst
	if tableStart > 0 {
		tableStart--
	}
	s.buildTable(refs, tableStart, matchLast)

	// keys are computed over all remaining data, not just up to the suffix,
	// so positions close to end get the same keys the chunks would.
	nKeys := (len(data) - i) / s.stride
	if cap(s.hashes) < nKeys {
		s.hashes = make([]hashKey, nKeys)
	}
	hashes := s.hashes[:nKeys]
	s.keyer.dataKeys(data[i:], hashes)

	reused := 0
	dataStart := i
	pending := i
	for i < end {
		ref := s.tableLookup(refs, data, hashes, dataStart, i, end)
		if ref < 0 {
			i += s.stride
			continue
		}

		if pending != i {
			s.appendDataN(lid, data[pending:i])
		}
		cid := refs[ref]
		i += len(s.chunk(cid).data)
		s.appendChunk(lid, cid)
		reused++

		// the chunks following a match very likely match too
		for ref++; ref < matchLast; ref++ {
			cid = refs[ref]
			n := len(s.chunk(cid).data)
			if n > end-i || !s.chunkEqualAt(cid, data, i) {
				break
			}
			i += n
			s.appendChunk(lid, cid)
			reused++
		}
		pending = i
	}

	return pending, reused
}
