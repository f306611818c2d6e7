// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"io"
	"log/slog"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	hashStrategy    HashStrategy
	prefixMatch     bool
	suffixMatch     bool
	alignedCheck    bool
	alignDivisor    int
	tableMultiplier int
	tableDedup      bool
	keyCache        bool
	chunkMerging    bool
	paranoid        bool
}

const (
	defaultAlignDivisor    = 4
	defaultTableMultiplier = 3
)

func defaultOptions() options {
	return options{
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		hashStrategy:    HashAccumulate,
		prefixMatch:     true,
		suffixMatch:     true,
		alignedCheck:    true,
		alignDivisor:    defaultAlignDivisor,
		tableMultiplier: defaultTableMultiplier,
		tableDedup:      true,
		keyCache:        true,
		chunkMerging:    true,
	}
}

// WithLogger sets an optional logger for the store to report which merge
// strategy each Add took.  If not provided, no logging output will be
// produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithHashStrategy selects how chunk-start keys are computed.
func WithHashStrategy(strategy HashStrategy) Option {
	return func(opts *options) {
		opts.hashStrategy = strategy
	}
}

// WithPrefixMatch toggles reusing leading reference chunks that match
// the new data exactly.
func WithPrefixMatch(enabled bool) Option {
	return func(opts *options) {
		opts.prefixMatch = enabled
	}
}

// WithSuffixMatch toggles reusing trailing reference chunks that match
// the end of the new data exactly.
func WithSuffixMatch(enabled bool) Option {
	return func(opts *options) {
		opts.suffixMatch = enabled
	}
}

// WithAlignedCheck toggles the positional comparison used when the new data
// has the reference's length and differs from it only in a small region.
func WithAlignedCheck(enabled bool) Option {
	return func(opts *options) {
		opts.alignedCheck = enabled
	}
}

// WithAlignDivisor sets how small the unmatched region must be (as a
// fraction 1/divisor of the total length) before the aligned comparison is
// used instead of a hash table.  Values < 1 are ignored.
func WithAlignDivisor(divisor int) Option {
	return func(opts *options) {
		if divisor >= 1 {
			opts.alignDivisor = divisor
		}
	}
}

// WithTableMultiplier sets the ratio of hash table slots to reference
// chunks.  Values < 1 are ignored.
func WithTableMultiplier(multiplier int) Option {
	return func(opts *options) {
		if multiplier >= 1 {
			opts.tableMultiplier = multiplier
		}
	}
}

// WithTableDedup toggles skipping byte-identical reference chunks when
// filling the hash table, which keeps chains short for repetitive data.
func WithTableDedup(enabled bool) Option {
	return func(opts *options) {
		opts.tableDedup = enabled
	}
}

// WithKeyCache toggles memoizing each chunk's hash key on the chunk.
func WithKeyCache(enabled bool) Option {
	return func(opts *options) {
		opts.keyCache = enabled
	}
}

// WithChunkMerging toggles merging undersized neighbouring chunks and
// splitting oversized ones.  Without it, chunks may be arbitrarily small.
func WithChunkMerging(enabled bool) Option {
	return func(opts *options) {
		opts.chunkMerging = enabled
	}
}

// WithParanoidChecks makes every Add and Remove validate the whole store
// and read back the new state, panicking if anything is inconsistent.  This
// is slow and intended for tests.
func WithParanoidChecks(enabled bool) Option {
	return func(opts *options) {
		opts.paranoid = enabled
	}
}
