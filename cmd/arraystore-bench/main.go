// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// arraystore-bench simulates an editor's undo history: a large buffer is
// edited repeatedly, and every version is stored in an arraystore.Store.
// It reports how much memory deduplication saved and verifies that every
// version reads back intact.
package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/dgryski/go-farm"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bpowers/arraystore"
	"github.com/bpowers/arraystore/rle"
)

type config struct {
	stride     int
	chunkCount int
	size       uint64
	editSize   uint64
	steps      int
	ref        string
	hash       string
	useRLE     bool
	shuffle    bool
	seed       int64
	verbose    bool
}

// rleHeaderLen is the prefix holding the decoded length of an RLE state.
const rleHeaderLen = 8

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (config, error) {
	var cfg config
	var size, editSize string

	flagSet := pflag.NewFlagSet("arraystore-bench", pflag.ContinueOnError)
	flagSet.IntVar(&cfg.stride, "stride", 4, "element size in bytes")
	flagSet.IntVar(&cfg.chunkCount, "chunk-count", 256, "elements per chunk")
	flagSet.StringVar(&size, "size", "16MiB", "buffer size")
	flagSet.StringVar(&editSize, "edit-size", "4KiB", "bytes changed by each edit")
	flagSet.IntVarP(&cfg.steps, "steps", "n", 100, "number of edits (undo steps)")
	flagSet.StringVar(&cfg.ref, "ref", "prev", "reference for each new state: prev, first or none")
	flagSet.StringVar(&cfg.hash, "hash", "accumulate", "key strategy: accumulate, read-ahead or farm")
	flagSet.BoolVar(&cfg.useRLE, "rle", false, "run-length encode a mostly-empty buffer before storing it (requires --stride=1)")
	flagSet.BoolVar(&cfg.shuffle, "shuffle", false, "remove states in random order instead of oldest first")
	flagSet.Int64Var(&cfg.seed, "seed", 1, "random seed")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "log every store operation to stderr")

	if err := flagSet.Parse(args); err != nil {
		return cfg, err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return cfg, fmt.Errorf("unexpected argument: %s", args[0])
	}

	var err error
	if cfg.size, err = humanize.ParseBytes(size); err != nil {
		return cfg, fmt.Errorf("--size: %w", err)
	}
	if cfg.editSize, err = humanize.ParseBytes(editSize); err != nil {
		return cfg, fmt.Errorf("--edit-size: %w", err)
	}
	if cfg.stride <= 0 || cfg.size%uint64(cfg.stride) != 0 || cfg.editSize%uint64(cfg.stride) != 0 {
		return cfg, fmt.Errorf("--size and --edit-size must be multiples of --stride (%d)", cfg.stride)
	}
	if cfg.editSize == 0 || cfg.editSize > cfg.size {
		return cfg, fmt.Errorf("--edit-size must be between 1 and --size")
	}
	if cfg.useRLE && cfg.stride != 1 {
		return cfg, fmt.Errorf("--rle needs --stride=1: encoded states have arbitrary lengths")
	}
	switch cfg.ref {
	case "prev", "first", "none":
	default:
		return cfg, fmt.Errorf("--ref: unknown policy %q", cfg.ref)
	}
	return cfg, nil
}

func hashStrategy(name string) (arraystore.HashStrategy, error) {
	for _, s := range []arraystore.HashStrategy{arraystore.HashAccumulate, arraystore.HashReadAhead, arraystore.HashFarm} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("--hash: unknown strategy %q", name)
}

// version is what's needed to check a stored state without keeping a copy
// of it.
type version struct {
	state       *arraystore.State
	fingerprint uint64
}

func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	strategy, err := hashStrategy(cfg.hash)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := arraystore.New(cfg.stride, cfg.chunkCount,
		arraystore.WithLogger(logger),
		arraystore.WithHashStrategy(strategy))
	if err != nil {
		return fmt.Errorf("arraystore.New: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	rng := rand.New(rand.NewSource(cfg.seed))
	buf := initialBuffer(rng, int(cfg.size), cfg.useRLE)

	start := time.Now()
	versions := make([]version, 0, cfg.steps+1)
	var encodedBytes int
	for step := 0; step <= cfg.steps; step++ {
		if step > 0 {
			edit(rng, buf, int(cfg.editSize), cfg.stride, cfg.useRLE)
		}

		data := buf
		if cfg.useRLE {
			data = rle.Encode(buf, rleHeaderLen)
			binary.LittleEndian.PutUint64(data, uint64(len(buf)))
			encodedBytes += len(data)
		}

		var ref *arraystore.State
		if len(versions) > 0 {
			switch cfg.ref {
			case "prev":
				ref = versions[len(versions)-1].state
			case "first":
				ref = versions[0].state
			}
		}

		st, err := store.Add(data, ref)
		if err != nil {
			return fmt.Errorf("step %d: Add: %w", step, err)
		}
		versions = append(versions, version{state: st, fingerprint: farm.Fingerprint64(buf)})
	}
	addTime := time.Since(start)

	if err := store.Validate(); err != nil {
		return err
	}
	stats := store.Stats()

	start = time.Now()
	scratch := make([]byte, int(cfg.size))
	for i, v := range versions {
		if err := verify(v, scratch, cfg.useRLE); err != nil {
			return fmt.Errorf("version %d: %w", i, err)
		}
	}
	verifyTime := time.Since(start)

	order := make([]int, len(versions))
	for i := range order {
		order[i] = i
	}
	if cfg.shuffle {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	for _, i := range order {
		if err := store.Remove(versions[i].state); err != nil {
			return fmt.Errorf("Remove version %d: %w", i, err)
		}
	}
	if n := store.SizeCompacted(); n != 0 {
		return fmt.Errorf("%d bytes still held after removing every state", n)
	}

	logical := uint64(len(versions)) * cfg.size
	fmt.Printf("versions:        %d of %s\n", len(versions), humanize.IBytes(cfg.size))
	fmt.Printf("logical size:    %s\n", humanize.IBytes(logical))
	if cfg.useRLE {
		fmt.Printf("rle encoded:     %s\n", humanize.IBytes(uint64(encodedBytes)))
	}
	fmt.Printf("stored (expand): %s\n", humanize.IBytes(uint64(stats.SizeExpanded)))
	fmt.Printf("stored (chunks): %s in %s chunks\n",
		humanize.IBytes(uint64(stats.SizeCompacted)), humanize.Comma(int64(stats.Chunks)))
	fmt.Printf("duplicate bytes: %s\n", humanize.IBytes(uint64(stats.DuplicateBytes)))
	fmt.Printf("dedup ratio:     %.1fx\n", float64(logical)/float64(max(1, stats.SizeCompacted)))
	fmt.Printf("add:             %s (%s/s)\n", addTime, humanize.IBytes(uint64(float64(logical)/max(addTime.Seconds(), 1e-9))))
	fmt.Printf("verify:          %s\n", verifyTime)
	if rss := peakRSS(); rss > 0 {
		fmt.Printf("peak RSS:        %s\n", humanize.IBytes(rss))
	}
	return nil
}

func initialBuffer(rng *rand.Rand, size int, sparse bool) []byte {
	buf := make([]byte, size)
	if !sparse {
		_, _ = rng.Read(buf)
		return buf
	}
	// mostly empty, like a selection mask
	for off := 0; off < size; off += 4096 {
		end := min(off+64, size)
		_, _ = rng.Read(buf[off:end])
	}
	return buf
}

func edit(rng *rand.Rand, buf []byte, n, stride int, uniform bool) {
	off := rng.Intn((len(buf)-n)/stride+1) * stride
	region := buf[off : off+n]
	if uniform {
		v := byte(rng.Intn(2))
		for i := range region {
			region[i] = v
		}
		return
	}
	_, _ = rng.Read(region)
}

func verify(v version, scratch []byte, useRLE bool) error {
	if !useRLE {
		if err := v.state.CopyTo(scratch); err != nil {
			return err
		}
		if farm.Fingerprint64(scratch[:v.state.Size()]) != v.fingerprint {
			return errors.New("contents changed")
		}
		return nil
	}

	enc, err := v.state.Bytes()
	if err != nil {
		return err
	}
	if len(enc) < rleHeaderLen {
		return errors.New("missing header")
	}
	n := binary.LittleEndian.Uint64(enc)
	if n > uint64(len(scratch)) {
		return fmt.Errorf("decoded length %d exceeds buffer", n)
	}
	if err := rle.Decode(enc[rleHeaderLen:], scratch[:n]); err != nil {
		return err
	}
	if farm.Fingerprint64(scratch[:n]) != v.fingerprint {
		return errors.New("contents changed")
	}
	return nil
}
