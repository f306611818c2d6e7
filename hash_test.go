// Copyright 2026 The arraystore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package arraystore

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashBytes(t *testing.T) {
	// djb2: h*33 + c, from 5381
	require.Equal(t, hashKey(5381), hashBytes(nil))
	require.Equal(t, hashKey(5381*33+'a'), hashBytes([]byte("a")))
	require.Equal(t, hashKey((5381*33+'a')*33+'b'), hashBytes([]byte("ab")))
	// bytes are signed
	require.Equal(t, hashKey(5381*33-1), hashBytes([]byte{0xff}))

	for i := 0; i < 256; i++ {
		require.Equal(t, hashBytes([]byte{byte(i)}), hashByte(byte(i)))
	}
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, keyFallback, normalizeKey(keyUnset))
	require.Equal(t, keyFallback, normalizeKey(keyFallback))
	require.Equal(t, hashKey(42), normalizeKey(42))
}

func TestAccumulateSingleMatchesWhole(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for steps := 1; steps <= accumSteps8Bits; steps++ {
		window := steps*(steps+1)/2 + 1
		for n := window; n < window+20; n++ {
			whole := make([]hashKey, n)
			for i := range whole {
				whole[i] = hashKey(rng.Uint32())
			}
			single := append([]hashKey(nil), whole[:window]...)

			hashAccumulate(whole, steps)
			hashAccumulateSingle(single, steps)
			require.Equal(t, whole[0], single[0], "steps=%d n=%d", steps, n)
		}
	}
}

func TestKeyerParameters(t *testing.T) {
	for _, tc := range []struct {
		stride, count    int
		steps, readAhead int
	}{
		{1, 32, 6, 22},
		{1, 8, 3, 7},
		{2, 64, 5, 16},
		{4, 64, 4, 11},
		{8, 64, 1, 2},
		{1, 1, 0, 1},
	} {
		k := newKeyer(HashAccumulate, tc.stride, tc.count)
		require.Equal(t, tc.steps, k.accumSteps, "stride=%d count=%d", tc.stride, tc.count)
		require.Equal(t, tc.readAhead, k.readAheadLen)
		require.Equal(t, tc.readAhead*tc.stride, k.readAheadBytes)
	}

	k := newKeyer(HashFarm, 4, 8)
	require.Equal(t, 8, k.readAheadLen)
	k = newKeyer(HashReadAhead, 4, 64)
	require.Equal(t, readAheadElements, k.readAheadLen)
}

// A chunk starting anywhere in data must get the same key from chunkKey as
// dataKeys assigns to that offset, or the table would never find it.
func TestDataKeysMatchChunkKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, strategy := range []HashStrategy{HashAccumulate, HashReadAhead, HashFarm} {
		for _, stride := range []int{1, 2, 4, 12} {
			k := newKeyer(strategy, stride, 64)
			data := make([]byte, 200*stride)
			_, _ = rng.Read(data)
			// low entropy data should still produce usable keys
			for i := 0; i < len(data)/2; i++ {
				data[i] &= 1
			}

			keys := make([]hashKey, len(data)/stride)
			k.dataKeys(data, keys)
			for i, key := range keys {
				off := i * stride
				if off+k.readAheadBytes > len(data) {
					break
				}
				expected := k.chunkKey(data[off : off+k.readAheadBytes])
				require.Equal(t, expected, key, "%s stride=%d offset=%d", strategy, stride, off)
				require.NotEqual(t, keyUnset, key)
			}
		}
	}
}

func TestHashStrategyString(t *testing.T) {
	require.Equal(t, "accumulate", HashAccumulate.String())
	require.Equal(t, "read-ahead", HashReadAhead.String())
	require.Equal(t, "farm", HashFarm.String())
	require.Equal(t, "HashStrategy(9)", HashStrategy(9).String())
}

func BenchmarkDataKeys(b *testing.B) {
	data := make([]byte, 1<<20)
	_, _ = rand.New(rand.NewSource(1)).Read(data)
	for _, strategy := range []HashStrategy{HashAccumulate, HashReadAhead, HashFarm} {
		b.Run(strategy.String(), func(b *testing.B) {
			k := newKeyer(strategy, 4, 256)
			keys := make([]hashKey, len(data)/4)
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				k.dataKeys(data, keys)
			}
		})
	}
}
