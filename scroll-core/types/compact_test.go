package types

import (
	"math/big"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func newFuzzer(seed int64) *fuzz.Fuzzer {
	return fuzz.NewWithSeed(seed).NilChance(0.1).NumElements(0, 2048).Funcs(
		func(b *big.Int, c fuzz.Continue) {
			b.SetUint64(c.Uint64())
		},
	)
}

func TestL1MessageCompactFuzz(t *testing.T) {
	f := newFuzzer(1)
	var compressed int
	for i := 0; i < 200; i++ {
		var msg L1MessageTx
		f.Fuzz(&msg)
		tx := NewTx(&msg)

		enc, err := tx.MarshalCompact()
		require.NoError(t, err)
		if enc[uvarintLen(enc)]&compactFlagZstd != 0 {
			compressed++
		}

		var dec Transaction
		n, err := dec.UnmarshalCompact(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, tx.Hash(), dec.Hash())
		require.Equal(t, msg.QueueIndex, dec.Nonce())
		require.Equal(t, msg.Data, dec.Data(), "case %d", i)
	}
	require.NotZero(t, compressed, "no payload crossed the compression threshold")
}

func TestCompactTruncated(t *testing.T) {
	f := newFuzzer(2)
	var msg L1MessageTx
	f.Fuzz(&msg)
	enc, err := NewTx(&msg).MarshalCompact()
	require.NoError(t, err)

	for _, cut := range []int{0, 1, len(enc) / 2, len(enc) - 1} {
		var dec Transaction
		_, err := dec.UnmarshalCompact(enc[:cut])
		require.Error(t, err, "cut at %d", cut)
	}
}

func TestCompactDecompressionBound(t *testing.T) {
	tests := []struct {
		name string
		size int
		err  error
	}{
		{"at limit", maxCompactPayload, nil},
		{"over limit", maxCompactPayload + 1, zstd.ErrDecoderSizeExceeded},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// a run of zeros compresses to a few bytes
			enc := encodeCompact(LegacyTxType, make([]byte, test.size))
			require.Less(t, len(enc), 4096)

			_, payload, n, err := decodeCompact(enc)
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				require.ErrorContains(t, err, "decompress compact payload")
				return
			}
			require.NoError(t, err)
			require.Equal(t, len(enc), n)
			require.Len(t, payload, test.size)
		})
	}
}

func uvarintLen(b []byte) int {
	n := 0
	for n < len(b) && b[n]&0x80 != 0 {
		n++
	}
	return n + 1
}
