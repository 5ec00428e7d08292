package types

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/stretchr/testify/require"
)

func randKey(t *testing.T) PubKey {
	var pk PubKey
	_, err := crand.Read(pk[:])
	require.NoError(t, err)
	return pk
}

func testPool(t *testing.T) *Pool {
	var root fr.Element
	_, err := root.SetRandom()
	require.NoError(t, err)
	return &Pool{
		Initialized:    true,
		Enabled:        true,
		Admin:          randKey(t),
		Mint:           randKey(t),
		TokenAccount:   randKey(t),
		Authority:      randKey(t),
		AuthoritySeed:  254,
		Depth:          20,
		Hasher:         utils.HasherMiMC,
		Root:           root,
		NextIndex:      5,
		TotalDeposited: 5_000_000,
		MinDeposit:     1_000,
		MinWithdraw:    1_000,
		DelegateFee:    500,
	}
}

func TestPoolCodec(t *testing.T) {
	pool := testPool(t)
	raw := pool.Encode()
	require.Len(t, raw, PoolAccountLen)
	require.Equal(t, 205, PoolAccountLen)

	decoded, err := DecodePool(raw)
	require.NoError(t, err)
	require.Equal(t, pool, decoded)
	require.Equal(t, raw, decoded.Encode())
	require.Equal(t, uint64(1<<20), decoded.Capacity())
	require.False(t, decoded.IsFull())
}

func TestPoolFieldOffsets(t *testing.T) {
	pool := testPool(t)
	raw := pool.Encode()

	require.Equal(t, byte(1), raw[0])
	require.Equal(t, byte(1), raw[1])
	require.Equal(t, pool.Admin[:], raw[2:34])
	require.Equal(t, pool.Mint[:], raw[34:66])
	require.Equal(t, byte(20), raw[131])
	require.Equal(t, byte(utils.HasherMiMC), raw[132])
	require.Equal(t, uint64(5), binary.LittleEndian.Uint64(raw[165:173]))
	require.Equal(t, uint64(500), binary.LittleEndian.Uint64(raw[197:205]))
}

func TestDecodePoolMalformed(t *testing.T) {
	good := testPool(t).Encode()

	mutate := func(f func(raw []byte) []byte) []byte {
		raw := make([]byte, len(good))
		copy(raw, good)
		return f(raw)
	}

	cases := map[string][]byte{
		"empty":         {},
		"short":         good[:PoolAccountLen-1],
		"long":          append(append([]byte{}, good...), 0),
		"uninitialized": mutate(func(raw []byte) []byte { raw[0] = 0; return raw }),
		"bad bool":      mutate(func(raw []byte) []byte { raw[1] = 7; return raw }),
		"zero depth":    mutate(func(raw []byte) []byte { raw[131] = 0; return raw }),
		"deep":          mutate(func(raw []byte) []byte { raw[131] = MaxTreeDepth + 1; return raw }),
		"hasher":        mutate(func(raw []byte) []byte { raw[132] = 9; return raw }),
		"root": mutate(func(raw []byte) []byte {
			for i := 133; i < 165; i++ {
				raw[i] = 0xff
			}
			return raw
		}),
		"next index": mutate(func(raw []byte) []byte {
			binary.LittleEndian.PutUint64(raw[165:], (1<<20)+1)
			return raw
		}),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePool(raw)
			require.ErrorIs(t, err, ErrMalformedAccount)
			require.ErrorIs(t, err, ErrMalformedInput)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			require.NotEmpty(t, fe.Field)
		})
	}
}

func TestDecodePoolFull(t *testing.T) {
	pool := testPool(t)
	pool.Depth = 3
	pool.NextIndex = 8

	decoded, err := DecodePool(pool.Encode())
	require.NoError(t, err)
	require.True(t, decoded.IsFull())
}

func TestCircuitParamsCheckPool(t *testing.T) {
	pool := testPool(t)

	require.NoError(t, CircuitParams{Depth: 20, Hasher: utils.HasherMiMC}.CheckPool(pool))
	require.ErrorIs(t, CircuitParams{Depth: 10, Hasher: utils.HasherMiMC}.CheckPool(pool), ErrCircuitMismatch)
	require.ErrorIs(t, CircuitParams{Depth: 20, Hasher: utils.HasherPoseidon2}.CheckPool(pool), ErrCircuitMismatch)
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(&FieldError{Err: ErrStaleIndex, Field: "leaf_index"}))
	require.True(t, IsRetryable(ErrStaleMerkleRoot))
	require.False(t, IsRetryable(ErrDuplicateNullifier))
	require.False(t, IsRetryable(ErrInsufficientBalance))
}
