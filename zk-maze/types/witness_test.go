package types

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

func TestKeyLimbs(t *testing.T) {
	pk := PubKey{0x01, 0x02}
	pk[31] = 0x03

	hi, lo := KeyLimbs(pk)
	require.Zero(t, new(big.Int).SetBytes(pk[:16]).Cmp(hi))
	require.Zero(t, big.NewInt(3).Cmp(lo))
	require.LessOrEqual(t, hi.BitLen(), 128)

	// pk + r is another 32-byte key with the same field reduction
	v := new(big.Int).SetBytes(pk[:])
	v.Add(v, fr.Modulus())
	var alias PubKey
	v.FillBytes(alias[:])

	aliasHi, aliasLo := KeyLimbs(alias)
	require.False(t, hi.Cmp(aliasHi) == 0 && lo.Cmp(aliasLo) == 0)

	for i := 0; i < 8; i++ {
		k := randKey(t)
		h, l := KeyLimbs(k)
		var back PubKey
		h.FillBytes(back[:16])
		l.FillBytes(back[16:])
		require.Equal(t, k, back)
	}
}
