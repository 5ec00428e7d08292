package crypto

import (
	crand "crypto/rand"
	"math/big"
	"testing"

	tedwards "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/stretchr/testify/require"
)

func TestKeyGeneration(t *testing.T) {
	prv, err := NewKey(crand.Reader)
	require.NoError(t, err)
	require.True(t, prv.PublicKey.A.IsOnCurve())

	restored, err := KeyFromBytes(prv.Bytes())
	require.NoError(t, err)
	require.Equal(t, prv.PublicKey.Bytes(), restored.PublicKey.Bytes())

	// signatures are deterministic for a given key and message
	msg := make([]byte, 32)
	sig0, err := prv.Sign(msg, mimc.NewMiMC())
	require.NoError(t, err)
	sig1, err := restored.Sign(msg, mimc.NewMiMC())
	require.NoError(t, err)
	require.Equal(t, sig0, sig1)

	ok, err := prv.PublicKey.Verify(sig0, msg, mimc.NewMiMC())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestScalarPoint(t *testing.T) {
	curve := tedwards.GetEdwardsCurve()

	a := ScalarPoint(big.NewInt(7))
	require.Equal(t, a, ScalarPoint(big.NewInt(7)))
	require.NotEqual(t, a, ScalarPoint(big.NewInt(8)))

	// reduced modulo the subgroup order
	wrapped := new(big.Int).Add(&curve.Order, big.NewInt(7))
	require.Equal(t, a, ScalarPoint(wrapped))

	var p tedwards.PointAffine
	_, err := p.SetBytes(a[:])
	require.NoError(t, err)
	require.True(t, p.IsOnCurve())
}
