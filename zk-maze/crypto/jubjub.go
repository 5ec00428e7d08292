package crypto

import (
	"fmt"
	"io"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
)

//
// GenerateKey

func NewKey(r io.Reader) (*jubjub.PrivateKey, error) {
	return jubjub.GenerateKey(r)
}

func KeyFromBytes(bz []byte) (*jubjub.PrivateKey, error) {
	prv := new(jubjub.PrivateKey)
	if _, err := prv.SetBytes(bz); err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return prv, nil
}

// ScalarPoint returns the compressed encoding of (s mod order) * Base on the bn254
// twisted Edwards curve. It is a one-way map from a field value to a 32-byte key.
func ScalarPoint(s *big.Int) [32]byte {
	curve := tedwards.GetEdwardsCurve()

	k := new(big.Int).Mod(s, &curve.Order)

	var p tedwards.PointAffine
	p.ScalarMultiplication(&curve.Base, k)
	return p.Bytes()
}
