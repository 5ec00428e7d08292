package wallet

import (
	"fmt"
	"io"
	"os"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/crypto"
	"github.com/kysee/maze/zk-maze/types"
)

// Signer produces the deterministic signature that all note keys of a pool derive from.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
	PublicKey() types.PubKey
}

// PoolMessage is what a wallet signs to unlock its notes in vault.
func PoolMessage(vault types.PubKey) []byte {
	return utils.HasherMiMC.HashBytes([]byte("maze/pool-message"), vault[:])
}

// EdDSASigner signs with an EdDSA key on the bn254 twisted Edwards curve. Its signatures
// are deterministic, which note key derivation depends on.
type EdDSASigner struct {
	prv *jubjub.PrivateKey
}

var _ Signer = (*EdDSASigner)(nil)

func NewSigner(r io.Reader) (*EdDSASigner, error) {
	prv, err := crypto.NewKey(r)
	if err != nil {
		return nil, err
	}
	return &EdDSASigner{prv: prv}, nil
}

func (s *EdDSASigner) Sign(msg []byte) ([]byte, error) {
	return s.prv.Sign(msg, gnark_hash.MIMC_BN254.New())
}

func (s *EdDSASigner) PublicKey() types.PubKey {
	var pk types.PubKey
	copy(pk[:], s.prv.PublicKey.Bytes())
	return pk
}

// Verify checks sig against msg for the public key pk.
func Verify(pk types.PubKey, msg, sig []byte) (bool, error) {
	var pub jubjub.PublicKey
	if _, err := pub.SetBytes(pk[:]); err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
	return pub.Verify(sig, msg, gnark_hash.MIMC_BN254.New())
}

func (s *EdDSASigner) Save(path string) error {
	return os.WriteFile(path, s.prv.Bytes(), 0o600)
}

func LoadSigner(path string) (*EdDSASigner, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prv, err := crypto.KeyFromBytes(bz)
	if err != nil {
		return nil, err
	}
	return &EdDSASigner{prv: prv}, nil
}
