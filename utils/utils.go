package utils

import (
	"fmt"
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	_ "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
)

// HasherID selects the field hash used by a pool's accumulator, commitments and nullifiers.
// It is pinned per pool and must match the hash baked into the proving circuit.
type HasherID uint8

const (
	HasherMiMC      HasherID = 1
	HasherPoseidon2 HasherID = 2
)

func (id HasherID) String() string {
	switch id {
	case HasherMiMC:
		return "mimc"
	case HasherPoseidon2:
		return "poseidon2"
	default:
		return fmt.Sprintf("hasher(%d)", uint8(id))
	}
}

func (id HasherID) Valid() bool {
	return id == HasherMiMC || id == HasherPoseidon2
}

func ParseHasherID(s string) (HasherID, error) {
	switch s {
	case "mimc":
		return HasherMiMC, nil
	case "poseidon2":
		return HasherPoseidon2, nil
	}
	return 0, fmt.Errorf("unknown hasher: %q", s)
}

// New returns a fresh hasher consuming 32-byte big-endian canonical field elements.
func (id HasherID) New() hash.Hash {
	switch id {
	case HasherMiMC:
		return gnark_hash.MIMC_BN254.New()
	case HasherPoseidon2:
		return poseidon2.NewMerkleDamgardHasher()
	}
	panic(fmt.Sprintf("unsupported hasher: %s", id))
}

// Hash hashes the given field elements in order.
func (id HasherID) Hash(elems ...fr.Element) fr.Element {
	hasher := id.New()
	for i := range elems {
		bz := elems[i].Bytes()
		if _, err := hasher.Write(bz[:]); err != nil {
			// canonical elements are always accepted
			panic(err)
		}
	}
	var ret fr.Element
	ret.SetBytes(hasher.Sum(nil))
	return ret
}

// HashTwo is the inner node hash of the accumulator.
func (id HasherID) HashTwo(left, right fr.Element) fr.Element {
	return id.Hash(left, right)
}

// HashBytes hashes arbitrary bytes by splitting them into 32-byte chunks,
// reducing each chunk into the field first.
func (id HasherID) HashBytes(ins ...[]byte) []byte {
	hasher := id.New()

	blockSize := fr.Bytes
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			// this value may be greater than the modulus; convert to fr.Element
			var elem fr.Element
			elem.SetBytes(in[i:end])
			chunk := elem.Bytes()
			if _, err := hasher.Write(chunk[:]); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

func Uint64Element(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// BytesElement reduces arbitrary bytes (big-endian) into the scalar field.
func BytesElement(bz []byte) fr.Element {
	var e fr.Element
	e.SetBytes(bz)
	return e
}

// CanonicalElement decodes a 32-byte big-endian field element, rejecting values >= modulus.
func CanonicalElement(bz []byte) (fr.Element, error) {
	var e fr.Element
	if len(bz) != fr.Bytes {
		return e, fmt.Errorf("field element must be %d bytes: got(%d)", fr.Bytes, len(bz))
	}
	if err := e.SetBytesCanonical(bz); err != nil {
		return e, err
	}
	return e, nil
}

func ElementBig(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}
