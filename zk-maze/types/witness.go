package types

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
)

// MerklePath holds the sibling of every layer, leaf layer first. A valid path has len == depth.
type MerklePath []fr.Element

func (mp MerklePath) Clone() MerklePath {
	ret := make(MerklePath, len(mp))
	copy(ret, mp)
	return ret
}

// CircuitParams are the tree parameters baked into a compiled circuit.
type CircuitParams struct {
	Depth  uint8
	Hasher utils.HasherID
}

func (cp CircuitParams) String() string {
	return fmt.Sprintf("depth=%d,hasher=%s", cp.Depth, cp.Hasher)
}

// CheckPool returns ErrCircuitMismatch if the pool was created with other tree parameters.
func (cp CircuitParams) CheckPool(pool *Pool) error {
	if cp.Depth != pool.Depth {
		return &FieldError{Err: ErrCircuitMismatch, Field: "depth", Expected: pool.Depth, Actual: cp.Depth}
	}
	if cp.Hasher != pool.Hasher {
		return &FieldError{Err: ErrCircuitMismatch, Field: "hasher", Expected: pool.Hasher, Actual: cp.Hasher}
	}
	return nil
}

// DepositWitness is everything the deposit circuit needs, public and private.
type DepositWitness struct {
	// public
	LeafIndex  uint64
	Amount     uint64
	OldRoot    fr.Element
	Commitment fr.Element
	NewRoot    fr.Element

	// private
	SpendingKey fr.Element
	Blinding    fr.Element
	Neighbors   MerklePath
}

// WithdrawWitness spends the source note in full and inserts the change note at DstLeafIndex.
type WithdrawWitness struct {
	// public
	Root             fr.Element
	Nullifier        fr.Element
	WithdrawAmount   uint64
	Receiver         PubKey
	Delegator        PubKey
	DstLeafIndex     uint64
	ChangeCommitment fr.Element
	NewRoot          fr.Element

	// private
	SpendingKey    fr.Element
	Balance        uint64
	SrcLeafIndex   uint64
	SrcBlinding    fr.Element
	SrcNeighbors   MerklePath
	ChangeOwner    fr.Element
	ChangeBlinding fr.Element
	DstNeighbors   MerklePath
}

// KeyLimbHalf is the byte width of one circuit limb of a ledger key.
const KeyLimbHalf = PubKeySize / 2

// KeyLimbs splits a ledger key into big-endian 128-bit halves. Each half is below the
// field modulus, so distinct keys always give distinct circuit inputs.
func KeyLimbs(pk PubKey) (hi, lo *big.Int) {
	return new(big.Int).SetBytes(pk[:KeyLimbHalf]), new(big.Int).SetBytes(pk[KeyLimbHalf:])
}
