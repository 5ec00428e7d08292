package types

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

type DepositSignals struct {
	LeafIndex  uint64
	Amount     uint64
	OldRoot    fr.Element
	Commitment fr.Element
	NewRoot    fr.Element
	// UpdatedNodes[l] is the new node at layer l on the leaf's path; UpdatedNodes[0] is the leaf.
	UpdatedNodes []fr.Element
}

// DepositTx is the artifact handed to the ledger client. It is not persisted by the core.
type DepositTx struct {
	Proof   []byte
	Signals DepositSignals
	Note    []byte
	NoteKey PubKey
}

type WithdrawSignals struct {
	Root             fr.Element
	Nullifier        fr.Element
	NullifierKey     PubKey
	WithdrawAmount   uint64
	Receiver         PubKey
	Delegator        PubKey
	DstLeafIndex     uint64
	ChangeCommitment fr.Element
	NewRoot          fr.Element
	UpdatedNodes     []fr.Element
}

type WithdrawTx struct {
	Proof         []byte
	Signals       WithdrawSignals
	ChangeNote    []byte
	ChangeNoteKey PubKey
}

// Fee is what the delegator keeps from the withdrawn amount.
func (s *WithdrawSignals) Fee(pool *Pool) uint64 {
	if s.Delegator == s.Receiver {
		return 0
	}
	return pool.DelegateFee
}
