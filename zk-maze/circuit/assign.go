package circuit

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/types"
)

func elem(e fr.Element) frontend.Variable {
	return utils.ElementBig(e)
}

func pathVars(path []fr.Element, depth int) []frontend.Variable {
	ret := make([]frontend.Variable, depth)
	for i := range ret {
		if i < len(path) {
			ret[i] = elem(path[i])
		} else {
			ret[i] = 0
		}
	}
	return ret
}

// NewDepositCircuit returns an empty circuit shaped for depth, ready to compile.
func NewDepositCircuit(depth uint8) *DepositCircuit {
	return &DepositCircuit{Neighbors: make([]frontend.Variable, depth)}
}

func NewWithdrawCircuit(depth uint8) *WithdrawCircuit {
	return &WithdrawCircuit{
		SrcNeighbors: make([]frontend.Variable, depth),
		DstNeighbors: make([]frontend.Variable, depth),
	}
}

// DepositAssignment fills every input of the deposit circuit.
func DepositAssignment(w *types.DepositWitness) *DepositCircuit {
	return &DepositCircuit{
		LeafIndex:   w.LeafIndex,
		Amount:      w.Amount,
		OldRoot:     elem(w.OldRoot),
		Commitment:  elem(w.Commitment),
		NewRoot:     elem(w.NewRoot),
		SpendingKey: elem(w.SpendingKey),
		Blinding:    elem(w.Blinding),
		Neighbors:   pathVars(w.Neighbors, len(w.Neighbors)),
	}
}

// DepositPublic fills only the public inputs, for verification.
func DepositPublic(s *types.DepositSignals, depth uint8) *DepositCircuit {
	return &DepositCircuit{
		LeafIndex:   s.LeafIndex,
		Amount:      s.Amount,
		OldRoot:     elem(s.OldRoot),
		Commitment:  elem(s.Commitment),
		NewRoot:     elem(s.NewRoot),
		SpendingKey: 0,
		Blinding:    0,
		Neighbors:   pathVars(nil, int(depth)),
	}
}

func WithdrawAssignment(w *types.WithdrawWitness) *WithdrawCircuit {
	receiverHi, receiverLo := types.KeyLimbs(w.Receiver)
	delegatorHi, delegatorLo := types.KeyLimbs(w.Delegator)
	return &WithdrawCircuit{
		Root:             elem(w.Root),
		Nullifier:        elem(w.Nullifier),
		WithdrawAmount:   w.WithdrawAmount,
		ReceiverHi:       receiverHi,
		ReceiverLo:       receiverLo,
		DelegatorHi:      delegatorHi,
		DelegatorLo:      delegatorLo,
		DstLeafIndex:     w.DstLeafIndex,
		ChangeCommitment: elem(w.ChangeCommitment),
		NewRoot:          elem(w.NewRoot),
		SpendingKey:      elem(w.SpendingKey),
		Balance:          w.Balance,
		SrcLeafIndex:     w.SrcLeafIndex,
		SrcBlinding:      elem(w.SrcBlinding),
		SrcNeighbors:     pathVars(w.SrcNeighbors, len(w.SrcNeighbors)),
		ChangeOwner:      elem(w.ChangeOwner),
		ChangeBlinding:   elem(w.ChangeBlinding),
		DstNeighbors:     pathVars(w.DstNeighbors, len(w.DstNeighbors)),
	}
}

func WithdrawPublic(s *types.WithdrawSignals, depth uint8) *WithdrawCircuit {
	receiverHi, receiverLo := types.KeyLimbs(s.Receiver)
	delegatorHi, delegatorLo := types.KeyLimbs(s.Delegator)
	return &WithdrawCircuit{
		Root:             elem(s.Root),
		Nullifier:        elem(s.Nullifier),
		WithdrawAmount:   s.WithdrawAmount,
		ReceiverHi:       receiverHi,
		ReceiverLo:       receiverLo,
		DelegatorHi:      delegatorHi,
		DelegatorLo:      delegatorLo,
		DstLeafIndex:     s.DstLeafIndex,
		ChangeCommitment: elem(s.ChangeCommitment),
		NewRoot:          elem(s.NewRoot),
		SpendingKey:      0,
		Balance:          0,
		SrcLeafIndex:     0,
		SrcBlinding:      0,
		SrcNeighbors:     pathVars(nil, int(depth)),
		ChangeOwner:      0,
		ChangeBlinding:   0,
		DstNeighbors:     pathVars(nil, int(depth)),
	}
}
