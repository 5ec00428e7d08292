package circuit

import (
	"github.com/consensys/gnark/frontend"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/kysee/maze/zk-maze/types"
)

// WithdrawCircuit proves ownership of the note at SrcLeafIndex under Root, reveals its
// nullifier, and inserts the change note Balance-WithdrawAmount at the empty slot DstLeafIndex.
type WithdrawCircuit struct {
	Root             frontend.Variable `gnark:",public"`
	Nullifier        frontend.Variable `gnark:",public"`
	WithdrawAmount   frontend.Variable `gnark:",public"`
	ReceiverHi       frontend.Variable `gnark:",public"`
	ReceiverLo       frontend.Variable `gnark:",public"`
	DelegatorHi      frontend.Variable `gnark:",public"`
	DelegatorLo      frontend.Variable `gnark:",public"`
	DstLeafIndex     frontend.Variable `gnark:",public"`
	ChangeCommitment frontend.Variable `gnark:",public"`
	NewRoot          frontend.Variable `gnark:",public"`

	SpendingKey    frontend.Variable
	Balance        frontend.Variable
	SrcLeafIndex   frontend.Variable
	SrcBlinding    frontend.Variable
	SrcNeighbors   []frontend.Variable
	ChangeOwner    frontend.Variable
	ChangeBlinding frontend.Variable
	DstNeighbors   []frontend.Variable
}

func (cc *WithdrawCircuit) Define(api frontend.API) error {
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	depth := len(cc.SrcNeighbors)

	srcBits := api.ToBinary(cc.SrcLeafIndex, depth)
	dstBits := api.ToBinary(cc.DstLeafIndex, depth)

	// amounts are u64 and the change may not wrap around the field
	_ = api.ToBinary(cc.Balance, 64)
	_ = api.ToBinary(cc.WithdrawAmount, 64)
	change := api.Sub(cc.Balance, cc.WithdrawAmount)
	_ = api.ToBinary(change, 64)

	owner := hashOf(&hasher, cc.SpendingKey)

	// spent note
	srcCommitment := hashOf(&hasher, cc.SrcLeafIndex, cc.Balance, owner, cc.SrcBlinding)
	api.AssertIsEqual(cc.Root, rootOf(api, &hasher, srcCommitment, srcBits, cc.SrcNeighbors))
	api.AssertIsEqual(cc.Nullifier, hashOf(&hasher, cc.SrcLeafIndex, cc.SpendingKey))

	// change note, owned by the key of the caller's next note slot
	changeCommitment := hashOf(&hasher, cc.DstLeafIndex, change, cc.ChangeOwner, cc.ChangeBlinding)
	api.AssertIsEqual(cc.ChangeCommitment, changeCommitment)
	api.AssertIsEqual(cc.Root, rootOf(api, &hasher, 0, dstBits, cc.DstNeighbors))
	api.AssertIsEqual(cc.NewRoot, rootOf(api, &hasher, changeCommitment, dstBits, cc.DstNeighbors))

	// receiver and delegator keys enter as 128-bit halves
	for _, limb := range []frontend.Variable{cc.ReceiverHi, cc.ReceiverLo, cc.DelegatorHi, cc.DelegatorLo} {
		_ = api.ToBinary(limb, 8*types.KeyLimbHalf)
	}
	return nil
}
