package circuit

import (
	"github.com/consensys/gnark/frontend"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
)

// DepositCircuit proves that Commitment was written into the empty slot LeafIndex,
// moving the tree from OldRoot to NewRoot.
type DepositCircuit struct {
	LeafIndex  frontend.Variable `gnark:",public"`
	Amount     frontend.Variable `gnark:",public"`
	OldRoot    frontend.Variable `gnark:",public"`
	Commitment frontend.Variable `gnark:",public"`
	NewRoot    frontend.Variable `gnark:",public"`

	SpendingKey frontend.Variable
	Blinding    frontend.Variable
	Neighbors   []frontend.Variable
}

func (cc *DepositCircuit) Define(api frontend.API) error {
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	depth := len(cc.Neighbors)

	bits := api.ToBinary(cc.LeafIndex, depth)
	_ = api.ToBinary(cc.Amount, 64)

	owner := hashOf(&hasher, cc.SpendingKey)
	commitment := hashOf(&hasher, cc.LeafIndex, cc.Amount, owner, cc.Blinding)
	api.AssertIsEqual(cc.Commitment, commitment)

	api.AssertIsEqual(cc.OldRoot, rootOf(api, &hasher, 0, bits, cc.Neighbors))
	api.AssertIsEqual(cc.NewRoot, rootOf(api, &hasher, commitment, bits, cc.Neighbors))
	return nil
}
