package solidity

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/plonk"
	plonk_bn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/maze/zk-maze/circuit"
	"github.com/kysee/maze/zk-maze/types"
)

const (
	DepositVerifierFile  = "DepositVerifier.sol"
	WithdrawVerifierFile = "WithdrawVerifier.sol"
)

// ExportVerifiers writes the on-chain PLONK verifiers of both circuits into dir.
func ExportVerifiers(dir string, keys *circuit.Keys) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, vk := range map[string]plonk.VerifyingKey{
		DepositVerifierFile:  keys.DepositVK,
		WithdrawVerifierFile: keys.WithdrawVK,
	} {
		var buf bytes.Buffer
		if err := vk.ExportSolidity(&buf); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ProofData is the calldata of a verifier contract call.
type ProofData struct {
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"publicInputs"`
}

func DepositProofData(tx *types.DepositTx, depth uint8) (*ProofData, error) {
	return proofData(tx.Proof, circuit.DepositPublic(&tx.Signals, depth))
}

func WithdrawProofData(tx *types.WithdrawTx, depth uint8) (*ProofData, error) {
	return proofData(tx.Proof, circuit.WithdrawPublic(&tx.Signals, depth))
}

func proofData(bzProof []byte, public frontend.Circuit) (*ProofData, error) {
	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewBuffer(bzProof)); err != nil {
		return nil, fmt.Errorf("%w: proof: %w", types.ErrMalformedInput, err)
	}
	bnProof, ok := proof.(*plonk_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: not a bn254 proof", types.ErrMalformedInput)
	}

	wit, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, err
	}
	vec, ok := wit.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector %T", wit.Vector())
	}

	ret := &ProofData{
		Proof:        fmt.Sprintf("0x%x", bnProof.MarshalSolidity()),
		PublicInputs: make([]string, len(vec)),
	}
	for i := range vec {
		bz := vec[i].Bytes()
		ret.PublicInputs[i] = fmt.Sprintf("0x%x", bz[:])
	}
	return ret, nil
}
