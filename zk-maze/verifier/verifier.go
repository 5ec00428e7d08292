package verifier

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/circuit"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/rs/zerolog"
)

var ErrInvalidProof = errors.New("invalid proof")

// Verifier checks a proof against the public signals it claims.
type Verifier interface {
	Params() types.CircuitParams
	VerifyDeposit(proof []byte, s *types.DepositSignals) error
	VerifyWithdraw(proof []byte, s *types.WithdrawSignals) error
}

type GnarkVerifier struct {
	params     types.CircuitParams
	depositVK  plonk.VerifyingKey
	withdrawVK plonk.VerifyingKey
	log        zerolog.Logger
}

var _ Verifier = (*GnarkVerifier)(nil)

func NewGnarkVerifier(keys *circuit.Keys, log zerolog.Logger) *GnarkVerifier {
	return &GnarkVerifier{
		params:     keys.Params,
		depositVK:  keys.DepositVK,
		withdrawVK: keys.WithdrawVK,
		log:        utils.Module(log, "verifier"),
	}
}

func (v *GnarkVerifier) Params() types.CircuitParams {
	return v.params
}

func (v *GnarkVerifier) VerifyDeposit(bzProof []byte, s *types.DepositSignals) error {
	return v.verify("deposit", bzProof, v.depositVK, circuit.DepositPublic(s, v.params.Depth))
}

func (v *GnarkVerifier) VerifyWithdraw(bzProof []byte, s *types.WithdrawSignals) error {
	return v.verify("withdraw", bzProof, v.withdrawVK, circuit.WithdrawPublic(s, v.params.Depth))
}

func (v *GnarkVerifier) verify(kind string, bzProof []byte, vk plonk.VerifyingKey, assignment frontend.Circuit) error {
	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewBuffer(bzProof)); err != nil {
		return fmt.Errorf("%w: %s proof: %v", ErrInvalidProof, kind, err)
	}

	pubWtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	if err := plonk.Verify(proof, vk, pubWtn); err != nil {
		v.log.Debug().Str("circuit", kind).Err(err).Msg("proof rejected")
		return fmt.Errorf("%w: %s proof: %v", ErrInvalidProof, kind, err)
	}
	return nil
}
