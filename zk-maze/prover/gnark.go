package prover

import (
	"bytes"
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/circuit"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/rs/zerolog"
)

// GnarkProver proves with the PLONK keys of the reference circuits.
type GnarkProver struct {
	keys *circuit.Keys
	log  zerolog.Logger
}

var _ Prover = (*GnarkProver)(nil)

func NewGnarkProver(keys *circuit.Keys, log zerolog.Logger) *GnarkProver {
	return &GnarkProver{keys: keys, log: utils.Module(log, "prover")}
}

func (g *GnarkProver) Params() types.CircuitParams {
	return g.keys.Params
}

func (g *GnarkProver) checkPath(field string, path types.MerklePath) error {
	if len(path) != int(g.keys.Params.Depth) {
		return &types.FieldError{Err: types.ErrPathLengthMismatch, Field: field, Expected: g.keys.Params.Depth, Actual: len(path)}
	}
	return nil
}

func (g *GnarkProver) ProveDeposit(ctx context.Context, w *types.DepositWitness) ([]byte, error) {
	if err := g.checkPath("neighbors", w.Neighbors); err != nil {
		return nil, err
	}
	wtn, err := frontend.NewWitness(circuit.DepositAssignment(w), ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	return g.prove(ctx, "deposit", g.keys.DepositCS, g.keys.DepositPK, wtn)
}

func (g *GnarkProver) ProveWithdraw(ctx context.Context, w *types.WithdrawWitness) ([]byte, error) {
	if err := g.checkPath("src_neighbors", w.SrcNeighbors); err != nil {
		return nil, err
	}
	if err := g.checkPath("dst_neighbors", w.DstNeighbors); err != nil {
		return nil, err
	}
	wtn, err := frontend.NewWitness(circuit.WithdrawAssignment(w), ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	return g.prove(ctx, "withdraw", g.keys.WithdrawCS, g.keys.WithdrawPK, wtn)
}

type proveResult struct {
	proof []byte
	err   error
}

// prove runs plonk.Prove in the background. When ctx is done the result is abandoned;
// the solver cannot be interrupted, so the goroutine finishes on its own. A Pool keeps
// such a proof counted against its bound until it finishes.
func (g *GnarkProver) prove(ctx context.Context, kind string, ccs constraint.ConstraintSystem, pk plonk.ProvingKey, wtn witness.Witness) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan proveResult, 1)
	go func() {
		proof, err := plonk.Prove(ccs, pk, wtn,
			backend.WithSolverOptions(solver.WithLogger(g.log)),
		)
		if err != nil {
			done <- proveResult{err: err}
			return
		}
		buf := bytes.NewBuffer(nil)
		if _, err := proof.WriteTo(buf); err != nil {
			done <- proveResult{err: err}
			return
		}
		done <- proveResult{proof: buf.Bytes()}
	}()

	select {
	case <-ctx.Done():
		g.log.Debug().Str("circuit", kind).Msg("proof abandoned")
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%s proof: %w", kind, r.err)
		}
		g.log.Debug().Str("circuit", kind).Int("size", len(r.proof)).Msg("proof generated")
		return r.proof, nil
	}
}
