package prover

import (
	"context"

	"github.com/kysee/maze/zk-maze/types"
	"golang.org/x/sync/semaphore"
)

// Prover turns a complete witness into serialized proof bytes.
// A Prover is bound to one tree shape, reported by Params.
type Prover interface {
	Params() types.CircuitParams
	ProveDeposit(ctx context.Context, w *types.DepositWitness) ([]byte, error)
	ProveWithdraw(ctx context.Context, w *types.WithdrawWitness) ([]byte, error)
}

// Pool bounds the number of proofs built at the same time. Proving is CPU and memory
// heavy, so callers building many transactions share one Pool.
type Pool struct {
	prover Prover
	sem    *semaphore.Weighted
}

var _ Prover = (*Pool)(nil)

func NewPool(p Prover, maxParallel int64) *Pool {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Pool{prover: p, sem: semaphore.NewWeighted(maxParallel)}
}

func (pp *Pool) Params() types.CircuitParams {
	return pp.prover.Params()
}

func (pp *Pool) ProveDeposit(ctx context.Context, w *types.DepositWitness) ([]byte, error) {
	return pp.run(ctx, func(ctx context.Context) ([]byte, error) {
		return pp.prover.ProveDeposit(ctx, w)
	})
}

func (pp *Pool) ProveWithdraw(ctx context.Context, w *types.WithdrawWitness) ([]byte, error) {
	return pp.run(ctx, func(ctx context.Context) ([]byte, error) {
		return pp.prover.ProveWithdraw(ctx, w)
	})
}

type poolResult struct {
	proof []byte
	err   error
}

// run holds a slot until prove returns. A started proof cannot be interrupted, so it runs
// to completion on an uncancelled context; a cancelled caller only stops waiting for it.
func (pp *Pool) run(ctx context.Context, prove func(context.Context) ([]byte, error)) ([]byte, error) {
	if err := pp.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	done := make(chan poolResult, 1)
	go func() {
		defer pp.sem.Release(1)
		proof, err := prove(context.WithoutCancel(ctx))
		done <- poolResult{proof: proof, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.proof, r.err
	}
}
