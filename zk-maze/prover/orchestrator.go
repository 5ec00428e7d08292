package prover

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/merkle"
	"github.com/kysee/maze/zk-maze/note"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/rs/zerolog"
)

// Orchestrator validates a caller's request against the pool state, assembles the witness,
// and asks the Prover for a proof. It keeps no state between calls.
type Orchestrator struct {
	prover Prover
	rand   io.Reader
	log    zerolog.Logger
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = utils.Module(l, "orchestrator")
	}
}

// WithRand replaces the source of blinding factors and AEAD nonces.
func WithRand(r io.Reader) Option {
	return func(o *Orchestrator) {
		o.rand = r
	}
}

func NewOrchestrator(p Prover, opts ...Option) *Orchestrator {
	o := &Orchestrator{prover: p, rand: crand.Reader, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type DepositRequest struct {
	Vault     types.PubKey
	Pool      *types.Pool
	Mint      types.PubKey
	Depositor types.PubKey
	LeafIndex uint64
	Amount    uint64
	Neighbors types.MerklePath
	Signature []byte
	// Nonce selects the wallet's note slot the deposit is stored in.
	Nonce uint64
}

type WithdrawRequest struct {
	Vault          types.PubKey
	Pool           *types.Pool
	Mint           types.PubKey
	Receiver       types.PubKey
	Delegator      types.PubKey
	SrcLeafIndex   uint64
	Balance        uint64
	SrcBlinding    fr.Element
	SrcNonce       uint64
	DstLeafIndex   uint64
	WithdrawAmount uint64
	Signature      []byte
	SrcNeighbors   types.MerklePath
	DstNeighbors   types.MerklePath
	// Nonce selects the wallet's note slot the change note is stored in.
	Nonce uint64
}

func (o *Orchestrator) checkPool(pool *types.Pool, mint types.PubKey) error {
	if pool == nil {
		return &types.FieldError{Err: types.ErrMalformedInput, Field: "pool"}
	}
	if !pool.Enabled {
		return types.ErrPoolDisabled
	}
	if err := o.prover.Params().CheckPool(pool); err != nil {
		return err
	}
	if mint != pool.Mint {
		return &types.FieldError{Err: types.ErrMalformedInput, Field: "mint", Expected: pool.Mint, Actual: mint}
	}
	return nil
}

func checkPathLen(field string, path types.MerklePath, depth uint8) error {
	if len(path) != int(depth) {
		return &types.FieldError{Err: types.ErrPathLengthMismatch, Field: field, Expected: depth, Actual: len(path)}
	}
	return nil
}

func proverFailure(ctx context.Context, err error) error {
	var fe *types.FieldError
	if ctx.Err() != nil || errors.As(err, &fe) {
		return err
	}
	return fmt.Errorf("%w: %w", types.ErrProverFailure, err)
}

// BuildDeposit creates a note of req.Amount at req.LeafIndex and proves its insertion.
func (o *Orchestrator) BuildDeposit(ctx context.Context, req *DepositRequest) (*types.DepositTx, error) {
	pool := req.Pool
	if err := o.checkPool(pool, req.Mint); err != nil {
		return nil, err
	}
	if req.Amount == 0 || req.Amount < pool.MinDeposit {
		return nil, &types.FieldError{Err: types.ErrInvalidAmount, Field: "amount", Expected: fmt.Sprintf(">= max(1, %d)", pool.MinDeposit), Actual: req.Amount}
	}
	if req.LeafIndex >= pool.Capacity() {
		return nil, &types.FieldError{Err: types.ErrIndexOutOfRange, Field: "leaf_index", Expected: fmt.Sprintf("< %d", pool.Capacity()), Actual: req.LeafIndex}
	}
	if req.LeafIndex != pool.NextIndex {
		return nil, &types.FieldError{Err: types.ErrStaleIndex, Field: "leaf_index", Expected: pool.NextIndex, Actual: req.LeafIndex}
	}
	if err := checkPathLen("neighbors", req.Neighbors, pool.Depth); err != nil {
		return nil, err
	}
	hasher := pool.Hasher
	if err := merkle.VerifyPath(hasher, merkle.EmptyLeaf, req.LeafIndex, req.Neighbors, pool.Depth, pool.Root); err != nil {
		return nil, err
	}

	keys, err := note.DeriveKeys(req.Signature, req.Vault, req.Nonce)
	if err != nil {
		return nil, err
	}
	blinding, err := note.NewBlinding(o.rand)
	if err != nil {
		return nil, err
	}
	n := note.New(hasher, keys, req.LeafIndex, req.Amount, blinding)
	commitment := n.Commitment(hasher)
	newRoot, updated, err := merkle.ComputeRoot(hasher, commitment, req.LeafIndex, req.Neighbors, pool.Depth)
	if err != nil {
		return nil, err
	}
	blob, err := note.EncodeNote(keys.ViewingKey, req.Vault, n, o.rand)
	if err != nil {
		return nil, err
	}

	w := &types.DepositWitness{
		LeafIndex:   req.LeafIndex,
		Amount:      req.Amount,
		OldRoot:     pool.Root,
		Commitment:  commitment,
		NewRoot:     newRoot,
		SpendingKey: keys.SpendingKey,
		Blinding:    blinding,
		Neighbors:   req.Neighbors,
	}
	proof, err := o.prover.ProveDeposit(ctx, w)
	if err != nil {
		return nil, proverFailure(ctx, err)
	}

	o.log.Info().
		Str("vault", req.Vault.String()).
		Str("depositor", req.Depositor.String()).
		Uint64("leaf_index", req.LeafIndex).
		Uint64("amount", req.Amount).
		Msg("deposit built")

	return &types.DepositTx{
		Proof: proof,
		Signals: types.DepositSignals{
			LeafIndex:    req.LeafIndex,
			Amount:       req.Amount,
			OldRoot:      pool.Root,
			Commitment:   commitment,
			NewRoot:      newRoot,
			UpdatedNodes: updated,
		},
		Note:    blob,
		NoteKey: keys.Locator,
	}, nil
}

// BuildWithdraw spends the note at req.SrcLeafIndex in full: req.WithdrawAmount leaves the
// pool and the rest is stored as a change note (possibly zero) at req.DstLeafIndex.
func (o *Orchestrator) BuildWithdraw(ctx context.Context, req *WithdrawRequest) (*types.WithdrawTx, error) {
	if req.WithdrawAmount > req.Balance {
		return nil, &types.FieldError{Err: types.ErrInsufficientBalance, Field: "withdraw_amount", Expected: fmt.Sprintf("<= %d", req.Balance), Actual: req.WithdrawAmount}
	}
	pool := req.Pool
	if err := o.checkPool(pool, req.Mint); err != nil {
		return nil, err
	}

	delegator := req.Delegator
	if delegator.IsZero() {
		delegator = req.Receiver
	}
	minAmount := pool.MinWithdraw
	if delegator != req.Receiver && pool.DelegateFee > minAmount {
		minAmount = pool.DelegateFee
	}
	if req.WithdrawAmount == 0 || req.WithdrawAmount < minAmount {
		return nil, &types.FieldError{Err: types.ErrInvalidAmount, Field: "withdraw_amount", Expected: fmt.Sprintf(">= max(1, %d)", minAmount), Actual: req.WithdrawAmount}
	}
	if req.SrcLeafIndex >= pool.Capacity() {
		return nil, &types.FieldError{Err: types.ErrIndexOutOfRange, Field: "src_leaf_index", Expected: fmt.Sprintf("< %d", pool.Capacity()), Actual: req.SrcLeafIndex}
	}
	// a leaf that was never written holds no note
	if req.SrcLeafIndex >= pool.NextIndex {
		return nil, &types.FieldError{Err: types.ErrMalformedInput, Field: "src_leaf_index", Expected: fmt.Sprintf("< %d", pool.NextIndex), Actual: req.SrcLeafIndex}
	}
	if req.DstLeafIndex != pool.NextIndex {
		return nil, &types.FieldError{Err: types.ErrStaleIndex, Field: "dst_leaf_index", Expected: pool.NextIndex, Actual: req.DstLeafIndex}
	}
	if req.DstLeafIndex >= pool.Capacity() {
		return nil, &types.FieldError{Err: types.ErrIndexOutOfRange, Field: "dst_leaf_index", Expected: fmt.Sprintf("< %d", pool.Capacity()), Actual: req.DstLeafIndex}
	}
	if err := checkPathLen("src_neighbors", req.SrcNeighbors, pool.Depth); err != nil {
		return nil, err
	}
	if err := checkPathLen("dst_neighbors", req.DstNeighbors, pool.Depth); err != nil {
		return nil, err
	}

	hasher := pool.Hasher
	srcKeys, err := note.DeriveKeys(req.Signature, req.Vault, req.SrcNonce)
	if err != nil {
		return nil, err
	}
	src := note.New(hasher, srcKeys, req.SrcLeafIndex, req.Balance, req.SrcBlinding)
	if err := merkle.VerifyPath(hasher, src.Commitment(hasher), req.SrcLeafIndex, req.SrcNeighbors, pool.Depth, pool.Root); err != nil {
		return nil, err
	}
	if err := merkle.VerifyPath(hasher, merkle.EmptyLeaf, req.DstLeafIndex, req.DstNeighbors, pool.Depth, pool.Root); err != nil {
		return nil, err
	}

	dstKeys, err := note.DeriveKeys(req.Signature, req.Vault, req.Nonce)
	if err != nil {
		return nil, err
	}
	changeBlinding, err := note.NewBlinding(o.rand)
	if err != nil {
		return nil, err
	}
	change := note.New(hasher, dstKeys, req.DstLeafIndex, req.Balance-req.WithdrawAmount, changeBlinding)
	changeCommitment := change.Commitment(hasher)
	newRoot, updated, err := merkle.ComputeRoot(hasher, changeCommitment, req.DstLeafIndex, req.DstNeighbors, pool.Depth)
	if err != nil {
		return nil, err
	}
	blob, err := note.EncodeNote(dstKeys.ViewingKey, req.Vault, change, o.rand)
	if err != nil {
		return nil, err
	}
	nf := note.DeriveNullifier(hasher, srcKeys.SpendingKey, req.SrcLeafIndex)

	w := &types.WithdrawWitness{
		Root:             pool.Root,
		Nullifier:        nf.Element(),
		WithdrawAmount:   req.WithdrawAmount,
		Receiver:         req.Receiver,
		Delegator:        delegator,
		DstLeafIndex:     req.DstLeafIndex,
		ChangeCommitment: changeCommitment,
		NewRoot:          newRoot,
		SpendingKey:      srcKeys.SpendingKey,
		Balance:          req.Balance,
		SrcLeafIndex:     req.SrcLeafIndex,
		SrcBlinding:      req.SrcBlinding,
		SrcNeighbors:     req.SrcNeighbors,
		ChangeOwner:      change.Owner,
		ChangeBlinding:   changeBlinding,
		DstNeighbors:     req.DstNeighbors,
	}
	proof, err := o.prover.ProveWithdraw(ctx, w)
	if err != nil {
		return nil, proverFailure(ctx, err)
	}

	o.log.Info().
		Str("vault", req.Vault.String()).
		Str("receiver", req.Receiver.String()).
		Uint64("dst_leaf_index", req.DstLeafIndex).
		Uint64("withdraw_amount", req.WithdrawAmount).
		Msg("withdraw built")

	return &types.WithdrawTx{
		Proof: proof,
		Signals: types.WithdrawSignals{
			Root:             pool.Root,
			Nullifier:        nf.Element(),
			NullifierKey:     nf.LedgerKey(),
			WithdrawAmount:   req.WithdrawAmount,
			Receiver:         req.Receiver,
			Delegator:        delegator,
			DstLeafIndex:     req.DstLeafIndex,
			ChangeCommitment: changeCommitment,
			NewRoot:          newRoot,
			UpdatedNodes:     updated,
		},
		ChangeNote:    blob,
		ChangeNoteKey: dstKeys.Locator,
	}, nil
}
