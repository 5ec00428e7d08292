package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/merkle"
	"github.com/kysee/maze/zk-maze/note"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/kysee/maze/zk-maze/verifier"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownPool   = errors.New("unknown pool")
	ErrAccountExists = errors.New("account already exists")
)

// Ledger is an in-memory account store that runs the pool program: it verifies deposit and
// withdraw proofs and applies them atomically. Reads and submissions may run concurrently.
type Ledger struct {
	mtx      sync.RWMutex
	accounts map[types.PubKey][]byte
	trees    map[types.PubKey]*merkle.Tree
	tokens   map[types.PubKey]*uint256.Int
	verifier verifier.Verifier
	log      zerolog.Logger
}

func New(v verifier.Verifier, log zerolog.Logger) *Ledger {
	return &Ledger{
		accounts: make(map[types.PubKey][]byte),
		trees:    make(map[types.PubKey]*merkle.Tree),
		tokens:   make(map[types.PubKey]*uint256.Int),
		verifier: v,
		log:      utils.Module(log, "ledger"),
	}
}

// Account returns a copy of the raw account data, or nil if the account does not exist.
func (l *Ledger) Account(ctx context.Context, key types.PubKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	raw, ok := l.accounts[key]
	if !ok {
		return nil, nil
	}
	ret := make([]byte, len(raw))
	copy(ret, raw)
	return ret, nil
}

// CreatePool registers an empty pool at vault. Only Depth, Hasher, Mint, the admin keys
// and the limits of p are used; the tree state starts empty.
func (l *Ledger) CreatePool(vault types.PubKey, p types.Pool) (*types.Pool, error) {
	if err := l.verifier.Params().CheckPool(&p); err != nil {
		return nil, err
	}
	tree, err := merkle.NewTree(p.Hasher, p.Depth)
	if err != nil {
		return nil, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if _, ok := l.accounts[vault]; ok {
		return nil, fmt.Errorf("%w: vault %v", ErrAccountExists, vault)
	}
	p.Initialized = true
	p.Root = tree.Root()
	p.NextIndex = 0
	p.TotalDeposited = 0
	l.accounts[vault] = p.Encode()
	l.trees[vault] = tree
	l.tokens[p.TokenAccount] = new(uint256.Int)

	l.log.Info().Str("vault", vault.String()).Uint8("depth", p.Depth).Str("hasher", p.Hasher.String()).Msg("pool created")
	return &p, nil
}

// Fund credits amount tokens to owner, standing in for the token program.
func (l *Ledger) Fund(owner types.PubKey, amount uint64) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.tokenOf(owner).AddUint64(l.tokenOf(owner), amount)
}

func (l *Ledger) TokenBalance(owner types.PubKey) *uint256.Int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	if b, ok := l.tokens[owner]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

func (l *Ledger) tokenOf(owner types.PubKey) *uint256.Int {
	b, ok := l.tokens[owner]
	if !ok {
		b = new(uint256.Int)
		l.tokens[owner] = b
	}
	return b
}

func (l *Ledger) pool(vault types.PubKey) (*types.Pool, *merkle.Tree, error) {
	raw, ok := l.accounts[vault]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownPool, vault)
	}
	pool, err := types.DecodePool(raw)
	if err != nil {
		return nil, nil, err
	}
	if !pool.Enabled {
		return nil, nil, types.ErrPoolDisabled
	}
	return pool, l.trees[vault], nil
}

// SubmitDeposit moves tx.Signals.Amount from depositor into the pool and appends the
// new note. Nothing changes unless every check passes.
func (l *Ledger) SubmitDeposit(ctx context.Context, vault, depositor types.PubKey, tx *types.DepositTx) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()

	pool, tree, err := l.pool(vault)
	if err != nil {
		return err
	}
	s := &tx.Signals
	if s.LeafIndex != pool.NextIndex {
		return &types.FieldError{Err: types.ErrStaleIndex, Field: "leaf_index", Expected: pool.NextIndex, Actual: s.LeafIndex}
	}
	if !s.OldRoot.Equal(&pool.Root) {
		return &types.FieldError{Err: types.ErrStaleMerkleRoot, Field: "old_root", Expected: pool.Root.String(), Actual: s.OldRoot.String()}
	}
	if s.Amount == 0 || s.Amount < pool.MinDeposit {
		return &types.FieldError{Err: types.ErrInvalidAmount, Field: "amount", Expected: fmt.Sprintf(">= max(1, %d)", pool.MinDeposit), Actual: s.Amount}
	}
	if l.tokenOf(depositor).CmpUint64(s.Amount) < 0 {
		return &types.FieldError{Err: types.ErrInsufficientBalance, Field: "depositor", Expected: s.Amount, Actual: l.tokenOf(depositor).Uint64()}
	}
	if _, ok := l.accounts[tx.NoteKey]; ok {
		return fmt.Errorf("%w: note %v", ErrAccountExists, tx.NoteKey)
	}
	if err := l.verifier.VerifyDeposit(tx.Proof, s); err != nil {
		return err
	}

	staged := tree.Clone()
	if err := l.appendLeaf(staged, s.Commitment, s.NewRoot); err != nil {
		return err
	}

	//
	// commit
	l.writeNodes(vault, staged, s.LeafIndex)
	l.trees[vault] = staged
	l.accounts[tx.NoteKey] = append([]byte(nil), tx.Note...)
	pool.Root = staged.Root()
	pool.NextIndex = staged.NextIndex()
	pool.TotalDeposited += s.Amount
	l.accounts[vault] = pool.Encode()

	src := l.tokenOf(depositor)
	src.SubUint64(src, s.Amount)
	dst := l.tokenOf(pool.TokenAccount)
	dst.AddUint64(dst, s.Amount)

	l.log.Debug().Str("vault", vault.String()).Uint64("leaf_index", s.LeafIndex).Msg("deposit applied")
	return nil
}

// SubmitWithdraw spends a note: it records the nullifier, appends the change note and pays
// the receiver, minus the delegate fee when a delegator submits on the receiver's behalf.
func (l *Ledger) SubmitWithdraw(ctx context.Context, vault types.PubKey, tx *types.WithdrawTx) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()

	pool, tree, err := l.pool(vault)
	if err != nil {
		return err
	}
	s := &tx.Signals
	nf := note.Nullifier(s.Nullifier.Bytes())
	if nf.LedgerKey() != s.NullifierKey {
		return &types.FieldError{Err: types.ErrMalformedInput, Field: "nullifier_key", Expected: nf.LedgerKey(), Actual: s.NullifierKey}
	}
	nfAddr := note.NullifierAddress(vault, nf)
	used, err := note.DecodeNullifierAccount(l.accounts[nfAddr])
	if err != nil {
		return err
	}
	if used {
		return types.ErrDuplicateNullifier
	}
	if s.DstLeafIndex != pool.NextIndex {
		return &types.FieldError{Err: types.ErrStaleIndex, Field: "dst_leaf_index", Expected: pool.NextIndex, Actual: s.DstLeafIndex}
	}
	if !s.Root.Equal(&pool.Root) {
		return &types.FieldError{Err: types.ErrStaleMerkleRoot, Field: "root", Expected: pool.Root.String(), Actual: s.Root.String()}
	}
	fee := s.Fee(pool)
	if s.WithdrawAmount == 0 || s.WithdrawAmount < pool.MinWithdraw || s.WithdrawAmount < fee {
		return &types.FieldError{Err: types.ErrInvalidAmount, Field: "withdraw_amount", Actual: s.WithdrawAmount}
	}
	if l.tokenOf(pool.TokenAccount).CmpUint64(s.WithdrawAmount) < 0 {
		return &types.FieldError{Err: types.ErrInsufficientBalance, Field: "token_account", Expected: s.WithdrawAmount, Actual: l.tokenOf(pool.TokenAccount).Uint64()}
	}
	if _, ok := l.accounts[tx.ChangeNoteKey]; ok {
		return fmt.Errorf("%w: note %v", ErrAccountExists, tx.ChangeNoteKey)
	}
	if err := l.verifier.VerifyWithdraw(tx.Proof, s); err != nil {
		return err
	}

	staged := tree.Clone()
	if err := l.appendLeaf(staged, s.ChangeCommitment, s.NewRoot); err != nil {
		return err
	}

	//
	// commit
	l.writeNodes(vault, staged, s.DstLeafIndex)
	l.trees[vault] = staged
	l.accounts[tx.ChangeNoteKey] = append([]byte(nil), tx.ChangeNote...)
	l.accounts[nfAddr] = note.EncodeNullifierAccount(s.Receiver)
	pool.Root = staged.Root()
	pool.NextIndex = staged.NextIndex()
	l.accounts[vault] = pool.Encode()

	vaultTokens := l.tokenOf(pool.TokenAccount)
	vaultTokens.SubUint64(vaultTokens, s.WithdrawAmount)
	rcv := l.tokenOf(s.Receiver)
	rcv.AddUint64(rcv, s.WithdrawAmount-fee)
	if fee > 0 {
		dlg := l.tokenOf(s.Delegator)
		dlg.AddUint64(dlg, fee)
	}

	l.log.Debug().Str("vault", vault.String()).Uint64("dst_leaf_index", s.DstLeafIndex).Uint64("fee", fee).Msg("withdraw applied")
	return nil
}

func (l *Ledger) appendLeaf(tree *merkle.Tree, leaf, newRoot fr.Element) error {
	if _, _, err := tree.Append(leaf); err != nil {
		return err
	}
	root := tree.Root()
	if !root.Equal(&newRoot) {
		return fmt.Errorf("%w: new root: expected(%s), got(%s)", verifier.ErrInvalidProof, root.String(), newRoot.String())
	}
	return nil
}

func (l *Ledger) writeNodes(vault types.PubKey, tree *merkle.Tree, leafIndex uint64) {
	locs, err := merkle.PathLocations(tree.Depth(), leafIndex)
	if err != nil {
		// leafIndex was just appended
		panic(err)
	}
	for _, loc := range locs {
		l.accounts[merkle.NodeAddress(vault, loc.Layer, loc.Index)] = merkle.EncodeNode(tree.Node(loc))
	}
}
