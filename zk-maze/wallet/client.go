package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/merkle"
	"github.com/kysee/maze/zk-maze/note"
	"github.com/kysee/maze/zk-maze/prover"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Ledger is the ledger client the wallet talks to.
type Ledger interface {
	merkle.AccountReader
	SubmitDeposit(ctx context.Context, vault, depositor types.PubKey, tx *types.DepositTx) error
	SubmitWithdraw(ctx context.Context, vault types.PubKey, tx *types.WithdrawTx) error
}

type Config struct {
	MaxRetries      int
	ScanParallelism int
}

func DefaultConfig() Config {
	return Config{MaxRetries: 3, ScanParallelism: merkle.DefaultFetchParallelism}
}

// Client runs deposits and withdraws for one signer. It keeps no note state: every call
// reads the pool from the ledger, and a build that lost a race is rebuilt on fresh state.
type Client struct {
	ledger Ledger
	orch   *prover.Orchestrator
	signer Signer
	cfg    Config
	log    zerolog.Logger
}

func NewClient(l Ledger, orch *prover.Orchestrator, signer Signer, cfg Config, log zerolog.Logger) *Client {
	if cfg.ScanParallelism < 1 {
		cfg.ScanParallelism = merkle.DefaultFetchParallelism
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{ledger: l, orch: orch, signer: signer, cfg: cfg, log: utils.Module(log, "wallet")}
}

func (c *Client) Address() string {
	return types.EncodeAddress(c.signer.PublicKey())
}

func (c *Client) signature(vault types.PubKey) ([]byte, error) {
	sig, err := c.signer.Sign(PoolMessage(vault))
	if err != nil {
		return nil, fmt.Errorf("sign pool message: %w", err)
	}
	return sig, nil
}

func (c *Client) fetchPool(ctx context.Context, vault types.PubKey) (*types.Pool, error) {
	raw, err := c.ledger.Account(ctx, vault)
	if err != nil {
		return nil, err
	}
	return types.DecodePool(raw)
}

func (c *Client) path(ctx context.Context, vault types.PubKey, pool *types.Pool, idx uint64) (types.MerklePath, error) {
	return merkle.GetNeighborPath(ctx, c.ledger, vault, pool, idx, merkle.WithParallelism(c.cfg.ScanParallelism))
}

// retry runs attempt until it succeeds, fails with a non-retryable error, or
// MaxRetries rebuilds have been spent.
func (c *Client) retry(ctx context.Context, op string, attempt func() error) error {
	var err error
	for i := 0; i <= c.cfg.MaxRetries; i++ {
		if err = attempt(); err == nil || !types.IsRetryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Info().Str("op", op).Int("attempt", i+1).Err(err).Msg("pool state changed, rebuilding")
	}
	return err
}

// Deposit moves amount of the vault's token from the signer into note slot nonce.
func (c *Client) Deposit(ctx context.Context, vault types.PubKey, amount, nonce uint64) (*types.DepositTx, error) {
	sig, err := c.signature(vault)
	if err != nil {
		return nil, err
	}

	var tx *types.DepositTx
	err = c.retry(ctx, "deposit", func() error {
		pool, err := c.fetchPool(ctx, vault)
		if err != nil {
			return err
		}
		path, err := c.path(ctx, vault, pool, pool.NextIndex)
		if err != nil {
			return err
		}
		tx, err = c.orch.BuildDeposit(ctx, &prover.DepositRequest{
			Vault:     vault,
			Pool:      pool,
			Mint:      pool.Mint,
			Depositor: c.signer.PublicKey(),
			LeafIndex: pool.NextIndex,
			Amount:    amount,
			Neighbors: path,
			Signature: sig,
			Nonce:     nonce,
		})
		if err != nil {
			return err
		}
		return c.ledger.SubmitDeposit(ctx, vault, c.signer.PublicKey(), tx)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Withdraw spends src, paying amount to receiver, and keeps the rest in note slot nonce.
// A zero delegator means the receiver submits the transaction.
func (c *Client) Withdraw(ctx context.Context, vault types.PubKey, src *OwnedNote, amount uint64, receiver, delegator types.PubKey, nonce uint64) (*types.WithdrawTx, error) {
	sig, err := c.signature(vault)
	if err != nil {
		return nil, err
	}

	var tx *types.WithdrawTx
	err = c.retry(ctx, "withdraw", func() error {
		pool, err := c.fetchPool(ctx, vault)
		if err != nil {
			return err
		}
		srcPath, err := c.path(ctx, vault, pool, src.Note.Index)
		if err != nil {
			return err
		}
		dstPath, err := c.path(ctx, vault, pool, pool.NextIndex)
		if err != nil {
			return err
		}
		tx, err = c.orch.BuildWithdraw(ctx, &prover.WithdrawRequest{
			Vault:          vault,
			Pool:           pool,
			Mint:           pool.Mint,
			Receiver:       receiver,
			Delegator:      delegator,
			SrcLeafIndex:   src.Note.Index,
			Balance:        src.Note.Amount,
			SrcBlinding:    src.Note.Blinding,
			SrcNonce:       src.Nonce,
			DstLeafIndex:   pool.NextIndex,
			WithdrawAmount: amount,
			Signature:      sig,
			SrcNeighbors:   srcPath,
			DstNeighbors:   dstPath,
			Nonce:          nonce,
		})
		if err != nil {
			return err
		}
		return c.ledger.SubmitWithdraw(ctx, vault, tx)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// OwnedNote is a note found in one of the signer's slots.
type OwnedNote struct {
	Nonce     uint64
	Note      *note.Note
	Nullifier note.Nullifier
	Spent     bool
}

// ParseNoteWithSignature opens the note account of slot nonce with keys derived from sig.
func ParseNoteWithSignature(sig []byte, vault types.PubKey, nonce uint64, raw []byte) (*note.Note, error) {
	keys, err := note.DeriveKeys(sig, vault, nonce)
	if err != nil {
		return nil, err
	}
	return note.ParseNote(keys.ViewingKey, vault, raw)
}

// ScanNotes reads slots 0..count-1 and returns the notes found in them, ordered by slot.
// Spent notes are included only when withSpent is set.
func (c *Client) ScanNotes(ctx context.Context, vault types.PubKey, count uint64, withSpent bool) ([]*OwnedNote, error) {
	sig, err := c.signature(vault)
	if err != nil {
		return nil, err
	}
	pool, err := c.fetchPool(ctx, vault)
	if err != nil {
		return nil, err
	}
	keys, err := note.DeriveKeyRange(sig, vault, count)
	if err != nil {
		return nil, err
	}

	found := make([]*OwnedNote, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.ScanParallelism)
	for i, k := range keys {
		g.Go(func() error {
			raw, err := c.ledger.Account(gctx, k.Locator)
			if err != nil {
				return err
			}
			if len(raw) == 0 {
				return nil
			}
			n, err := note.ParseNote(k.ViewingKey, vault, raw)
			if err != nil {
				return fmt.Errorf("slot %d: %w", i, err)
			}

			nf := note.DeriveNullifier(pool.Hasher, k.SpendingKey, n.Index)
			rawNf, err := c.ledger.Account(gctx, note.NullifierAddress(vault, nf))
			if err != nil {
				return err
			}
			spent, err := note.DecodeNullifierAccount(rawNf)
			if err != nil {
				return err
			}
			found[i] = &OwnedNote{Nonce: uint64(i), Note: n, Nullifier: nf, Spent: spent}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ret := make([]*OwnedNote, 0, len(found))
	for _, on := range found {
		if on == nil || (on.Spent && !withSpent) {
			continue
		}
		ret = append(ret, on)
	}
	return ret, nil
}

// Balance sums the unspent notes in slots 0..count-1.
func (c *Client) Balance(ctx context.Context, vault types.PubKey, count uint64) (*uint256.Int, error) {
	notes, err := c.ScanNotes(ctx, vault, count, false)
	if err != nil {
		return nil, err
	}
	ret := uint256.NewInt(0)
	for _, on := range notes {
		ret.AddUint64(ret, on.Note.Amount)
	}
	return ret, nil
}

// FreeNonce returns the first slot at or after from whose note account is empty.
func (c *Client) FreeNonce(ctx context.Context, vault types.PubKey, from uint64) (uint64, error) {
	sig, err := c.signature(vault)
	if err != nil {
		return 0, err
	}
	for nonce := from; ; nonce++ {
		keys, err := note.DeriveKeys(sig, vault, nonce)
		if err != nil {
			return 0, err
		}
		raw, err := c.ledger.Account(ctx, keys.Locator)
		if err != nil {
			return 0, err
		}
		if len(raw) == 0 {
			return nonce, nil
		}
		if nonce == ^uint64(0) {
			return 0, errors.New("no free note slot")
		}
	}
}
