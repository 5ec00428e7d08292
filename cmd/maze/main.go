package main

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/kysee/maze/config"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/circuit"
	"github.com/kysee/maze/zk-maze/ledger"
	"github.com/kysee/maze/zk-maze/prover"
	"github.com/kysee/maze/zk-maze/solidity"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/kysee/maze/zk-maze/verifier"
	"github.com/kysee/maze/zk-maze/wallet"
	"github.com/rs/zerolog"
)

const usage = `usage: maze <command> [flags]

commands:
  setup     compile the circuits and write proving/verifying keys
  solidity  export Solidity verifiers for the saved keys
  keys      generate a wallet key
  demo      deposit and withdraw against an in-memory ledger`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := utils.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogConsole)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "setup":
		err = runSetup(cfg, log, args)
	case "solidity":
		err = runSolidity(cfg, log, args)
	case "keys":
		err = runKeys(log, args)
	case "demo":
		err = runDemo(ctx, cfg, log, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("cmd", cmd).Msg("failed")
		os.Exit(1)
	}
}

func runSetup(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	dir := fs.String("dir", cfg.KeyDir, "output directory")
	_ = fs.Parse(args)

	log.Info().Stringer("params", cfg.Params()).Msg("compiling circuits")
	keys, err := circuit.Setup(cfg.Params())
	if err != nil {
		return err
	}
	if err := circuit.SaveKeys(*dir, keys); err != nil {
		return err
	}
	log.Info().Str("dir", *dir).
		Int("deposit_constraints", keys.DepositCS.GetNbConstraints()).
		Int("withdraw_constraints", keys.WithdrawCS.GetNbConstraints()).
		Msg("keys written")
	return nil
}

func runSolidity(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("solidity", flag.ExitOnError)
	dir := fs.String("keys", cfg.KeyDir, "key directory")
	out := fs.String("out", "contracts", "output directory")
	_ = fs.Parse(args)

	keys, err := circuit.LoadKeys(*dir)
	if err != nil {
		return err
	}
	if err := solidity.ExportVerifiers(*out, keys); err != nil {
		return err
	}
	log.Info().Str("out", *out).Stringer("params", keys.Params).Msg("solidity verifiers generated")
	return nil
}

func runKeys(log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	out := fs.String("out", "wallet.key", "key file")
	_ = fs.Parse(args)

	if _, err := os.Stat(*out); err == nil {
		return fmt.Errorf("%s already exists", *out)
	}
	signer, err := wallet.NewSigner(crand.Reader)
	if err != nil {
		return err
	}
	if err := signer.Save(*out); err != nil {
		return err
	}
	log.Info().Str("file", *out).Str("address", types.EncodeAddress(signer.PublicKey())).Msg("wallet key generated")
	return nil
}

// loadOrSetup uses the saved keys when they match params, else runs a fresh setup.
func loadOrSetup(dir string, params types.CircuitParams, log zerolog.Logger) (*circuit.Keys, error) {
	keys, err := circuit.LoadKeys(dir)
	switch {
	case err == nil && keys.Params == params:
		return keys, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	log.Info().Stringer("params", params).Msg("no matching keys, running setup")
	if keys, err = circuit.Setup(params); err != nil {
		return nil, err
	}
	return keys, circuit.SaveKeys(dir, keys)
}

func runDemo(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	dir := fs.String("keys", filepath.Join(os.TempDir(), "maze-demo-keys"), "key directory")
	depth := fs.Uint("depth", 8, "tree depth")
	amount := fs.Uint64("amount", 1_000_000, "deposit amount")
	withdraw := fs.Uint64("withdraw", 300_000, "withdraw amount")
	_ = fs.Parse(args)

	if *depth == 0 || *depth > types.MaxTreeDepth {
		return fmt.Errorf("depth: want 1..%d, got %d", types.MaxTreeDepth, *depth)
	}
	params := types.CircuitParams{Depth: uint8(*depth), Hasher: cfg.Hasher}
	keys, err := loadOrSetup(*dir, params, log)
	if err != nil {
		return err
	}

	l := ledger.New(verifier.NewGnarkVerifier(keys, log), log)
	vault, mint, tokenAcct := types.PubKey{0x01}, types.PubKey{0x02}, types.PubKey{0x03}
	if _, err := l.CreatePool(vault, types.Pool{
		Enabled:      true,
		Mint:         mint,
		TokenAccount: tokenAcct,
		Depth:        params.Depth,
		Hasher:       params.Hasher,
		DelegateFee:  1_000,
	}); err != nil {
		return err
	}

	pp := prover.NewPool(prover.NewGnarkProver(keys, log), int64(cfg.MaxProofs))
	orch := prover.NewOrchestrator(pp, prover.WithLogger(log))
	wcfg := wallet.Config{MaxRetries: cfg.MaxRetries, ScanParallelism: cfg.ScanParallelism}

	alice, err := wallet.NewSigner(crand.Reader)
	if err != nil {
		return err
	}
	bob, err := wallet.NewSigner(crand.Reader)
	if err != nil {
		return err
	}
	client := wallet.NewClient(l, orch, alice, wcfg, log)
	l.Fund(alice.PublicKey(), *amount)
	log.Info().Str("wallet", client.Address()).Uint64("funded", *amount).Msg("demo wallet ready")

	dtx, err := client.Deposit(ctx, vault, *amount, 0)
	if err != nil {
		return err
	}
	if err := printProofData(solidity.DepositProofData(dtx, params.Depth)); err != nil {
		return err
	}

	notes, err := client.ScanNotes(ctx, vault, 4, false)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		return errors.New("deposited note not found")
	}
	nonce, err := client.FreeNonce(ctx, vault, 0)
	if err != nil {
		return err
	}
	if _, err := client.Withdraw(ctx, vault, notes[0], *withdraw, bob.PublicKey(), types.PubKey{}, nonce); err != nil {
		return err
	}

	bal, err := client.Balance(ctx, vault, 4)
	if err != nil {
		return err
	}
	log.Info().
		Str("shielded", bal.Dec()).
		Str("receiver", l.TokenBalance(bob.PublicKey()).Dec()).
		Str("vault", l.TokenBalance(tokenAcct).Dec()).
		Msg("demo finished")
	return nil
}

func printProofData(data *solidity.ProofData, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
