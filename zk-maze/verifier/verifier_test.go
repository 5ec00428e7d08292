package verifier

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/circuit"
	"github.com/kysee/maze/zk-maze/merkle"
	"github.com/kysee/maze/zk-maze/note"
	"github.com/kysee/maze/zk-maze/prover"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testDepth = 4

var (
	keys      *circuit.Keys
	testVault = types.PubKey{0x51}
	testMint  = types.PubKey{0x52}
	testSig   = []byte("verifier test signature")
)

func TestMain(m *testing.M) {
	var err error
	keys, err = circuit.Setup(types.CircuitParams{Depth: testDepth, Hasher: utils.HasherMiMC})
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestProveAndVerify(t *testing.T) {
	log := zerolog.Nop()
	o := prover.NewOrchestrator(prover.NewGnarkProver(keys, log))
	v := NewGnarkVerifier(keys, log)
	require.Equal(t, keys.Params, v.Params())

	tree, err := merkle.NewTree(utils.HasherMiMC, testDepth)
	require.NoError(t, err)
	pool := &types.Pool{Initialized: true, Enabled: true, Mint: testMint, Depth: testDepth, Hasher: utils.HasherMiMC, Root: tree.Root()}

	//
	// deposit
	path, err := tree.Path(0)
	require.NoError(t, err)
	dtx, err := o.BuildDeposit(context.Background(), &prover.DepositRequest{
		Vault:     testVault,
		Pool:      pool,
		Mint:      testMint,
		LeafIndex: 0,
		Amount:    1_000_000,
		Neighbors: path,
		Signature: testSig,
		Nonce:     0,
	})
	require.NoError(t, err)
	require.NoError(t, v.VerifyDeposit(dtx.Proof, &dtx.Signals))

	forged := dtx.Signals
	forged.Amount = 2_000_000
	require.ErrorIs(t, v.VerifyDeposit(dtx.Proof, &forged), ErrInvalidProof)
	require.ErrorIs(t, v.VerifyDeposit([]byte{1, 2, 3}, &dtx.Signals), ErrInvalidProof)

	_, _, err = tree.Append(dtx.Signals.Commitment)
	require.NoError(t, err)
	pool.Root, pool.NextIndex = tree.Root(), tree.NextIndex()

	//
	// withdraw
	depKeys, err := note.DeriveKeys(testSig, testVault, 0)
	require.NoError(t, err)
	src, err := note.ParseNote(depKeys.ViewingKey, testVault, dtx.Note)
	require.NoError(t, err)

	srcPath, err := tree.Path(0)
	require.NoError(t, err)
	dstPath, err := tree.Path(1)
	require.NoError(t, err)
	wtx, err := o.BuildWithdraw(context.Background(), &prover.WithdrawRequest{
		Vault:          testVault,
		Pool:           pool,
		Mint:           testMint,
		Receiver:       types.PubKey{0x61},
		Delegator:      types.PubKey{0x62},
		SrcLeafIndex:   0,
		Balance:        src.Amount,
		SrcBlinding:    src.Blinding,
		SrcNonce:       0,
		DstLeafIndex:   1,
		WithdrawAmount: 300_000,
		Signature:      testSig,
		SrcNeighbors:   srcPath,
		DstNeighbors:   dstPath,
		Nonce:          1,
	})
	require.NoError(t, err)
	require.NoError(t, v.VerifyWithdraw(wtx.Proof, &wtx.Signals))

	// receiver and delegator cannot be swapped after proving
	stolen := wtx.Signals
	stolen.Receiver = types.PubKey{0x66}
	require.ErrorIs(t, v.VerifyWithdraw(wtx.Proof, &stolen), ErrInvalidProof)

	// nor replaced by a key that is congruent modulo the field
	aliased := wtx.Signals
	aliased.Receiver = keyAlias(t, wtx.Signals.Receiver)
	require.ErrorIs(t, v.VerifyWithdraw(wtx.Proof, &aliased), ErrInvalidProof)
	aliased = wtx.Signals
	aliased.Delegator = keyAlias(t, wtx.Signals.Delegator)
	require.ErrorIs(t, v.VerifyWithdraw(wtx.Proof, &aliased), ErrInvalidProof)
	aliased.Receiver = aliased.Delegator
	require.ErrorIs(t, v.VerifyWithdraw(wtx.Proof, &aliased), ErrInvalidProof)

	more := wtx.Signals
	more.WithdrawAmount = 400_000
	require.ErrorIs(t, v.VerifyWithdraw(wtx.Proof, &more), ErrInvalidProof)

	// a deposit proof is not a withdraw proof
	require.ErrorIs(t, v.VerifyWithdraw(dtx.Proof, &wtx.Signals), ErrInvalidProof)
}

// keyAlias returns pk + r as a 32-byte key.
func keyAlias(t *testing.T, pk types.PubKey) types.PubKey {
	v := new(big.Int).SetBytes(pk[:])
	v.Add(v, fr.Modulus())
	require.LessOrEqual(t, v.BitLen(), 8*types.PubKeySize)

	var ret types.PubKey
	v.FillBytes(ret[:])
	require.NotEqual(t, pk, ret)
	return ret
}

func TestProveCancelled(t *testing.T) {
	p := prover.NewGnarkProver(keys, zerolog.Nop())
	tree, err := merkle.NewTree(utils.HasherMiMC, testDepth)
	require.NoError(t, err)
	path, err := tree.Path(0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProveDeposit(ctx, &types.DepositWitness{Neighbors: path})
	require.ErrorIs(t, err, context.Canceled)

	_, err = p.ProveDeposit(context.Background(), &types.DepositWitness{Neighbors: path[:1]})
	require.ErrorIs(t, err, types.ErrPathLengthMismatch)
}
