package circuit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/types"
)

// Keys holds the compiled circuits and PLONK keys for one tree shape.
type Keys struct {
	Params types.CircuitParams

	DepositCS  constraint.ConstraintSystem
	DepositPK  plonk.ProvingKey
	DepositVK  plonk.VerifyingKey
	WithdrawCS constraint.ConstraintSystem
	WithdrawPK plonk.ProvingKey
	WithdrawVK plonk.VerifyingKey
}

// CheckParams reports whether circuits can be built for params: MiMC only, depth 1..MaxTreeDepth.
func CheckParams(params types.CircuitParams) error {
	if params.Hasher != utils.HasherMiMC {
		return &types.FieldError{Err: types.ErrCircuitMismatch, Field: "hasher", Expected: utils.HasherMiMC, Actual: params.Hasher}
	}
	if params.Depth == 0 || params.Depth > types.MaxTreeDepth {
		return &types.FieldError{Err: types.ErrCircuitMismatch, Field: "depth", Expected: fmt.Sprintf("1..%d", types.MaxTreeDepth), Actual: params.Depth}
	}
	return nil
}

func compile(c frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, c, frontend.IgnoreUnconstrainedInputs())
}

// Compile builds both constraint systems without running the setup.
func Compile(params types.CircuitParams) (deposit, withdraw constraint.ConstraintSystem, err error) {
	if err = CheckParams(params); err != nil {
		return
	}
	if deposit, err = compile(NewDepositCircuit(params.Depth)); err != nil {
		return nil, nil, fmt.Errorf("compile deposit circuit: %w", err)
	}
	if withdraw, err = compile(NewWithdrawCircuit(params.Depth)); err != nil {
		return nil, nil, fmt.Errorf("compile withdraw circuit: %w", err)
	}
	return
}

// Setup compiles both circuits and generates their keys.
func Setup(params types.CircuitParams) (*Keys, error) {
	dcs, wcs, err := Compile(params)
	if err != nil {
		return nil, err
	}
	keys := &Keys{Params: params, DepositCS: dcs, WithdrawCS: wcs}

	// todo: Use safe SRS generation
	if keys.DepositPK, keys.DepositVK, err = setup(dcs); err != nil {
		return nil, fmt.Errorf("deposit setup: %w", err)
	}
	if keys.WithdrawPK, keys.WithdrawVK, err = setup(wcs); err != nil {
		return nil, fmt.Errorf("withdraw setup: %w", err)
	}
	return keys, nil
}

func setup(ccs constraint.ConstraintSystem) (plonk.ProvingKey, plonk.VerifyingKey, error) {
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, nil, err
	}
	return plonk.Setup(ccs, srs, srsLagrange)
}

type writerTo interface {
	WriteTo(w io.Writer) (int64, error)
}

type readerFrom interface {
	ReadFrom(r io.Reader) (int64, error)
}

const paramsFile = "params"

func keyFiles(k *Keys) map[string]any {
	return map[string]any{
		"deposit.ccs":  k.DepositCS,
		"deposit.pk":   k.DepositPK,
		"deposit.vk":   k.DepositVK,
		"withdraw.ccs": k.WithdrawCS,
		"withdraw.pk":  k.WithdrawPK,
		"withdraw.vk":  k.WithdrawVK,
	}
}

// SaveKeys writes the circuits and keys under dir.
func SaveKeys(dir string, k *Keys) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, paramsFile), []byte{k.Params.Depth, uint8(k.Params.Hasher)}, 0o644); err != nil {
		return err
	}
	for name, obj := range keyFiles(k) {
		if err := writeFile(filepath.Join(dir, name), obj.(writerTo)); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return nil
}

func writeFile(path string, obj writerTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := obj.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadKeys reads what SaveKeys wrote.
func LoadKeys(dir string) (*Keys, error) {
	bz, err := os.ReadFile(filepath.Join(dir, paramsFile))
	if err != nil {
		return nil, err
	}
	if len(bz) != 2 {
		return nil, fmt.Errorf("%w: params file", types.ErrMalformedInput)
	}
	params := types.CircuitParams{Depth: bz[0], Hasher: utils.HasherID(bz[1])}
	if err := CheckParams(params); err != nil {
		return nil, err
	}

	k := &Keys{
		Params:     params,
		DepositCS:  plonk.NewCS(ecc.BN254),
		DepositPK:  plonk.NewProvingKey(ecc.BN254),
		DepositVK:  plonk.NewVerifyingKey(ecc.BN254),
		WithdrawCS: plonk.NewCS(ecc.BN254),
		WithdrawPK: plonk.NewProvingKey(ecc.BN254),
		WithdrawVK: plonk.NewVerifyingKey(ecc.BN254),
	}
	for name, obj := range keyFiles(k) {
		if err := readFile(filepath.Join(dir, name), obj.(readerFrom)); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	return k, nil
}

func readFile(path string, obj readerFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = obj.ReadFrom(bufio.NewReader(f))
	return err
}
