package types

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrMalformedAccount    = fmt.Errorf("malformed account: %w", ErrMalformedInput)
	ErrMalformedNote       = fmt.Errorf("malformed note: %w", ErrMalformedInput)
	ErrIndexOutOfRange     = errors.New("leaf index out of range")
	ErrPathLengthMismatch  = errors.New("merkle path length mismatch")
	ErrStaleMerkleRoot     = errors.New("stale merkle root")
	ErrStaleIndex          = errors.New("stale leaf index")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDecryptionFailure   = errors.New("note decryption failure")
	ErrProverFailure       = errors.New("prover failure")
	ErrDuplicateNullifier  = errors.New("nullifier already used")
	ErrCircuitMismatch     = errors.New("circuit parameters do not match pool")
	ErrPoolDisabled        = errors.New("pool is disabled")
)

// FieldError reports which input failed and what was expected.
type FieldError struct {
	Err      error
	Field    string
	Expected any
	Actual   any
}

func (e *FieldError) Error() string {
	if e.Expected == nil && e.Actual == nil {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s: expected(%v), got(%v)", e.Err, e.Field, e.Expected, e.Actual)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller should refetch pool state and rebuild.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleMerkleRoot) || errors.Is(err, ErrStaleIndex)
}
