package note

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/crypto"
	"github.com/kysee/maze/zk-maze/types"
)

// Nullifier marks a spent note. It is revealed once, when the note is withdrawn.
type Nullifier [fr.Bytes]byte

// DeriveNullifier computes H(leafIndex, spendingKey). Only the owner can compute it,
// and it is the same every time, so a second spend of the note is detectable.
func DeriveNullifier(hasher utils.HasherID, spendingKey fr.Element, leafIndex uint64) Nullifier {
	e := hasher.Hash(utils.Uint64Element(leafIndex), spendingKey)
	return Nullifier(e.Bytes())
}

func (nf Nullifier) Element() fr.Element {
	var e fr.Element
	e.SetBytes(nf[:])
	return e
}

// LedgerKey is the compressed curve point (nf mod order)*G.
func (nf Nullifier) LedgerKey() types.PubKey {
	e := nf.Element()
	return crypto.ScalarPoint(utils.ElementBig(e))
}

// NullifierAddress is the ledger key of the account recording that nf was used in vault.
func NullifierAddress(vault types.PubKey, nf Nullifier) types.PubKey {
	key := nf.LedgerKey()
	return crypto.DeriveAddress("maze/nullifier", vault[:], key[:])
}

// NullifierAccountLen: initialized(1) used(1) owner(32)
const NullifierAccountLen = 1 + 1 + types.PubKeySize

func EncodeNullifierAccount(owner types.PubKey) []byte {
	raw := make([]byte, NullifierAccountLen)
	raw[0], raw[1] = 1, 1
	copy(raw[2:], owner[:])
	return raw
}

// DecodeNullifierAccount reports whether the nullifier was used. A missing account is unused.
func DecodeNullifierAccount(raw []byte) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	if len(raw) != NullifierAccountLen {
		return false, &types.FieldError{Err: types.ErrMalformedAccount, Field: "nullifier.length", Expected: NullifierAccountLen, Actual: len(raw)}
	}
	if raw[0] > 1 || raw[1] > 1 {
		return false, &types.FieldError{Err: types.ErrMalformedAccount, Field: "nullifier.flags", Expected: "0 or 1", Actual: raw[:2]}
	}
	return raw[0] == 1 && raw[1] == 1, nil
}
