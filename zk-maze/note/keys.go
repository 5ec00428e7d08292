package note

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/zk-maze/crypto"
	"github.com/kysee/maze/zk-maze/types"
)

const (
	tagSpend   = "maze/spending-key"
	tagView    = "maze/viewing-key"
	tagLocator = "maze/note-locator"
)

// Keys is the key material of one note slot. It is recomputed from the wallet signature
// whenever it is needed and never stored.
type Keys struct {
	// SpendingKey authorizes spending and fixes the note owner, Owner = H(SpendingKey).
	SpendingKey fr.Element
	// ViewingKey encrypts the note account.
	ViewingKey [32]byte
	// Locator is the ledger key of the note account.
	Locator types.PubKey
}

// DeriveKeys derives the keys of note slot noteIndex in vault from a wallet signature.
// Each index yields an unrelated key set, so notes of one wallet cannot be linked on chain.
func DeriveKeys(sig []byte, vault types.PubKey, noteIndex uint64) (*Keys, error) {
	if len(sig) == 0 {
		return nil, &types.FieldError{Err: types.ErrMalformedInput, Field: "signature", Expected: "non-empty"}
	}
	seed := crypto.Seed(sig)
	return deriveKeys(seed[:], vault, noteIndex)
}

// DeriveKeyRange derives the keys of slots 0..count-1.
func DeriveKeyRange(sig []byte, vault types.PubKey, count uint64) ([]*Keys, error) {
	if len(sig) == 0 {
		return nil, &types.FieldError{Err: types.ErrMalformedInput, Field: "signature", Expected: "non-empty"}
	}
	seed := crypto.Seed(sig)
	ret := make([]*Keys, 0, count)
	for i := uint64(0); i < count; i++ {
		k, err := deriveKeys(seed[:], vault, i)
		if err != nil {
			return nil, err
		}
		ret = append(ret, k)
	}
	return ret, nil
}

func deriveKeys(seed []byte, vault types.PubKey, noteIndex uint64) (*Keys, error) {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], noteIndex)

	sk, err := deriveSpendingKey(seed, vault, idx[:])
	if err != nil {
		return nil, err
	}
	vk, err := crypto.PRF(seed, tagView, vault[:], idx[:])
	if err != nil {
		return nil, err
	}
	loc, err := crypto.PRF(seed, tagLocator, vault[:], idx[:])
	if err != nil {
		return nil, err
	}
	return &Keys{SpendingKey: sk, ViewingKey: vk, Locator: loc}, nil
}

// deriveSpendingKey expands the PRF output to 64 bytes before reducing it into the field
// so the key is close to uniform. Zero is skipped.
func deriveSpendingKey(seed []byte, vault types.PubKey, idx []byte) (fr.Element, error) {
	var sk fr.Element
	for ctr := byte(0); ; ctr++ {
		prf, err := crypto.PRF(seed, tagSpend, vault[:], idx, []byte{ctr})
		if err != nil {
			return sk, err
		}
		wide, err := crypto.ExpandSeed(prf[:], 64)
		if err != nil {
			return sk, err
		}
		sk.SetBytes(wide)
		if !sk.IsZero() {
			return sk, nil
		}
		if ctr == 255 {
			return sk, fmt.Errorf("%w: cannot derive a non-zero spending key", types.ErrMalformedInput)
		}
	}
}
