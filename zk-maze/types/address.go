package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const PubKeySize = 32

// PubKey identifies a ledger account: vaults, mints, owners and derived account keys.
type PubKey [PubKeySize]byte

func (pk PubKey) String() string {
	return base58.Encode(pk[:])
}

func (pk PubKey) Bytes() []byte {
	ret := make([]byte, PubKeySize)
	copy(ret, pk[:])
	return ret
}

func (pk PubKey) IsZero() bool {
	return pk == PubKey{}
}

func PubKeyFromBytes(bz []byte) (PubKey, error) {
	var pk PubKey
	if len(bz) != PubKeySize {
		return pk, &FieldError{Err: ErrMalformedInput, Field: "pubkey", Expected: PubKeySize, Actual: len(bz)}
	}
	copy(pk[:], bz)
	return pk, nil
}

func ParsePubKey(s string) (PubKey, error) {
	bz := base58.Decode(strings.TrimSpace(s))
	if len(bz) == 0 {
		return PubKey{}, fmt.Errorf("%w: invalid base58 pubkey %q", ErrMalformedInput, s)
	}
	return PubKeyFromBytes(bz)
}

const addrVer = 0x01

// EncodeAddress renders a wallet address with a checksum, the form users copy around.
func EncodeAddress(pk PubKey) string {
	return "mz" + base58.CheckEncode(pk[:], addrVer)
}

func DecodeAddress(addr string) (PubKey, error) {
	if !strings.HasPrefix(addr, "mz") {
		return PubKey{}, fmt.Errorf("%w: wrong address prefix", ErrMalformedInput)
	}
	bz, ver, err := base58.CheckDecode(addr[2:])
	if err != nil {
		return PubKey{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if ver != addrVer {
		return PubKey{}, fmt.Errorf("%w: wrong address version: expected(%d), got(%d)", ErrMalformedInput, addrVer, ver)
	}
	return PubKeyFromBytes(bz)
}
