package merkle

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/crypto"
	"github.com/kysee/maze/zk-maze/types"
)

// NodeAccountLen: initialized(1) hash(32)
const NodeAccountLen = 1 + fr.Bytes

// NodeAddress is the ledger key of the account holding the node at (layer, index) of vault's tree.
func NodeAddress(vault types.PubKey, layer uint8, index uint64) types.PubKey {
	var bz [8]byte
	binary.LittleEndian.PutUint64(bz[:], index)
	return crypto.DeriveAddress("maze/node", vault[:], []byte{layer}, bz[:])
}

func EncodeNode(node fr.Element) []byte {
	raw := make([]byte, NodeAccountLen)
	raw[0] = 1
	bz := node.Bytes()
	copy(raw[1:], bz[:])
	return raw
}

// DecodeNode parses a node account. An absent (empty) account has never been written
// and holds the default node of its layer, reported by ok == false.
func DecodeNode(raw []byte) (node fr.Element, ok bool, err error) {
	if len(raw) == 0 {
		return node, false, nil
	}
	if len(raw) != NodeAccountLen {
		return node, false, &types.FieldError{Err: types.ErrMalformedAccount, Field: "node.length", Expected: NodeAccountLen, Actual: len(raw)}
	}
	switch raw[0] {
	case 0:
		return node, false, nil
	case 1:
	default:
		return node, false, &types.FieldError{Err: types.ErrMalformedAccount, Field: "node.initialized", Expected: "0 or 1", Actual: raw[0]}
	}
	if node, err = utils.CanonicalElement(raw[1:]); err != nil {
		return node, false, &types.FieldError{Err: types.ErrMalformedAccount, Field: "node.hash", Expected: "canonical field element", Actual: err}
	}
	return node, true, nil
}
