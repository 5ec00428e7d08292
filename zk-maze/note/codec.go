package note

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/crypto"
	"github.com/kysee/maze/zk-maze/types"
)

// header: version(1) leaf_index(8) aead_nonce(12)
const headerLen = 1 + 8 + crypto.NoteNonceSize

// plaintext is the RLP payload sealed inside a note account.
type plaintext struct {
	Version  uint8
	Index    uint64
	Amount   uint64
	Owner    []byte
	Blinding []byte
}

// NewBlinding draws a uniformly distributed field element from r.
func NewBlinding(r io.Reader) (fr.Element, error) {
	var e fr.Element
	wide := make([]byte, 64)
	if _, err := io.ReadFull(r, wide); err != nil {
		return e, fmt.Errorf("read randomness: %w", err)
	}
	e.SetBytes(wide)
	return e, nil
}

func aad(vault types.PubKey, index uint64) []byte {
	ret := make([]byte, types.PubKeySize+8)
	copy(ret, vault[:])
	binary.LittleEndian.PutUint64(ret[types.PubKeySize:], index)
	return ret
}

// EncodeNote seals n for the holder of viewingKey. The ciphertext is bound to vault and
// n.Index, so it cannot be replayed into another pool or slot.
func EncodeNote(viewingKey [32]byte, vault types.PubKey, n *Note, r io.Reader) ([]byte, error) {
	owner, blinding := n.Owner.Bytes(), n.Blinding.Bytes()
	pt, err := rlp.EncodeToBytes(&plaintext{
		Version:  Version,
		Index:    n.Index,
		Amount:   n.Amount,
		Owner:    owner[:],
		Blinding: blinding[:],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to RLP encode note: %w", err)
	}

	raw := make([]byte, headerLen, headerLen+len(pt)+crypto.NoteTagSize)
	raw[0] = Version
	binary.LittleEndian.PutUint64(raw[1:9], n.Index)
	nonce := raw[9:headerLen]
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	ct, err := crypto.SealNote(viewingKey[:], nonce, pt, aad(vault, n.Index))
	if err != nil {
		return nil, err
	}
	return append(raw, ct...), nil
}

// ParseNote opens a note account. ErrDecryptionFailure means the blob is not addressed to
// viewingKey in vault; ErrMalformedNote means it is corrupt.
func ParseNote(viewingKey [32]byte, vault types.PubKey, raw []byte) (*Note, error) {
	if len(raw) < headerLen+crypto.NoteTagSize {
		return nil, &types.FieldError{Err: types.ErrMalformedNote, Field: "note.length", Expected: fmt.Sprintf(">= %d", headerLen+crypto.NoteTagSize), Actual: len(raw)}
	}
	if raw[0] != Version {
		return nil, &types.FieldError{Err: types.ErrMalformedNote, Field: "note.version", Expected: Version, Actual: raw[0]}
	}
	index := binary.LittleEndian.Uint64(raw[1:9])
	nonce := raw[9:headerLen]

	pt, err := crypto.OpenNote(viewingKey[:], nonce, raw[headerLen:], aad(vault, index))
	if errors.Is(err, crypto.ErrOpen) {
		return nil, types.ErrDecryptionFailure
	} else if err != nil {
		return nil, err
	}

	var dec plaintext
	if err := rlp.DecodeBytes(pt, &dec); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedNote, err)
	}
	if dec.Version != Version {
		return nil, &types.FieldError{Err: types.ErrMalformedNote, Field: "note.plaintext.version", Expected: Version, Actual: dec.Version}
	}
	if dec.Index != index {
		return nil, &types.FieldError{Err: types.ErrMalformedNote, Field: "note.plaintext.index", Expected: index, Actual: dec.Index}
	}

	n := &Note{Index: dec.Index, Amount: dec.Amount}
	if n.Owner, err = utils.CanonicalElement(dec.Owner); err != nil {
		return nil, &types.FieldError{Err: types.ErrMalformedNote, Field: "note.owner", Actual: err}
	}
	if n.Blinding, err = utils.CanonicalElement(dec.Blinding); err != nil {
		return nil, &types.FieldError{Err: types.ErrMalformedNote, Field: "note.blinding", Actual: err}
	}
	return n, nil
}
