package note

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
)

const Version = 1

// Note is a shielded amount sitting at Index of a pool's tree.
type Note struct {
	Index    uint64
	Amount   uint64
	Owner    fr.Element
	Blinding fr.Element
}

// OwnerOf binds a note to the holder of spendingKey.
func OwnerOf(hasher utils.HasherID, spendingKey fr.Element) fr.Element {
	return hasher.Hash(spendingKey)
}

func New(hasher utils.HasherID, keys *Keys, index, amount uint64, blinding fr.Element) *Note {
	return &Note{
		Index:    index,
		Amount:   amount,
		Owner:    OwnerOf(hasher, keys.SpendingKey),
		Blinding: blinding,
	}
}

// Commitment is the leaf value, H(Index, Amount, Owner, Blinding).
func (n *Note) Commitment(hasher utils.HasherID) fr.Element {
	return hasher.Hash(
		utils.Uint64Element(n.Index),
		utils.Uint64Element(n.Amount),
		n.Owner,
		n.Blinding,
	)
}
