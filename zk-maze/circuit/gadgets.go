package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
)

// hashOf must produce the same value as utils.HasherID.Hash for the same inputs.
func hashOf(h hash.FieldHasher, vs ...frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(vs...)
	return h.Sum()
}

// rootOf folds leaf with path. bits[l] set means the node on layer l is a right child.
func rootOf(api frontend.API, h hash.FieldHasher, leaf frontend.Variable, bits []frontend.Variable, path []frontend.Variable) frontend.Variable {
	cur := leaf
	for l := range path {
		left := api.Select(bits[l], path[l], cur)
		right := api.Select(bits[l], cur, path[l])
		cur = hashOf(h, left, right)
	}
	return cur
}
