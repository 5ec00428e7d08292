package merkle

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/types"
)

// EmptyLeaf is the value of every leaf that has not been written yet.
var EmptyLeaf fr.Element

// Location addresses a node: Layer 0 holds the leaves, Index counts from the left.
type Location struct {
	Layer uint8
	Index uint64
}

func (l Location) String() string {
	return fmt.Sprintf("%d/%d", l.Layer, l.Index)
}

// DefaultNodes returns the value of an all-empty subtree for every layer 0..depth,
// so d[depth] is the root of an empty tree.
func DefaultNodes(hasher utils.HasherID, depth uint8) []fr.Element {
	ret := make([]fr.Element, int(depth)+1)
	ret[0] = EmptyLeaf
	for i := 0; i < int(depth); i++ {
		ret[i+1] = hasher.HashTwo(ret[i], ret[i])
	}
	return ret
}

func checkIndex(depth uint8, leafIndex uint64) error {
	if depth == 0 || depth > types.MaxTreeDepth {
		return &types.FieldError{Err: types.ErrMalformedInput, Field: "depth", Expected: fmt.Sprintf("1..%d", types.MaxTreeDepth), Actual: depth}
	}
	if leafIndex >= uint64(1)<<depth {
		return &types.FieldError{Err: types.ErrIndexOutOfRange, Field: "leaf_index", Expected: fmt.Sprintf("< %d", uint64(1)<<depth), Actual: leafIndex}
	}
	return nil
}

// NeighborLocations lists the sibling of the leaf's ancestor on every layer, leaf layer first.
func NeighborLocations(depth uint8, leafIndex uint64) ([]Location, error) {
	if err := checkIndex(depth, leafIndex); err != nil {
		return nil, err
	}
	ret := make([]Location, depth)
	for l := uint8(0); l < depth; l++ {
		ret[l] = Location{Layer: l, Index: (leafIndex >> l) ^ 1}
	}
	return ret, nil
}

// PathLocations lists the leaf and every ancestor below the root, leaf layer first.
func PathLocations(depth uint8, leafIndex uint64) ([]Location, error) {
	if err := checkIndex(depth, leafIndex); err != nil {
		return nil, err
	}
	ret := make([]Location, depth)
	for l := uint8(0); l < depth; l++ {
		ret[l] = Location{Layer: l, Index: leafIndex >> l}
	}
	return ret, nil
}

// ComputeRoot folds leaf with its path. If bit l of leafIndex is set the node on layer l
// is a right child. updated[l] is the node on layer l along the way; updated[0] is the leaf.
func ComputeRoot(hasher utils.HasherID, leaf fr.Element, leafIndex uint64, path types.MerklePath, depth uint8) (root fr.Element, updated []fr.Element, err error) {
	if err = checkIndex(depth, leafIndex); err != nil {
		return
	}
	if len(path) != int(depth) {
		err = &types.FieldError{Err: types.ErrPathLengthMismatch, Field: "path", Expected: depth, Actual: len(path)}
		return
	}

	updated = make([]fr.Element, depth)
	cur := leaf
	for l := 0; l < int(depth); l++ {
		updated[l] = cur
		if (leafIndex>>l)&1 == 1 {
			cur = hasher.HashTwo(path[l], cur)
		} else {
			cur = hasher.HashTwo(cur, path[l])
		}
	}
	return cur, updated, nil
}

// VerifyPath returns ErrStaleMerkleRoot when leaf and path do not reproduce root.
func VerifyPath(hasher utils.HasherID, leaf fr.Element, leafIndex uint64, path types.MerklePath, depth uint8, root fr.Element) error {
	computed, _, err := ComputeRoot(hasher, leaf, leafIndex, path, depth)
	if err != nil {
		return err
	}
	if !computed.Equal(&root) {
		return &types.FieldError{Err: types.ErrStaleMerkleRoot, Field: "root", Expected: root.String(), Actual: computed.String()}
	}
	return nil
}
