package merkle

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/types"
)

// Tree is a fixed-depth append-only tree whose unwritten leaves are EmptyLeaf.
// Only written nodes are stored. It is not safe for concurrent use.
type Tree struct {
	hasher   utils.HasherID
	depth    uint8
	defaults []fr.Element
	nodes    map[Location]fr.Element
	next     uint64
	root     fr.Element
}

func NewTree(hasher utils.HasherID, depth uint8) (*Tree, error) {
	if !hasher.Valid() {
		return nil, fmt.Errorf("%w: unknown hasher %v", types.ErrMalformedInput, hasher)
	}
	if depth == 0 || depth > types.MaxTreeDepth {
		return nil, &types.FieldError{Err: types.ErrMalformedInput, Field: "depth", Expected: fmt.Sprintf("1..%d", types.MaxTreeDepth), Actual: depth}
	}
	defaults := DefaultNodes(hasher, depth)
	return &Tree{
		hasher:   hasher,
		depth:    depth,
		defaults: defaults,
		nodes:    make(map[Location]fr.Element),
		root:     defaults[depth],
	}, nil
}

func (t *Tree) Depth() uint8 { return t.depth }
func (t *Tree) NextIndex() uint64 { return t.next }
func (t *Tree) Root() fr.Element { return t.root }

// Node returns the node at loc, falling back to the default of its layer.
func (t *Tree) Node(loc Location) fr.Element {
	if n, ok := t.nodes[loc]; ok {
		return n
	}
	return t.defaults[loc.Layer]
}

// Path returns the neighbor path of leafIndex against the current root.
func (t *Tree) Path(leafIndex uint64) (types.MerklePath, error) {
	locs, err := NeighborLocations(t.depth, leafIndex)
	if err != nil {
		return nil, err
	}
	path := make(types.MerklePath, len(locs))
	for i, loc := range locs {
		path[i] = t.Node(loc)
	}
	return path, nil
}

// Append writes leaf at NextIndex and returns its index and the nodes that changed, leaf first.
func (t *Tree) Append(leaf fr.Element) (uint64, []fr.Element, error) {
	idx := t.next
	if idx >= uint64(1)<<t.depth {
		return 0, nil, &types.FieldError{Err: types.ErrIndexOutOfRange, Field: "leaf_index", Expected: fmt.Sprintf("< %d", uint64(1)<<t.depth), Actual: idx}
	}
	path, err := t.Path(idx)
	if err != nil {
		return 0, nil, err
	}
	root, updated, err := ComputeRoot(t.hasher, leaf, idx, path, t.depth)
	if err != nil {
		return 0, nil, err
	}
	for l, n := range updated {
		t.nodes[Location{Layer: uint8(l), Index: idx >> l}] = n
	}
	t.root = root
	t.next++
	return idx, updated, nil
}

// Clone returns an independent copy, used to stage appends that may be rolled back.
func (t *Tree) Clone() *Tree {
	nodes := make(map[Location]fr.Element, len(t.nodes))
	for k, v := range t.nodes {
		nodes[k] = v
	}
	c := *t
	c.nodes = nodes
	return &c
}
