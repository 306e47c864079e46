package merkle

import (
	"math/big"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// Proof is an inclusion proof for one leaf: the sibling value at each tree
// level plus a path index per level (0 = the leaf's side is the left child,
// 1 = right).
type Proof struct {
	LeafIndex   int        `json:"leaf_index" yaml:"leaf_index"`
	Siblings    []*big.Int `json:"siblings" yaml:"siblings"`
	PathIndices []int      `json:"path_indices" yaml:"path_indices"`
}

// Proof returns the inclusion proof for a committed entity.
func (t *Tree) Proof(entityID string) (*Proof, error) {
	leafIndex, ok := t.index[entityID]
	if !ok {
		return nil, errors.NewNotFoundError("leaf", entityID)
	}

	proof := &Proof{
		LeafIndex:   leafIndex,
		Siblings:    make([]*big.Int, t.depth),
		PathIndices: make([]int, t.depth),
	}

	pos := leafIndex
	for lvl := 0; lvl < t.depth; lvl++ {
		sibling := pos ^ 1
		proof.Siblings[lvl] = new(big.Int).Set(t.levels[lvl][sibling])
		proof.PathIndices[lvl] = pos & 1
		pos >>= 1
	}

	return proof, nil
}

// VerifyProof recomputes the path from leaf to root, respecting the path
// indices to order hash arguments, and checks equality with root.
func VerifyProof(h Hasher, proof *Proof, leaf, root *big.Int) bool {
	if proof == nil || leaf == nil || root == nil {
		return false
	}
	if len(proof.Siblings) != len(proof.PathIndices) {
		return false
	}

	current := new(big.Int).Set(leaf)
	for lvl, sibling := range proof.Siblings {
		if sibling == nil {
			return false
		}
		switch proof.PathIndices[lvl] {
		case 0:
			current = h.HashPair(current, sibling)
		case 1:
			current = h.HashPair(sibling, current)
		default:
			return false
		}
	}

	return current.Cmp(root) == 0
}
