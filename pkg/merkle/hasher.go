// Package merkle builds the fixed-capacity commitment tree over the
// canonical district list and produces inclusion proofs consumable by a
// zero-knowledge circuit.
package merkle

import (
	"crypto/sha256"
	"math/big"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
)

// Hasher is the supplied ZK-friendly hash primitive over a fixed prime
// field. Its internal construction is out of scope here; it must be
// deterministic and non-commutative, which SelfTest enforces before any
// tree is built.
type Hasher interface {
	// HashPair combines two field elements. Argument order is significant.
	HashPair(left, right *big.Int) *big.Int

	// HashSingle hashes one field element.
	HashSingle(value *big.Int) *big.Int

	// Modulus returns the prime field modulus.
	Modulus() *big.Int
}

// SelfTest verifies the primitive's determinism and non-commutativity
// against a handful of vectors. Merkle security depends on sibling order
// being meaningful: a commutative substitute would let an attacker swap
// sibling values undetected, so a failing primitive must never build a tree.
func SelfTest(h Hasher) error {
	vectors := [][2]int64{{1, 2}, {3, 4}, {0, 1}, {12345, 67890}}

	for _, v := range vectors {
		a, b := big.NewInt(v[0]), big.NewInt(v[1])

		ab1 := h.HashPair(a, b)
		ab2 := h.HashPair(a, b)
		if ab1.Cmp(ab2) != 0 {
			return errors.NewMerkleIntegrityError("determinism",
				"hashPair produced different outputs for identical inputs")
		}

		ba := h.HashPair(b, a)
		if ab1.Cmp(ba) == 0 {
			return errors.NewMerkleIntegrityError("non-commutativity",
				"hashPair(a,b) == hashPair(b,a): sibling order would be meaningless")
		}

		s1, s2 := h.HashSingle(a), h.HashSingle(a)
		if s1.Cmp(s2) != 0 {
			return errors.NewMerkleIntegrityError("determinism",
				"hashSingle produced different outputs for identical inputs")
		}
	}

	return nil
}

// LeafValue computes the field element committing one district:
// hash(entityId, boundaryType, geometryCommitment), realized as
// HashPair(HashPair(fe(entityId), fe(boundaryType)), fe(commitment)).
// This combination is part of the commitment's meaning and must match the
// consuming circuit.
func LeafValue(h Hasher, d *boundaries.District) *big.Int {
	id := fieldElement(h, []byte(d.EntityID))
	typ := fieldElement(h, []byte(d.BoundaryType))
	commit := fieldElement(h, d.GeometryCommitment[:])
	return h.HashPair(h.HashPair(id, typ), commit)
}

// SentinelLeaf is the fixed padding leaf: hashSingle(0).
func SentinelLeaf(h Hasher) *big.Int {
	return h.HashSingle(big.NewInt(0))
}

// fieldElement maps arbitrary bytes into the hasher's prime field by
// reducing the SHA-256 digest modulo the field modulus.
func fieldElement(h Hasher, data []byte) *big.Int {
	digest := sha256.Sum256(data)
	v := new(big.Int).SetBytes(digest[:])
	return v.Mod(v, h.Modulus())
}
