package merkle_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgov/cartograph/pkg/errors"
	"github.com/atlasgov/cartograph/pkg/merkle"
)

func TestProofSoundness(t *testing.T) {
	districts := makeDistricts(37)
	tree, err := merkle.Build(districts, 64, testHasher{})
	require.NoError(t, err)
	root := tree.Root()

	// Every committed leaf verifies against the root.
	for _, d := range districts {
		proof, err := tree.Proof(d.EntityID)
		require.NoError(t, err, "entity %s", d.EntityID)
		require.Len(t, proof.Siblings, tree.Depth())
		require.Len(t, proof.PathIndices, tree.Depth())

		leaf, err := tree.Leaf(d.EntityID)
		require.NoError(t, err)
		assert.True(t, merkle.VerifyProof(testHasher{}, proof, leaf, root), "entity %s", d.EntityID)
	}
}

func TestTamperedProofFails(t *testing.T) {
	tree, err := merkle.Build(makeDistricts(8), 16, testHasher{})
	require.NoError(t, err)
	root := tree.Root()

	proof, err := tree.Proof("us-wa-0003")
	require.NoError(t, err)
	leaf, err := tree.Leaf("us-wa-0003")
	require.NoError(t, err)
	require.True(t, merkle.VerifyProof(testHasher{}, proof, leaf, root))

	t.Run("tampered sibling", func(t *testing.T) {
		tampered, _ := tree.Proof("us-wa-0003")
		tampered.Siblings[2] = new(big.Int).Add(tampered.Siblings[2], big.NewInt(1))
		assert.False(t, merkle.VerifyProof(testHasher{}, tampered, leaf, root))
	})

	t.Run("flipped path index", func(t *testing.T) {
		tampered, _ := tree.Proof("us-wa-0003")
		tampered.PathIndices[0] ^= 1
		assert.False(t, merkle.VerifyProof(testHasher{}, tampered, leaf, root))
	})

	t.Run("wrong leaf", func(t *testing.T) {
		otherLeaf, err := tree.Leaf("us-wa-0004")
		require.NoError(t, err)
		assert.False(t, merkle.VerifyProof(testHasher{}, proof, otherLeaf, root))
	})

	t.Run("wrong root", func(t *testing.T) {
		wrongRoot := new(big.Int).Add(root, big.NewInt(1))
		assert.False(t, merkle.VerifyProof(testHasher{}, proof, leaf, wrongRoot))
	})
}

func TestProofForUnknownEntity(t *testing.T) {
	tree, err := merkle.Build(makeDistricts(4), 8, testHasher{})
	require.NoError(t, err)

	proof, err := tree.Proof("us-zz-0000")
	assert.Nil(t, proof)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestVerifyProofRejectsMalformedInput(t *testing.T) {
	tree, err := merkle.Build(makeDistricts(4), 8, testHasher{})
	require.NoError(t, err)
	root := tree.Root()
	leaf, _ := tree.Leaf("us-wa-0000")
	proof, _ := tree.Proof("us-wa-0000")

	assert.False(t, merkle.VerifyProof(testHasher{}, nil, leaf, root))
	assert.False(t, merkle.VerifyProof(testHasher{}, proof, nil, root))
	assert.False(t, merkle.VerifyProof(testHasher{}, proof, leaf, nil))

	mismatched, _ := tree.Proof("us-wa-0000")
	mismatched.PathIndices = mismatched.PathIndices[:len(mismatched.PathIndices)-1]
	assert.False(t, merkle.VerifyProof(testHasher{}, mismatched, leaf, root))

	badIndex, _ := tree.Proof("us-wa-0000")
	badIndex.PathIndices[1] = 2
	assert.False(t, merkle.VerifyProof(testHasher{}, badIndex, leaf, root))
}
