package zkhash_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgov/cartograph/pkg/merkle"
	"github.com/atlasgov/cartograph/pkg/zkhash"
)

func TestDeterminism(t *testing.T) {
	h := zkhash.New()
	a, b := big.NewInt(7), big.NewInt(11)

	assert.Zero(t, h.HashPair(a, b).Cmp(h.HashPair(a, b)))
	assert.Zero(t, h.HashSingle(a).Cmp(h.HashSingle(a)))
}

func TestNonCommutativity(t *testing.T) {
	h := zkhash.New()

	pairs := [][2]int64{{1, 2}, {3, 4}, {0, 1}, {999999, 1000000}}
	for _, p := range pairs {
		a, b := big.NewInt(p[0]), big.NewInt(p[1])
		assert.NotZero(t, h.HashPair(a, b).Cmp(h.HashPair(b, a)), "pair (%d, %d)", p[0], p[1])
	}
}

func TestOutputsStayInField(t *testing.T) {
	h := zkhash.New()
	mod := h.Modulus()

	out := h.HashPair(big.NewInt(123), big.NewInt(456))
	assert.Negative(t, out.Cmp(mod))
	assert.False(t, out.Sign() < 0)

	// Inputs beyond the modulus are reduced, not rejected.
	big1 := new(big.Int).Add(mod, big.NewInt(5))
	assert.Zero(t, h.HashSingle(big1).Cmp(h.HashSingle(big.NewInt(5))))
}

func TestPassesMerkleSelfTest(t *testing.T) {
	require.NoError(t, merkle.SelfTest(zkhash.New()))
}
