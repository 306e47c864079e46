package merkle

import (
	"math/big"
	"math/bits"
	"sort"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
)

// DefaultCapacity is the standard shard capacity (depth 12).
const DefaultCapacity = 4096

// Tree is a fixed-capacity binary commitment tree. Leaves are ordered by
// entity id; the order is part of the root's meaning.
type Tree struct {
	hasher   Hasher
	capacity int
	depth    int

	// levels[0] holds the padded leaves, levels[depth] the single root.
	levels [][]*big.Int

	// index maps entity id to leaf position.
	index map[string]int

	// entities is the committed canonical list, in leaf order.
	entities []boundaries.District
}

// Build sorts the entities into canonical order, computes one leaf per
// district, pads to capacity with sentinel leaves, and hashes bottom-up.
// It fails with CapacityExceededError rather than truncate: silently
// dropping a boundary would corrupt every proof that should have included
// it. It fails with MerkleIntegrityError if the hasher flunks its self-test.
func Build(entities []boundaries.District, capacity int, h Hasher) (*Tree, error) {
	if capacity < 1 || bits.OnesCount(uint(capacity)) != 1 {
		return nil, errors.NewValidationError("", "capacity", "must be a power of two")
	}
	if len(entities) > capacity {
		return nil, errors.NewCapacityExceededError(len(entities), capacity)
	}
	if err := SelfTest(h); err != nil {
		return nil, err
	}

	// Canonical order: identical input sets must always produce identical
	// sequences regardless of arrival order.
	ordered := make([]boundaries.District, len(entities))
	copy(ordered, entities)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].EntityID < ordered[j].EntityID
	})

	index := make(map[string]int, len(ordered))
	for i, d := range ordered {
		if _, dup := index[d.EntityID]; dup {
			return nil, errors.NewValidationError(d.EntityID, "entity_id", "duplicate entity id in canonical list")
		}
		index[d.EntityID] = i
	}

	depth := bits.TrailingZeros(uint(capacity))

	leaves := make([]*big.Int, capacity)
	for i := range ordered {
		leaves[i] = LeafValue(h, &ordered[i])
	}
	sentinel := SentinelLeaf(h)
	for i := len(ordered); i < capacity; i++ {
		leaves[i] = sentinel
	}

	levels := make([][]*big.Int, depth+1)
	levels[0] = leaves
	for lvl := 1; lvl <= depth; lvl++ {
		below := levels[lvl-1]
		level := make([]*big.Int, len(below)/2)
		for i := range level {
			level[i] = h.HashPair(below[2*i], below[2*i+1])
		}
		levels[lvl] = level
	}

	return &Tree{
		hasher:   h,
		capacity: capacity,
		depth:    depth,
		levels:   levels,
		index:    index,
		entities: ordered,
	}, nil
}

// Root returns the single commitment value.
func (t *Tree) Root() *big.Int {
	return new(big.Int).Set(t.levels[t.depth][0])
}

// Depth returns the tree depth (log2 of capacity).
func (t *Tree) Depth() int {
	return t.depth
}

// Capacity returns the fixed leaf capacity.
func (t *Tree) Capacity() int {
	return t.capacity
}

// Entities returns the committed canonical list in leaf order.
func (t *Tree) Entities() []boundaries.District {
	out := make([]boundaries.District, len(t.entities))
	copy(out, t.entities)
	return out
}

// Leaf returns the leaf value for a committed entity.
func (t *Tree) Leaf(entityID string) (*big.Int, error) {
	i, ok := t.index[entityID]
	if !ok {
		return nil, errors.NewNotFoundError("leaf", entityID)
	}
	return new(big.Int).Set(t.levels[0][i]), nil
}
