package snapshot

import (
	"context"
)

// Store persists snapshots per shard. Save creates only; Amend is reserved
// for the Manager's two permitted mutations (publication CID, deprecation
// marker) plus review acknowledgment.
type Store interface {
	// Save stores a new snapshot. Fails with ErrAlreadyExists if the
	// shard/version pair is taken.
	Save(ctx context.Context, snap *Snapshot) error

	// Amend replaces an existing snapshot record. Fails with ErrNotFound
	// if the shard/version pair does not exist.
	Amend(ctx context.Context, snap *Snapshot) error

	// Get returns one version of a shard.
	Get(ctx context.Context, shard string, version int) (*Snapshot, error)

	// Latest returns the highest version of a shard, or ErrNotFound.
	Latest(ctx context.Context, shard string) (*Snapshot, error)

	// List returns all versions of a shard in ascending version order.
	List(ctx context.Context, shard string) ([]*Snapshot, error)

	// Close releases store resources.
	Close() error
}
