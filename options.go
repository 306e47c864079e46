package cartograph

import (
	"github.com/atlasgov/cartograph/pkg/errors"
	"github.com/atlasgov/cartograph/pkg/merkle"
	"github.com/atlasgov/cartograph/pkg/pipeline"
	"github.com/atlasgov/cartograph/pkg/snapshot"
	"github.com/atlasgov/cartograph/pkg/zkhash"
)

// config holds engine construction settings.
type config struct {
	dataDir  string
	capacity int
	workers  int
	hasher   merkle.Hasher

	pipelineOptions []pipeline.Option
	managerOptions  []snapshot.ManagerOption
}

func defaultConfig() *config {
	return &config{
		capacity: merkle.DefaultCapacity,
		workers:  pipeline.DefaultWorkers,
		hasher:   zkhash.New(),
	}
}

// Option configures engine construction.
type Option func(*config) error

// WithDataDir persists snapshots and provenance under dir instead of in
// memory.
func WithDataDir(dir string) Option {
	return func(c *config) error {
		if dir == "" {
			return errors.NewValidationError("", "data_dir", "must not be empty")
		}
		c.dataDir = dir
		return nil
	}
}

// WithCapacity overrides the Merkle tree capacity. Must be a power of two
// matching the consuming circuit's depth.
func WithCapacity(capacity int) Option {
	return func(c *config) error {
		if capacity < 1 || capacity&(capacity-1) != 0 {
			return errors.NewValidationError("", "capacity", "must be a positive power of two")
		}
		c.capacity = capacity
		return nil
	}
}

// WithWorkers bounds concurrent entity resolution.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewValidationError("", "workers", "must be positive")
		}
		c.workers = n
		return nil
	}
}

// WithHasher overrides the ZK hash primitive. It still has to pass the
// build-time self-test.
func WithHasher(h merkle.Hasher) Option {
	return func(c *config) error {
		if h == nil {
			return errors.NewValidationError("", "hasher", "must not be nil")
		}
		c.hasher = h
		return nil
	}
}

// WithPipelineOptions forwards options to the build pipeline.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(c *config) error {
		c.pipelineOptions = append(c.pipelineOptions, opts...)
		return nil
	}
}

// WithSnapshotOptions forwards options to the snapshot manager.
func WithSnapshotOptions(opts ...snapshot.ManagerOption) Option {
	return func(c *config) error {
		c.managerOptions = append(c.managerOptions, opts...)
		return nil
	}
}
