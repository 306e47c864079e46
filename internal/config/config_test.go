package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasgov/cartograph/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		MerkleCapacity:             4096,
		Workers:                    8,
		AuthorityWeight:            20,
		AgreementWeight:            10,
		DedupeUnconditionalIoU:     0.95,
		DedupeWithNameIoU:          0.90,
		DedupeNameSimilarity:       0.70,
		RemovalWarnFraction:        0.10,
		ClassificationWarnFraction: 0.05,
		DataDir:                    ".cartograph",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsNonPowerOfTwoCapacity(t *testing.T) {
	c := validConfig()
	c.MerkleCapacity = 4000
	assert.True(t, errors.IsValidationError(c.Validate()))

	c.MerkleCapacity = 0
	assert.True(t, errors.IsValidationError(c.Validate()))

	c.MerkleCapacity = 8192
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsInvertedDedupeThresholds(t *testing.T) {
	c := validConfig()
	c.DedupeUnconditionalIoU = 0.85
	assert.True(t, errors.IsValidationError(c.Validate()))
}

func TestValidateRejectsOutOfRangeFractions(t *testing.T) {
	c := validConfig()
	c.RemovalWarnFraction = 1.5
	assert.True(t, errors.IsValidationError(c.Validate()))

	c = validConfig()
	c.DedupeNameSimilarity = -0.1
	assert.True(t, errors.IsValidationError(c.Validate()))
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	c := validConfig()
	c.Workers = 0
	assert.True(t, errors.IsValidationError(c.Validate()))
}

func TestDataDirPaths(t *testing.T) {
	c := validConfig()
	assert.Equal(t, ".cartograph/snapshots", c.SnapshotDir())
	assert.Equal(t, ".cartograph/provenance", c.ProvenanceDir())
}

func TestUpdateFromFlags(t *testing.T) {
	c := validConfig()
	c.Output = "json"
	c.UpdateFromFlags(true, false, true, "")
	assert.True(t, c.Verbose)
	assert.True(t, c.NoColor)
	assert.Equal(t, "json", c.Output, "empty flag must not clobber configured output")

	c.UpdateFromFlags(false, true, false, "yaml")
	assert.Equal(t, "yaml", c.Output)
}
