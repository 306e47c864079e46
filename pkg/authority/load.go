package authority

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// File is the on-disk shape of an authority registry.
type File struct {
	Authorities []Info `yaml:"authorities"`
}

// Load reads an authority registry from a YAML file. Deployments that need
// non-US boundary types or different aggregator orderings ship their own
// file instead of the compiled-in defaults.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from deployment configuration
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if len(f.Authorities) == 0 {
		return nil, errors.NewValidationError("", "authorities", "registry file defines no authorities")
	}

	return NewFromInfos(f.Authorities), nil
}
