package cmd

import (
	"github.com/spf13/cobra"

	"github.com/atlasgov/cartograph/pkg/authority"
	"github.com/atlasgov/cartograph/pkg/boundaries"
)

// authoritiesCmd represents the authorities command
var authoritiesCmd = &cobra.Command{
	Use:   "authorities [boundary-type]",
	Short: "Show the primary authority and aggregators per boundary type",
	Long: `Authorities prints the registry the conflict resolver consults:
which source is the legally primary authority for each boundary type,
its legal basis, and the ordered aggregators that republish it. With a
boundary type argument it shows only that entry.

The compiled-in US registry is used unless the configuration names an
authority_registry YAML file.`,
	Example: `  cartograph authorities
  cartograph authorities congressional`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthorities,
}

func init() {
	rootCmd.AddCommand(authoritiesCmd)
}

func runAuthorities(cmd *cobra.Command, args []string) error {
	registry := authority.New()
	if cfg.AuthorityRegistry != "" {
		loaded, err := authority.Load(cfg.AuthorityRegistry)
		if err != nil {
			return err
		}
		registry = loaded
	}

	if len(args) == 1 {
		info, err := registry.For(boundaries.BoundaryType(args[0]))
		if err != nil {
			return err
		}
		return output(info)
	}

	infos := make([]authority.Info, 0, len(registry.BoundaryTypes()))
	for _, boundaryType := range registry.BoundaryTypes() {
		info, err := registry.For(boundaryType)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	return output(infos)
}
