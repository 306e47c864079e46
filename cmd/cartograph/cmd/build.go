package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/logging"
)

var buildFlagClaims string

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <shard>",
	Short: "Resolve, deduplicate, and commit one shard's claims",
	Long: `Build runs the full pipeline for one shard: validates the source
claims, resolves conflicts per entity in favor of the primary authority,
collapses duplicate discoveries, commits the canonical list into the
Merkle tree, and versions the result as a new snapshot.

Per-entity failures (malformed claims, ambiguous duplicates) are itemized
and the command exits non-zero, but the snapshot is still created from
the entities that survived.`,
	Example: `  cartograph build congressional --claims claims.yaml
  cartograph build ward --claims ward-claims.yaml -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildFlagClaims, "claims", "c", "", "YAML file with the shard's source claims (required)")
	_ = buildCmd.MarkFlagRequired("claims")
}

// claimsFile is the on-disk input format.
type claimsFile struct {
	Claims []boundaries.SourceClaim `yaml:"claims"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	shard := args[0]

	data, err := os.ReadFile(buildFlagClaims)
	if err != nil {
		return fmt.Errorf("reading claims file: %w", err)
	}
	var file claimsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing claims file %s: %w", buildFlagClaims, err)
	}
	if len(file.Claims) == 0 {
		return fmt.Errorf("claims file %s contains no claims", buildFlagClaims)
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := logging.WithShard(cmd.Context(), shard)
	result, err := engine.Build(ctx, shard, file.Claims)
	if err != nil {
		return err
	}

	if err := output(result); err != nil {
		return err
	}

	if result.Failed() {
		for _, ee := range result.EntityErrors {
			fmt.Fprintf(os.Stderr, "entity %s failed at %s: %s\n", ee.EntityID, ee.Stage, ee.Message)
		}
		return fmt.Errorf("%d of %d claims did not survive the build (%d committed)",
			result.Stats.ClaimsSkipped+result.Stats.Quarantined, result.Stats.ClaimsIn, result.Stats.Committed)
	}
	return nil
}
