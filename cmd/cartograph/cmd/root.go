// Package cmd implements the cartograph CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/atlasgov/cartograph"
	"github.com/atlasgov/cartograph/internal/config"
	"github.com/atlasgov/cartograph/pkg/authority"
	"github.com/atlasgov/cartograph/pkg/dedupe"
	"github.com/atlasgov/cartograph/pkg/logging"
	"github.com/atlasgov/cartograph/pkg/pipeline"
	"github.com/atlasgov/cartograph/pkg/resolver"
	"github.com/atlasgov/cartograph/pkg/snapshot"
)

var (
	flagVerbose bool
	flagQuiet   bool
	flagOutput  string
	flagDataDir string

	cfg *config.Config

	versionString = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cartograph",
	Short: "Boundary resolution and commitment engine",
	Long: `Cartograph resolves conflicting governance-boundary claims from
multiple sources into one canonical district set per boundary type,
commits each set into a ZK-provable Merkle tree, and versions every
build as an immutable, diffable snapshot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		cfg.UpdateFromFlags(flagVerbose, flagQuiet, false, flagOutput)
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory for persistent stores (default from config)")
}

// SetVersionInfo wires build metadata into the version command.
func SetVersionInfo(version, commit, date string) {
	versionString = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	rootCmd.Version = versionString
}

// Execute runs the CLI, logging any error before returning it.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logging.Error().Err(err).Msg("command failed")
	}
	return err
}

// newEngine constructs an Engine from the loaded configuration.
func newEngine() (cartograph.Engine, error) {
	opts := []cartograph.Option{
		cartograph.WithDataDir(cfg.DataDir),
		cartograph.WithCapacity(cfg.MerkleCapacity),
		cartograph.WithWorkers(cfg.Workers),
		cartograph.WithPipelineOptions(
			pipeline.WithResolver(resolver.New(resolver.WithWeights(resolver.Weights{
				AuthorityLevel: cfg.AuthorityWeight,
				Agreement:      cfg.AgreementWeight,
			}))),
			pipeline.WithDeduplicator(dedupe.New(dedupe.WithThresholds(dedupe.Thresholds{
				Unconditional:  cfg.DedupeUnconditionalIoU,
				WithName:       cfg.DedupeWithNameIoU,
				NameSimilarity: cfg.DedupeNameSimilarity,
			}))),
		),
		cartograph.WithSnapshotOptions(snapshot.WithCompareOptions(
			snapshot.WithRemovalWarnFraction(cfg.RemovalWarnFraction),
			snapshot.WithClassificationWarnFraction(cfg.ClassificationWarnFraction),
		)),
	}

	if cfg.AuthorityRegistry != "" {
		registry, err := authority.Load(cfg.AuthorityRegistry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cartograph.WithPipelineOptions(pipeline.WithRegistry(registry)))
	}

	return cartograph.New(opts...)
}

// writeOutput renders v to w in the configured output format.
func writeOutput(w io.Writer, v any) error {
	switch cfg.Output {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// output renders v to stdout.
func output(v any) error {
	return writeOutput(os.Stdout, v)
}
