package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <shard> <from-version> <to-version>",
	Short: "Compare two snapshot versions of a shard",
	Long: `Diff computes the transient comparison of two stored snapshots:
layer and entity additions and removals, classification changes, and any
review-required warnings the change pattern would raise.`,
	Example: `  cartograph diff congressional 1 2
  cartograph diff ward 3 5 -o yaml`,
	Args: cobra.ExactArgs(3),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	from, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("from-version: %w", err)
	}
	to, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("to-version: %w", err)
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	diff, err := engine.Snapshots().Diff(cmd.Context(), args[0], from, to)
	if err != nil {
		return err
	}
	return output(diff)
}
