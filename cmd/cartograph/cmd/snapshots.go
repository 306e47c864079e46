package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

// snapshotsCmd represents the snapshots command group
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect and manage versioned snapshots",
}

// snapshotsListCmd lists a shard's snapshots.
var snapshotsListCmd = &cobra.Command{
	Use:     "list <shard>",
	Short:   "List a shard's snapshots, oldest first",
	Example: `  cartograph snapshots list congressional`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		snaps, err := engine.Snapshots().List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(snaps)
	},
}

// snapshotsLatestCmd shows the newest snapshot of a shard.
var snapshotsLatestCmd = &cobra.Command{
	Use:   "latest <shard>",
	Short: "Show a shard's newest snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		snap, err := engine.Snapshots().Latest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(snap)
	},
}

// snapshotsPublishCmd attaches a published IPFS CID.
var snapshotsPublishCmd = &cobra.Command{
	Use:   "publish <shard> <version> <cid>",
	Short: "Record a snapshot's published IPFS CID",
	Long: `Publish attaches the IPFS CID a snapshot was published under. A
snapshot flagged for review must be acknowledged first, and a recorded
CID cannot be changed afterwards.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		snap, err := engine.Snapshots().Publish(cmd.Context(), args[0], version, args[2])
		if err != nil {
			return err
		}
		return output(snap)
	},
}

var acknowledgeFlagActor string

// snapshotsAcknowledgeCmd confirms a review-required snapshot.
var snapshotsAcknowledgeCmd = &cobra.Command{
	Use:   "acknowledge <shard> <version>",
	Short: "Confirm a review-required snapshot for publication",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		snap, err := engine.Snapshots().Acknowledge(cmd.Context(), args[0], version, acknowledgeFlagActor)
		if err != nil {
			return err
		}
		return output(snap)
	},
}

// snapshotsDeprecateCmd marks a superseded snapshot.
var snapshotsDeprecateCmd = &cobra.Command{
	Use:   "deprecate <shard> <version>",
	Short: "Mark a snapshot deprecated (the record is retained)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		snap, err := engine.Snapshots().Deprecate(cmd.Context(), args[0], version)
		if err != nil {
			return err
		}
		return output(snap)
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsLatestCmd)
	snapshotsCmd.AddCommand(snapshotsPublishCmd)
	snapshotsCmd.AddCommand(snapshotsAcknowledgeCmd)
	snapshotsCmd.AddCommand(snapshotsDeprecateCmd)

	snapshotsAcknowledgeCmd.Flags().StringVar(&acknowledgeFlagActor, "actor", "", "Who is confirming the snapshot (required)")
	_ = snapshotsAcknowledgeCmd.MarkFlagRequired("actor")
}
