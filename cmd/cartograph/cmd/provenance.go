package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlasgov/cartograph/pkg/provenance"
)

var (
	provenanceFlagType  string
	provenanceFlagSince string
	provenanceFlagUntil string
)

// provenanceCmd represents the provenance command
var provenanceCmd = &cobra.Command{
	Use:   "provenance [entity-id]",
	Short: "Query the append-only entity lifecycle log",
	Long: `Provenance lists lifecycle events (discovered, validated,
quarantined, remediated, metadata-updated). With an entity id it returns
that entity's trail; with --type or a time window it filters the whole
log.`,
	Example: `  cartograph provenance us-ca-06
  cartograph provenance --type quarantined
  cartograph provenance --since 2025-06-01T00:00:00Z --until 2025-07-01T00:00:00Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProvenance,
}

func init() {
	rootCmd.AddCommand(provenanceCmd)

	provenanceCmd.Flags().StringVarP(&provenanceFlagType, "type", "t", "", "Filter by event type")
	provenanceCmd.Flags().StringVar(&provenanceFlagSince, "since", "", "Window start (RFC 3339)")
	provenanceCmd.Flags().StringVar(&provenanceFlagUntil, "until", "", "Window end, exclusive (RFC 3339)")
}

func runProvenance(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	events := engine.Events()

	switch {
	case len(args) == 1:
		trail, err := events.ByEntity(ctx, args[0])
		if err != nil {
			return err
		}
		return output(trail)

	case provenanceFlagType != "":
		eventType := provenance.EventType(provenanceFlagType)
		if !eventType.Valid() {
			return fmt.Errorf("unknown event type %q", provenanceFlagType)
		}
		filtered, err := events.ByType(ctx, eventType)
		if err != nil {
			return err
		}
		return output(filtered)

	case provenanceFlagSince != "" || provenanceFlagUntil != "":
		from, to, err := parseWindow(provenanceFlagSince, provenanceFlagUntil)
		if err != nil {
			return err
		}
		window, err := events.Between(ctx, from, to)
		if err != nil {
			return err
		}
		return output(window)

	default:
		return fmt.Errorf("supply an entity id, --type, or a time window")
	}
}

func parseWindow(since, until string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now().UTC()

	var err error
	if since != "" {
		from, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return from, to, fmt.Errorf("parsing --since: %w", err)
		}
	}
	if until != "" {
		to, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return from, to, fmt.Errorf("parsing --until: %w", err)
		}
	}
	return from, to, nil
}
