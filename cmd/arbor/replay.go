package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/pkg/growth"
	"github.com/aretw0/arbor/pkg/observability"
)

var replayCmd = &cobra.Command{
	Use:   "replay <initial.json> <patches.json>",
	Short: "Replay recorded patches against an initial tree",
	Long: `Applies each patch of patches.json (a JSON array of patch documents) to the initial
tree and prints one snapshot per patch, plus the initial snapshot.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		turn, _ := cmd.Flags().GetInt("turn")
		depth, _ := cmd.Flags().GetInt("depth")
		if err := validFormat(format); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		initial, err := readTree(args[0])
		if err != nil {
			return err
		}
		patches, err := readPatches(args[1], turn)
		if err != nil {
			return err
		}

		rec := observability.NewRecorder()
		steps, err := growth.New(growth.WithLogger(logger), growth.WithObserver(rec)).Sequence(turn, initial, patches)
		if err != nil {
			return err
		}

		summary := rec.Summary(turn)
		logger.Info("Replay complete",
			"turn", turn,
			"steps", summary.Steps,
			"applied", summary.Operations.Applied,
			"skipped", summary.Operations.Skipped,
			"failed", summary.Operations.Failed,
			"failed_patches", summary.FailedPatches,
			"max_nodes", summary.MaxNodes,
		)
		return writeSteps(cmd.OutOrStdout(), format, steps, depth)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringP("format", "f", formatJSON, "Output format: json, mermaid or markdown")
	replayCmd.Flags().IntP("turn", "t", 0, "Turn number recorded on every step")
	replayCmd.Flags().Int("depth", 0, "Maximum depth for mermaid output (0 = unlimited)")
}
