package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <session-id>",
	Short: "Split legacy iteration records into per-stage keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.arbor.Sessions().MigrateLegacyIterations(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d, skipped %d, failed %d legacy iterations\n",
			report.Migrated, report.Skipped, report.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
