package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
)

var mapCmd = &cobra.Command{
	Use:   "map <storage.json>",
	Short: "Convert a storage-format tree into a display tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		depth, _ := cmd.Flags().GetInt("depth")
		if err := validFormat(format); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		tree, err := arbor.MapStorageTree(data)
		if err != nil {
			return err
		}
		return writeTree(cmd.OutOrStdout(), format, tree, depth)
	},
}

var processCmd = &cobra.Command{
	Use:   "process <tree.json>",
	Short: "Annotate a display tree with depths and relative visits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		depth, _ := cmd.Flags().GetInt("depth")
		if err := validFormat(format); err != nil {
			return err
		}

		tree, err := readTree(args[0])
		if err != nil {
			return err
		}
		if _, err := arbor.ProcessTree(tree); err != nil {
			return err
		}
		return writeTree(cmd.OutOrStdout(), format, tree, depth)
	},
}

func init() {
	for _, c := range []*cobra.Command{mapCmd, processCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("format", "f", formatJSON, "Output format: json, mermaid or markdown")
		c.Flags().Int("depth", 0, "Maximum depth for mermaid and markdown output (0 = unlimited)")
	}
}
