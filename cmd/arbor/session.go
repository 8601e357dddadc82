package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Query recorded game sessions",
	Long:  `Lists turns and reads final trees, growth snapshots and iteration details from the configured store.`,
}

var sessionTurnsCmd = &cobra.Command{
	Use:   "turns <session-id>",
	Short: "List the turns that have a final tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		turns, err := a.arbor.Sessions().AvailableTurns(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No turns found.")
			return nil
		}
		for _, t := range turns {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

var sessionTreeCmd = &cobra.Command{
	Use:   "tree <session-id> <turn>",
	Short: "Print the final tree of a turn",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		turn, err := parseNumber("turn", args[1])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		depth, _ := cmd.Flags().GetInt("depth")
		if err := validFormat(format); err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		tree, err := a.arbor.Sessions().TreeForTurn(cmd.Context(), args[0], turn)
		if err != nil {
			return err
		}
		return writeTree(cmd.OutOrStdout(), format, tree, depth)
	},
}

var sessionGrowthCmd = &cobra.Command{
	Use:   "growth <session-id> <turn>",
	Short: "Print the growth snapshots of a turn",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		turn, err := parseNumber("turn", args[1])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		depth, _ := cmd.Flags().GetInt("depth")
		replay, _ := cmd.Flags().GetBool("replay")
		if err := validFormat(format); err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := a.arbor.Sessions()
		fetch := sessions.GrowthSteps
		if replay {
			fetch = sessions.ReplayGrowth
		}
		steps, err := fetch(cmd.Context(), args[0], turn)
		if err != nil {
			return err
		}
		return writeSteps(cmd.OutOrStdout(), format, steps, depth)
	},
}

var sessionIterationCmd = &cobra.Command{
	Use:   "iteration <session-id> <turn> <iteration>",
	Short: "Print the stage data of one search iteration",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		turn, err := parseNumber("turn", args[1])
		if err != nil {
			return err
		}
		iteration, err := parseNumber("iteration", args[2])
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		details, err := a.arbor.Sessions().IterationDetails(cmd.Context(), args[0], turn, iteration)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), details)
	},
}

func parseNumber(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative integer", name, s)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionTurnsCmd, sessionTreeCmd, sessionGrowthCmd, sessionIterationCmd)

	for _, c := range []*cobra.Command{sessionTreeCmd, sessionGrowthCmd} {
		c.Flags().StringP("format", "f", formatJSON, "Output format: json, mermaid or markdown")
		c.Flags().Int("depth", 0, "Maximum depth for mermaid and markdown output (0 = unlimited)")
	}
	sessionGrowthCmd.Flags().Bool("replay", false, "Rebuild the snapshots from the initial tree and patches")
}
