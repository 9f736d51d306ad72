package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon/internal/presentation/tui"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a workflow file for consistency",
	Long: `Extracts the graph of a source file and reports skipped or duplicate
declarations, dangling links, declarative nodes of unknown types and steps no
workflow calls. Exits non-zero when any issue is found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, setup, name, err := openFile(cmd, args)
		if err != nil {
			return err
		}
		defer setup.Close()

		_, issues, err := setup.Engine.Lint(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"issues": issues}); err != nil {
				return err
			}
		} else {
			out, err := tui.NewRenderer(os.Stdout)(tui.IssuesMarkdown(issues))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
		}

		if len(issues) > 0 {
			return fmt.Errorf("%s has %d issue(s)", name, len(issues))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the issues as JSON")
}
