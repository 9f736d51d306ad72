package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon/internal/presentation/tui"
)

var listCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List the nodes and edges of a workflow file",
	Long:  `Extracts the graph of a source file and prints its nodes and edges as tables, styled when stdout is a terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, setup, name, err := openFile(cmd, args)
		if err != nil {
			return err
		}
		defer setup.Close()

		g, err := setup.Engine.Graph(cmd.Context(), name)
		if err != nil {
			return err
		}

		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}

		out, err := tui.NewRenderer(os.Stdout)(tui.GraphMarkdown(name, g))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("json", false, "Print the graph as JSON")
}
