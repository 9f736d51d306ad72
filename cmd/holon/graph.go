package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon/internal/cli"
	"github.com/aretw0/holon/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the workflow graph visualization",
	Long: `Extracts the graph of a source file and outputs a Mermaid diagram (graph TD).
With --run the workflow is executed first and the executed and failed nodes
are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, setup, name, err := openFile(cmd, args)
		if err != nil {
			return err
		}
		defer setup.Close()

		ctx := cmd.Context()
		g, err := setup.Engine.Graph(ctx, name)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if workflow, _ := cmd.Flags().GetString("run"); workflow != "" {
			pairs, _ := cmd.Flags().GetStringArray("arg")
			values, err := cli.ParseArgs(pairs)
			if err != nil {
				return err
			}
			// A failed run is still drawn; its failure is the point of the overlay.
			res, _ := setup.Engine.Run(ctx, name, workflow, values)
			overlay = graph.OverlayFromResult(res)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Run this workflow and highlight the executed nodes")
	graphCmd.Flags().StringArrayP("arg", "a", nil, "Workflow argument as key=value (with --run)")
}
