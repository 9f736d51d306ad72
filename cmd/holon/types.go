package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon/internal/presentation/tui"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the declarative node types the engine can resolve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd)
		if err != nil {
			return err
		}
		setup, _, err := p.open("")
		if err != nil {
			return err
		}
		defer setup.Close()

		descs := setup.Engine.Registry().Descriptors()
		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(descs)
		}

		out, err := tui.NewRenderer(os.Stdout)(tui.TypesMarkdown(descs))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.Flags().Bool("json", false, "Print the descriptors as JSON")
}
