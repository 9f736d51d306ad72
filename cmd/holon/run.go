package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/cli"
	"github.com/aretw0/holon/internal/dto"
	"github.com/aretw0/holon/pkg/observability"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a workflow",
	Long: `Runs a workflow of a source file and prints its result.

Arguments are passed with --arg key=value and decoded as JSON when they parse,
so --arg n=41 is a number and --arg name=ada is a string. With --watch the
workflow reruns every time the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd)
		if err != nil {
			return err
		}
		setup, name, err := p.open(args[0], holon.WithLifecycleHooks(observability.LogHooks(p.logger)))
		if err != nil {
			return err
		}
		defer setup.Close()

		workflow, _ := cmd.Flags().GetString("workflow")
		pairs, _ := cmd.Flags().GetStringArray("arg")
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")

		values, err := cli.ParseArgs(pairs)
		if err != nil {
			return err
		}
		opts := cli.RunOptions{Source: name, Workflow: workflow, Args: values, JSON: jsonMode}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		if watchMode {
			return cli.Watch(sigCtx, setup.Engine, opts, cmd.OutOrStdout(), p.logger)
		}
		if err := cli.Execute(sigCtx, setup.Engine, opts, cmd.OutOrStdout()); err != nil {
			if sig := sigCtx.Signal(); sig != nil {
				return fmt.Errorf("interrupted by %v", sig)
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("workflow", "w", dto.DefaultWorkflow, "Workflow to run")
	runCmd.Flags().StringArrayP("arg", "a", nil, "Workflow argument as key=value (repeatable)")
	runCmd.Flags().Bool("json", false, "Print the whole run result as JSON")
	runCmd.Flags().Bool("watch", false, "Rerun the workflow when the file changes")
}
