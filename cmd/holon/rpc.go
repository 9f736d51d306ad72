package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/holon/internal/cli"
	"github.com/aretw0/holon/pkg/adapters/rpc"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Serve the line-delimited JSON protocol on stdin/stdout",
	Long: `Reads one JSON request per line from stdin and writes one JSON response per
line to stdout:

  {"id": 1, "method": "parse", "params": {"source": "..."}}
  {"id": 1, "result": {"graph": {...}}}

Every request carries the source text it works on; edits return the new
text. The "shutdown" method ends the loop. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		srv := rpc.NewServer(rpc.WithLogger(p.logger))
		p.logger.Debug("rpc server ready")
		return srv.Serve(sigCtx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(rpcCmd)
}
