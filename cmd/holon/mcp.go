package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/cli"
	"github.com/aretw0/holon/pkg/adapters/mcp"
	"github.com/aretw0/holon/pkg/observability"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [file]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes holon as MCP tools, so AI agents can list sources, read graphs,
lint, patch and run workflow files.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd)
		if err != nil {
			return err
		}
		var file string
		if len(args) > 0 {
			file = args[0]
		}
		setup, name, err := p.open(file, holon.WithLifecycleHooks(observability.LogHooks(p.logger)))
		if err != nil {
			return err
		}
		defer setup.Close()

		srv := mcp.NewServer(setup.Engine, name)

		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			p.logger.Info("starting holon MCP server (stdio)", "file", name)
			return srv.ServeStdio()
		case "sse":
			addr, _ := cmd.Flags().GetString("addr")
			baseURL, _ := cmd.Flags().GetString("base-url")
			if baseURL == "" {
				baseURL = "http://" + addr
			}
			sigCtx := cli.NewSignalContext(context.Background())
			defer sigCtx.Cancel()

			if err := srv.ServeSSE(sigCtx, addr, baseURL); err != nil {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			p.logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "127.0.0.1:8788", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL of the SSE endpoint (default http://<addr>)")
}
