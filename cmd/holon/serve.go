package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/cli"
	httpAdapter "github.com/aretw0/holon/pkg/adapters/http"
	"github.com/aretw0/holon/pkg/observability"
	"github.com/aretw0/holon/pkg/persistence/middleware"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Start the HTTP control server",
	Long: `Serves the JSON control API editors use to inspect, patch and run workflow
files, plus /events (server-sent reload notifications), /openapi.yaml and,
with --metrics, Prometheus metrics at /metrics. The optional file is the
source requests target when they name none.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			p.cfg.Addr = addr
		}
		if cmd.Flags().Changed("metrics") {
			p.cfg.Metrics, _ = cmd.Flags().GetBool("metrics")
		}

		var handlerOpts []httpAdapter.HandlerOption
		engineOpts := []holon.Option{holon.WithLifecycleHooks(observability.LogHooks(p.logger))}
		if p.cfg.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			engineOpts = append(engineOpts, holon.WithLifecycleHooks(observability.NewMetrics(reg).Hooks()))
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}

		var file string
		if len(args) > 0 {
			file = args[0]
		}
		setup, name, err := p.open(file, engineOpts...)
		if err != nil {
			return err
		}
		defer setup.Close()

		if !p.cfg.Credentials.ShowSecrets {
			redacted := middleware.Chain(setup.Credentials, middleware.NewRedactionMiddleware(middleware.DefaultSecretPatterns))
			handlerOpts = append(handlerOpts, httpAdapter.WithCredentialStore(redacted))
		}

		srv := &http.Server{
			Addr:              p.cfg.Addr,
			Handler:           httpAdapter.NewHandler(setup.Engine, name, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			p.logger.Info("starting holon server", "addr", srv.Addr, "dir", p.cfg.Dir, "backend", p.cfg.Store.Backend, "file", name)
			fmt.Fprintf(cmd.OutOrStdout(), "Holon server listening on http://%s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			p.logger.Info("start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				p.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			p.logger.Info("holon server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, 127.0.0.1:8787)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics at /metrics")
}
