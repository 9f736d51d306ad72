package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/cli"
	"github.com/aretw0/holon/internal/config"
	"github.com/aretw0/holon/pkg/adapters/process"
)

var rootCmd = &cobra.Command{
	Use:   "holon",
	Short: "Holon turns annotated Go source into an editable, runnable workflow graph",
	Long: `Holon reads workflow files written in Go, where functions annotated with
//@node are steps, functions annotated with //@workflow orchestrate them and
dsl.Spec declarations add typed declarative nodes. It extracts the graph,
edits the source in place and runs workflows.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Project file (default <dir>/"+config.DefaultFile+")")
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the workflow sources")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error or off")
	rootCmd.PersistentFlags().Bool("debug", false, "Shortcut for --log-level=debug")
	rootCmd.PersistentFlags().Bool("strict", false, "Fail on unknown declarative types instead of passing their props through")
	rootCmd.PersistentFlags().String("backend", "", "Source store backend: file, memory or redis")
}

// project is the configuration of one command invocation.
type project struct {
	cfg    config.Config
	found  bool
	logger *slog.Logger
}

// loadProject reads the project file and applies the command-line overrides.
func loadProject(cmd *cobra.Command) (*project, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, config.DefaultFile)
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(path)
	p := &project{cfg: cfg, found: statErr == nil}

	if flags.Changed("dir") || !p.found {
		p.cfg.Dir = dir
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		p.cfg.LogLevel = v
	}
	if flags.Changed("strict") {
		p.cfg.Strict, _ = flags.GetBool("strict")
	}
	if v, _ := flags.GetString("backend"); v != "" {
		p.cfg.Store.Backend = v
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	debug, _ := flags.GetBool("debug")
	if p.logger, err = cli.NewLogger(p.cfg.LogLevel, debug); err != nil {
		return nil, err
	}
	slog.SetDefault(p.logger)
	return p, nil
}

// open builds the engine. When file is set it is mapped to a source name,
// which may move the source directory to the file's own.
func (p *project) open(file string, extra ...holon.Option) (*cli.Setup, string, error) {
	var name string
	if file != "" {
		var err error
		if name, err = cli.SourceName(&p.cfg, file); err != nil {
			return nil, "", err
		}
	}
	if !p.found {
		p.cfg.StepsFile = filepath.Join(p.cfg.Dir, process.DefaultConfigFile)
	}

	setup, err := cli.NewEngine(p.cfg, p.logger, extra...)
	if err != nil {
		return nil, "", err
	}
	return setup, name, nil
}

// openFile is loadProject followed by open for commands taking one file.
func openFile(cmd *cobra.Command, args []string, extra ...holon.Option) (*project, *cli.Setup, string, error) {
	p, err := loadProject(cmd)
	if err != nil {
		return nil, nil, "", err
	}
	setup, name, err := p.open(args[0], extra...)
	if err != nil {
		return nil, nil, "", err
	}
	return p, setup, name, nil
}
