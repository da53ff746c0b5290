// Package main provides the NornicGraph CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orneryd/nornicgraph/pkg/compare"
	"github.com/orneryd/nornicgraph/pkg/config"
	"github.com/orneryd/nornicgraph/pkg/logging"
	"github.com/orneryd/nornicgraph/pkg/query"
	"github.com/orneryd/nornicgraph/pkg/storage"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

// app carries the state shared by every subcommand once the root command has
// resolved configuration.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	logClose io.Closer
	registry *prometheus.Registry
	metrics  *query.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "nornicgraph",
		Short: "NornicGraph - embedded property graph with predicate scans",
		Long: `NornicGraph is an embedded property graph stored in BadgerDB.

Vertices and edges belong to classes with typed properties. Queries scan a
class (including its subclasses) or the edges around a vertex and keep the
records matching a predicate, all against a consistent snapshot.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logClose != nil {
				return a.logClose.Close()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: search standard locations)")
	flags.String("data-dir", "", "Data directory (overrides config)")
	flags.Bool("in-memory", false, "Run without persistence")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "Log format: text, json")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "NornicGraph v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	rootCmd.AddCommand(
		newInitCmd(a),
		newClassesCmd(a),
		newFindCmd(a),
		newEdgesCmd(a),
		newWalkCmd(a),
		newPathCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// setup loads configuration with precedence flags > env > file > defaults and
// prepares logging, runtime memory and metrics.
func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	config.ApplyEnvVars(cfg)

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("in-memory") {
		cfg.Storage.InMemory, _ = flags.GetBool("in-memory")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Memory.ApplyRuntimeMemory()
	if err := compare.SetPatternCacheSize(cfg.Query.PatternCacheSize); err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger
	a.logClose = closer
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.metrics = query.NewMetrics(a.registry)
	}

	entry := logging.Component(logger, "cli")
	entry.WithField("config_file", path).Debug(cfg.String())
	if cfg.Memory.RuntimeLimit > 0 {
		entry.WithField("limit", config.FormatMemorySize(cfg.Memory.RuntimeLimit)).Debug("runtime memory limit applied")
	}
	return nil
}

func (a *app) openEngine() (*storage.BadgerEngine, error) {
	engine, err := storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
		DataDir:    a.cfg.Storage.DataDir,
		InMemory:   a.cfg.Storage.InMemory,
		SyncWrites: a.cfg.Storage.SyncWrites,
		LowMemory:  a.cfg.Storage.LowMemory,
		Logger:     logrus.NewEntry(a.log),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return engine, nil
}

// executor opens a snapshot of engine and returns an executor over it. The
// caller must close the snapshot.
func (a *app) executor(engine *storage.BadgerEngine) (*query.Executor, *storage.Snapshot, error) {
	snap, err := engine.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	opts := []query.Option{query.WithLogger(logrus.NewEntry(a.log))}
	if a.metrics != nil {
		opts = append(opts, query.WithMetrics(a.metrics))
	}
	return query.New(snap, opts...), snap, nil
}
