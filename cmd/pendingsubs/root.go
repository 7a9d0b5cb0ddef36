package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/APerson241/pending-subs/internal/config"
	"github.com/APerson241/pending-subs/internal/logging"
	"github.com/APerson241/pending-subs/internal/search"
	"github.com/APerson241/pending-subs/internal/service"
	"github.com/APerson241/pending-subs/internal/store"
	"github.com/APerson241/pending-subs/internal/wiki"
)

// app carries the global flags and what setup builds from them.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:     "pendingsubs",
		Short:   "Pending AfC submissions dashboard",
		Version: versionString(),
		Long: `pendingsubs reads the AfC statistics page, checks which submissions are
still pending review, and serves the result as a filterable table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

// setup loads (and validates) configuration and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, a.verbose)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// pipeline wires a PipelineService from the loaded config. snapshots may be
// nil.
func (a *app) pipeline(snapshots service.RunRepository) (*service.PipelineService, error) {
	timeout, err := a.cfg.GetHTTPTimeout()
	if err != nil {
		return nil, err
	}
	transport := wiki.NewTransport(a.cfg.APIRoot, a.cfg.UserAgent, timeout, a.logger.Named("wiki"))
	return service.NewPipelineService(transport, service.Options{
		StatsPage:       a.cfg.StatsPage,
		PendingCategory: a.cfg.PendingCategory,
		Sentinel:        a.cfg.Sentinel,
		ExcludedTitles:  a.cfg.ExcludedTitles,
		BatchSize:       a.cfg.BatchSize,
		MaxConcurrent:   a.cfg.MaxConcurrentBatches,
	}, store.NewRunStore(0), store.NewBoard(), search.NewIndex(), snapshots, a.logger), nil
}
