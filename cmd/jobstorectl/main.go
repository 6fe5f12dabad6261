// Command jobstorectl inspects and administers a durable trigger store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdziat/simple-durable-jobstore/pkg/jobstore"
	"github.com/jdziat/simple-durable-jobstore/pkg/storage"
)

// app holds what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg    *Config
	logger *slog.Logger
	store  *jobstore.JobStore
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var configFile string
	v := newViper()

	root := &cobra.Command{
		Use:   "jobstorectl",
		Short: "Inspect and administer a durable trigger store",
		Long: `jobstorectl operates on the jobs, triggers and calendars of one scheduler
instance in a trigger store database.

Examples:
  jobstorectl status                      # Counts and lifecycle state
  jobstorectl triggers --group nightly    # List triggers of a group
  jobstorectl pause triggers nightly      # Pause a trigger group
  JOBSTORE_DSN=prod.db jobstorectl jobs    # Use another database`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			cfg, err := LoadConfig(v, configFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			a.store, err = openStore(cmd.Context(), cfg, a.logger)
			return err
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	pf.String("dialect", storage.DialectSQLite, "Database dialect: sqlite or postgres")
	pf.String("dsn", "jobstore.db", "Database DSN or SQLite file")
	pf.String("instance", jobstore.DefaultInstanceName, "Scheduler instance name")
	pf.Duration("misfire-threshold", jobstore.DefaultMisfireThreshold, "Misfire threshold")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text or json")

	root.AddCommand(
		newStatusCmd(a),
		newJobsCmd(a),
		newTriggersCmd(a),
		newCalendarsCmd(a),
		newPauseCmd(a),
		newResumeCmd(a),
		newResetCmd(a),
		newRecoverCmd(a),
		newClearCmd(a),
	)
	return root
}

// openStore opens the configured database and initializes a store on it
// without starting it, so inspecting a live instance never runs recovery.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*jobstore.JobStore, error) {
	db, err := storage.Open(cfg.Dialect, cfg.DSN, nil)
	if err != nil {
		return nil, err
	}
	store, err := jobstore.New(storage.NewGormStorage(db),
		jobstore.WithInstanceName(cfg.Instance),
		jobstore.WithMisfireThreshold(cfg.MisfireThreshold),
		jobstore.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx, nil, nil); err != nil {
		return nil, err
	}
	logger.Debug("store opened", "dialect", cfg.Dialect, "instance", cfg.Instance)
	return store, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
