package main

import (
	"database/sql"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/ephemera/internal/config"
	"github.com/dukerupert/ephemera/internal/database"
	"github.com/dukerupert/ephemera/internal/logging"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	logger     *slog.Logger
}

func (a *app) openDB() (*sql.DB, error) {
	a.logger.Debug("opening database", "path", a.cfg.DBPath)
	return database.Open(a.cfg.DBPath)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ephemera",
		Short: "Self-expiring encrypted notes",
		Long: `Ephemera serves a JSON API for personal notes that disappear once their
expiry passes. Titles and contents are encrypted at rest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newPurgeCmd(a),
		newAdminCmd(a),
	)
	return root
}
