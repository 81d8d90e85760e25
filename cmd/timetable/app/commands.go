// Package app wires the timetable commands.
package app

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/unitimetable/timetable/internal/config"
	"github.com/unitimetable/timetable/internal/logger"
)

// NewRootCmd builds the command tree. Every call returns fresh commands so
// tests can execute them independently.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "timetable",
		Short:        "University timetable aggregation service",
		SilenceUsage: true,
		Long: `timetable fetches courses and lessons from university portals, caches them
and exposes them as JSON and iCalendar feeds.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}
	root.PersistentFlags().StringSlice("env-file", nil, "Dotenv files to load before reading the environment (default .env)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newFetchCmd())
	return root
}

// loadConfig reads the configuration and installs the process logger.
// Logs go to stderr so stdout stays clean for command output.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	files, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.SetupDefault(os.Stderr, logger.ParseLevel(cfg.LogLevel))
	return cfg, log, nil
}
