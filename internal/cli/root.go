// Package cli implements the command-line interface for annotstore.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/annotstore/annotstore/internal/config"
	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/store"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagDebug     bool
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Logger *slog.Logger
	Debug  bool
}

// initContext loads configuration and builds the logger. Flags override
// the config file's defaults.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	logLevel := cfg.LogLevel
	if flagLogLevel != "" {
		logLevel = flagLogLevel
	}
	logFormat := cfg.LogFormat
	if flagLogFormat != "" {
		logFormat = flagLogFormat
	}

	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if flagDebug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return &cmdContext{
		Config: cfg,
		Logger: slog.New(handler),
		Debug:  flagDebug || level == slog.LevelDebug,
	}
}

// recordRun appends a run to the catalog. Catalog failures are logged and
// otherwise ignored; the store write is the operation that matters.
func (c *cmdContext) recordRun(command, storePath string, startedAt time.Time, result models.BuildResult) {
	catalog, err := store.OpenCatalog(c.Config.CatalogDatabasePath())
	if err != nil {
		c.Logger.Warn("could not open run catalog", "err", err)
		return
	}
	defer catalog.Close()

	run := &models.Run{
		Command:   command,
		StorePath: storePath,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Sources:   result.Sources,
	}
	if err := catalog.RecordRun(run); err != nil {
		c.Logger.Warn("could not record run in catalog", "err", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "annotstore",
	Short: "Gene annotation store builder",
	Long: `annotstore builds a unified gene annotation store out of heterogeneous
source files. Sources are parsed, filtered, and merged into a single JSON
document by matching identifier fields, with every source's records kept
under its own prefix.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log per-record merge diagnostics")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(historyCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
