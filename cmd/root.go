package cmd

import (
	"fmt"

	"github.com/abhisek/findata/internal/config"
	"github.com/abhisek/findata/internal/logger"
	"github.com/abhisek/findata/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "findata",
	Short: "Generate question-answer datasets from financial documents",
	Long: "findata turns free text, PDFs and SEC 10-K/10-Q filings into question, answer and context " +
		"datasets for evaluating financial question answering.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides FINDATA_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config and applies
// --log-level on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := logrus.ParseLevel(lvl); err != nil {
			return nil, fmt.Errorf("invalid --log-level %q: %w", lvl, err)
		}
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logger.New(logger.Options{Level: cfg.LogLevel})
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the db config key, then FINDATA_DB / the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// openStore opens the database the inspection commands read from.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
