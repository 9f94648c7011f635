// Package main provides the dqagent binary entry point.
// dqagent is a conversational agent for managing SQL data quality
// rules in a tabular warehouse.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/dqagent/llm/providers"

	"github.com/c360studio/dqagent/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "dqagent"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Conversational data quality rule agent",
		Long: `dqagent manages SQL data quality rules through natural language.

It classifies each user turn into a lifecycle operation (create, read,
update, delete, or data exploration), generates candidate SQL with an
LLM, dry-runs it against the warehouse, and holds every generated
statement behind an explicit approval gate before anything is stored.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the agent HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, logLevel)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serve(configPath, logLevel string) error {
	// Optional .env for API keys and local overrides.
	_ = godotenv.Load()

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg.Merge(loaded)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	return app.Run()
}

// applyEnvOverrides lets the warehouse scope come from the environment,
// matching how deployments pass per-environment identifiers.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("DQAGENT_PROJECT_ID"); v != "" {
		cfg.Warehouse.ProjectID = v
	}
	if v := os.Getenv("DQAGENT_DATASET_ID"); v != "" {
		cfg.Warehouse.DatasetID = v
	}
	if v := os.Getenv("DQAGENT_QUERY_SERVICE_URL"); v != "" {
		cfg.Warehouse.QueryServiceURL = v
	}
	// The original deployment convention is uppercase (BASELINE/CHASE).
	if v := os.Getenv("NL2SQL_METHOD"); v != "" {
		cfg.NL2SQL.Method = strings.ToLower(v)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}
