package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/bedrockchat/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "bedrockchat",
	Short: "Conversational front-end for a Bedrock agent",
	Long:  "bedrockchat talks to a remote Bedrock agent and post-processes its responses: envelope unwrapping, citation injection, and step-grouped trace aggregation.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath,
		"config",
		filepath.Join(os.Getenv("HOME"), ".bedrockchat", "config.json"),
		"config file path")
}

// loadConfig loads the config file at cfgPath, exiting on failure. Every
// subcommand calls this, so a broken config fails fast and uniformly.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// setupLogging configures the default slog logger from the config. An
// optional logging.yaml overlay (cfg.LoggingConfig) overrides the level
// and selects a JSON handler.
func setupLogging(cfg *config.Config) {
	levelName := cfg.LogLevel
	format := "text"
	addSource := false

	if cfg.LoggingConfig != "" {
		lc, err := config.LoadLogging(cfg.LoggingConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load logging config: %v\n", err)
			os.Exit(1)
		}
		if lc != nil {
			if lc.Level != "" {
				levelName = lc.Level
			}
			if lc.Format != "" {
				format = lc.Format
			}
			addSource = lc.AddSource
		}
	}

	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
