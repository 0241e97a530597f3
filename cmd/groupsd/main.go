// Package main is the entry point for the groups service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting groupsd",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", observability.Error(err))
		os.Exit(1)
	}
	app.overrides = flags

	if err := app.run(ctx, flags.configPath); err != nil {
		logger.Error("groupsd stopped with error", observability.Error(err))
		os.Exit(1)
	}
}

// parseFlags parses command line flags. Unset flags fall back to the
// GROUPSD_* environment variables.
func parseFlags(args []string, output io.Writer) (cliFlags, error) {
	fs := flag.NewFlagSet("groupsd", flag.ContinueOnError)
	fs.SetOutput(output)

	var flags cliFlags
	fs.StringVar(&flags.configPath, "config", getEnvOrDefault("GROUPSD_CONFIG_PATH", ""),
		"Path to configuration file (defaults are used when empty)")
	fs.StringVar(&flags.logLevel, "log-level", getEnvOrDefault("GROUPSD_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	fs.StringVar(&flags.logFormat, "log-format", getEnvOrDefault("GROUPSD_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration file")
	fs.BoolVar(&flags.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return flags, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "groupsd version %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadConfig loads the configuration file, or the defaults when no path is
// given, and applies the logging flag overrides.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyLogOverrides(cfg, flags)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyLogOverrides(cfg *config.Config, flags cliFlags) {
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
}

func initLogger(cfg *config.Config) (observability.Logger, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, err
	}
	observability.SetGlobalLogger(logger)
	return logger, nil
}
