// Package main implements the telemetrygen binary.
// One invocation generates a complete synthetic telemetry dataset and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/arkilian/telemetrygen/internal/app"
	"github.com/arkilian/telemetrygen/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

// overrides holds the flag values that take precedence over file and env.
type overrides struct {
	dataDir   string
	seed      int64
	days      int
	players   int
	peakDAU   int
	patchDays string
	batchSize int
	driver    string
	dbPath    string
	dsn       string
	publish   string
	logLevel  string
}

func main() {
	var (
		configFile  string
		o           overrides
		dryRun      bool
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML, JSON or TOML)")
	flag.StringVar(&o.dataDir, "data-dir", "", "Base directory for all output files")
	flag.Int64Var(&o.seed, "seed", 0, "Random seed (0 keeps the configured seed)")
	flag.IntVar(&o.days, "days", 0, "Simulation horizon in days")
	flag.IntVar(&o.players, "players", 0, "Population size")
	flag.IntVar(&o.peakDAU, "peak-dau", 0, "Peak of the DAU curve")
	flag.StringVar(&o.patchDays, "patch-days", "", "Comma-separated content patch days")
	flag.IntVar(&o.batchSize, "batch-size", 0, "Buffered rows per flush")
	flag.StringVar(&o.driver, "driver", "", "Output driver: sqlite, postgres, memory")
	flag.StringVar(&o.dbPath, "db", "", "SQLite output path")
	flag.StringVar(&o.dsn, "dsn", "", "Postgres connection string")
	flag.StringVar(&o.publish, "publish", "", "Publish target: none, local, s3")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&dryRun, "dry-run", false, "Print the resolved configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "telemetrygen - synthetic game telemetry generator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: telemetrygen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  telemetrygen --data-dir ./data\n")
		fmt.Fprintf(os.Stderr, "  telemetrygen --seed 42 --days 90 --players 10000 --peak-dau 4000\n")
		fmt.Fprintf(os.Stderr, "  telemetrygen --config run.yaml --publish s3\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TELEMETRYGEN_DATA_DIR       Base directory for output files\n")
		fmt.Fprintf(os.Stderr, "  TELEMETRYGEN_SIM_*          Simulation parameters (SEED, DAYS, PLAYERS, PEAK_DAU, ...)\n")
		fmt.Fprintf(os.Stderr, "  TELEMETRYGEN_STORE_*        Output driver, path, DSN and schema\n")
		fmt.Fprintf(os.Stderr, "  TELEMETRYGEN_PUBLISH_*      Publish target, bucket, region, endpoint\n")
		fmt.Fprintf(os.Stderr, "  TELEMETRYGEN_LOG_*          Log level and format\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("telemetrygen version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, o)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	if dryRun {
		cfg.Resolve()
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("Invalid configuration: %v", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			logger.Fatalf("Failed to render configuration: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if _, err := application.Run(ctx); err != nil {
		logger.WithError(err).Error("generation failed")
		stop()
		os.Exit(1)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile string, o overrides) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	// Apply command line flags (highest priority)
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.seed != 0 {
		cfg.Simulation.Seed = o.seed
	}
	if o.days != 0 {
		cfg.Simulation.Days = o.days
	}
	if o.players != 0 {
		cfg.Simulation.Players = o.players
	}
	if o.peakDAU != 0 {
		cfg.Simulation.PeakDAU = o.peakDAU
	}
	if o.patchDays != "" {
		days, err := parseDays(o.patchDays)
		if err != nil {
			return nil, err
		}
		cfg.Simulation.PatchDays = days
	}
	if o.batchSize != 0 {
		cfg.Simulation.BatchSize = o.batchSize
	}
	if o.driver != "" {
		cfg.Store.Driver = o.driver
	}
	if o.dbPath != "" {
		cfg.Store.Path = o.dbPath
	}
	if o.dsn != "" {
		cfg.Store.DSN = o.dsn
	}
	if o.publish != "" {
		cfg.Publish.Type = o.publish
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	return cfg, nil
}

func parseDays(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid patch day %q: %w", part, err)
		}
		days = append(days, d)
	}
	return days, nil
}
