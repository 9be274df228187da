// Package config provides the configuration of a telemetrygen run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/internal/simulation"
	"github.com/arkilian/telemetrygen/internal/store"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "TELEMETRYGEN_"

// Publish targets.
const (
	PublishNone  = "none"
	PublishLocal = "local"
	PublishS3    = "s3"
)

// Config holds the configuration of one generation run.
type Config struct {
	// DataDir is the base directory for all output files
	DataDir string `json:"data_dir" yaml:"data_dir" toml:"data_dir" env:"DATA_DIR"`

	Simulation SimulationConfig `json:"simulation" yaml:"simulation" toml:"simulation" envPrefix:"SIM_"`
	Store      StoreConfig      `json:"store" yaml:"store" toml:"store" envPrefix:"STORE_"`
	Publish    PublishConfig    `json:"publish" yaml:"publish" toml:"publish" envPrefix:"PUBLISH_"`
	Log        LogConfig        `json:"log" yaml:"log" toml:"log" envPrefix:"LOG_"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" toml:"metrics" envPrefix:"METRICS_"`
}

// SimulationConfig holds the generator parameters.
type SimulationConfig struct {
	Seed    int64 `json:"seed" yaml:"seed" toml:"seed" env:"SEED"`
	Days    int   `json:"days" yaml:"days" toml:"days" env:"DAYS"`
	Players int   `json:"players" yaml:"players" toml:"players" env:"PLAYERS"`
	PeakDAU int   `json:"peak_dau" yaml:"peak_dau" toml:"peak_dau" env:"PEAK_DAU"`

	// PatchDays are content-patch day indexes
	PatchDays []int `json:"patch_days" yaml:"patch_days" toml:"patch_days" env:"PATCH_DAYS"`

	// StartDate is the calendar date of day 0 (YYYY-MM-DD, UTC)
	StartDate string `json:"start_date" yaml:"start_date" toml:"start_date" env:"START_DATE"`

	MeanLifetimeDays float64 `json:"mean_lifetime_days" yaml:"mean_lifetime_days" toml:"mean_lifetime_days" env:"MEAN_LIFETIME_DAYS"`
	CoreShare        float64 `json:"core_share" yaml:"core_share" toml:"core_share" env:"CORE_SHARE"`

	// BatchSize is the buffered row count that triggers a flush
	BatchSize int `json:"batch_size" yaml:"batch_size" toml:"batch_size" env:"BATCH_SIZE"`

	Experiment string `json:"experiment" yaml:"experiment" toml:"experiment" env:"EXPERIMENT"`
}

// StoreConfig selects the output database.
type StoreConfig struct {
	// Driver is sqlite, postgres or memory
	Driver string `json:"driver" yaml:"driver" toml:"driver" env:"DRIVER"`

	// Path is the SQLite file; defaults to <data_dir>/telemetry.db
	Path string `json:"path" yaml:"path" toml:"path" env:"PATH"`

	DSN string `json:"dsn" yaml:"dsn" toml:"dsn" env:"DSN"`

	// SchemaPath overrides the embedded DDL
	SchemaPath string `json:"schema_path" yaml:"schema_path" toml:"schema_path" env:"SCHEMA_PATH"`
}

// PublishConfig controls the upload of the finished run.
type PublishConfig struct {
	// Type is none, local or s3
	Type string `json:"type" yaml:"type" toml:"type" env:"TYPE"`

	// Path is the root of local publishing
	Path string `json:"path" yaml:"path" toml:"path" env:"PATH"`

	Bucket   string `json:"bucket" yaml:"bucket" toml:"bucket" env:"BUCKET"`
	Region   string `json:"region" yaml:"region" toml:"region" env:"REGION"`
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint" env:"ENDPOINT"`

	// Compress uploads snappy-framed copies
	Compress bool `json:"compress" yaml:"compress" toml:"compress" env:"COMPRESS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" env:"LEVEL"`
	Format string `json:"format" yaml:"format" toml:"format" env:"FORMAT"`

	// ProgressEvery logs a day summary every N simulated days
	ProgressEvery int `json:"progress_every" yaml:"progress_every" toml:"progress_every" env:"PROGRESS_EVERY"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Textfile is the node-exporter textfile written at the end of a run;
	// "-" disables it
	Textfile string `json:"textfile" yaml:"textfile" toml:"textfile" env:"TEXTFILE"`
}

// DefaultConfig returns the configuration of the default laptop-sized run.
func DefaultConfig() *Config {
	patches := make([]int, len(simulation.DefaultPatchDays))
	copy(patches, simulation.DefaultPatchDays)
	return &Config{
		DataDir: "./data/telemetrygen",
		Simulation: SimulationConfig{
			Seed:             simulation.DefaultSeed,
			Days:             simulation.DefaultDays,
			Players:          simulation.DefaultPlayers,
			PeakDAU:          simulation.DefaultPeakDAU,
			PatchDays:        patches,
			StartDate:        simulation.DefaultStartDate,
			MeanLifetimeDays: simulation.DefaultMeanLifetimeDays,
			CoreShare:        simulation.DefaultCoreShare,
			BatchSize:        simulation.DefaultBatchSize,
			Experiment:       simulation.DefaultExperimentName,
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
		},
		Publish: PublishConfig{
			Type:   PublishNone,
			Region: "us-east-1",
		},
		Log: LogConfig{
			Level:         "info",
			Format:        "text",
			ProgressEvery: 30,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/telemetrygen"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "telemetry.db")
	}
	if c.Publish.Path == "" {
		c.Publish.Path = filepath.Join(c.DataDir, "published")
	}
	if c.Metrics.Textfile == "" {
		c.Metrics.Textfile = filepath.Join(c.DataDir, "telemetrygen.prom")
	}
}

// MetricsEnabled reports whether a metrics textfile is written.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Textfile != "-"
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return invalid("data_dir is required")
	}

	s := c.Simulation
	if s.Days <= 0 {
		return invalid(fmt.Sprintf("simulation.days must be positive, got %d", s.Days))
	}
	if s.Players <= 0 {
		return invalid(fmt.Sprintf("simulation.players must be positive, got %d", s.Players))
	}
	if s.PeakDAU <= 0 {
		return invalid(fmt.Sprintf("simulation.peak_dau must be positive, got %d", s.PeakDAU))
	}
	if s.BatchSize <= 0 {
		return invalid(fmt.Sprintf("simulation.batch_size must be positive, got %d", s.BatchSize))
	}
	if s.MeanLifetimeDays <= 0 {
		return invalid(fmt.Sprintf("simulation.mean_lifetime_days must be positive, got %v", s.MeanLifetimeDays))
	}
	if s.CoreShare < 0 || s.CoreShare > 1 {
		return invalid(fmt.Sprintf("simulation.core_share must be in [0,1], got %v", s.CoreShare))
	}
	if s.Experiment == "" {
		return invalid("simulation.experiment is required")
	}
	if _, err := parseStart(s.StartDate); err != nil {
		return invalid(fmt.Sprintf("simulation.start_date %q is not YYYY-MM-DD", s.StartDate))
	}

	switch c.Store.Driver {
	case store.DriverSQLite, store.DriverMemory:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			return invalid("store.dsn is required when driver is postgres")
		}
	default:
		return invalid(fmt.Sprintf("invalid store driver: %s (must be sqlite, postgres or memory)", c.Store.Driver))
	}

	switch c.Publish.Type {
	case PublishNone, PublishLocal:
	case PublishS3:
		if c.Publish.Bucket == "" {
			return invalid("publish.bucket is required when publish type is s3")
		}
	default:
		return invalid(fmt.Sprintf("invalid publish type: %s (must be none, local or s3)", c.Publish.Type))
	}
	if c.Publish.Type != PublishNone && c.Store.Driver != store.DriverSQLite {
		return invalid("publishing requires the sqlite driver")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	return nil
}

// Params converts the simulation section into generator parameters.
func (c *Config) Params() (simulation.Params, error) {
	start, err := parseStart(c.Simulation.StartDate)
	if err != nil {
		return simulation.Params{}, invalid(fmt.Sprintf("simulation.start_date %q is not YYYY-MM-DD", c.Simulation.StartDate))
	}
	patches := make([]int, len(c.Simulation.PatchDays))
	copy(patches, c.Simulation.PatchDays)
	return simulation.Params{
		Start:            start,
		Days:             c.Simulation.Days,
		Players:          c.Simulation.Players,
		PeakDAU:          c.Simulation.PeakDAU,
		PatchDays:        patches,
		MeanLifetimeDays: c.Simulation.MeanLifetimeDays,
		CoreShare:        c.Simulation.CoreShare,
		BatchSize:        c.Simulation.BatchSize,
		ExperimentName:   c.Simulation.Experiment,
	}, nil
}

// StoreOptions returns the options used to open the output sink.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:     c.Store.Driver,
		Path:       c.Store.Path,
		DSN:        c.Store.DSN,
		SchemaPath: c.Store.SchemaPath,
	}
}

// LoadFromFile loads configuration from a YAML, JSON or TOML file on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, generrors.Wrap(generrors.ErrCategoryConfig, generrors.CodeLoadFailed, "failed to read config file", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, generrors.NewConfigError(generrors.CodeUnknownFormat, "unsupported config file format: "+ext)
	}
	if err != nil {
		return nil, generrors.Wrap(generrors.ErrCategoryConfig, generrors.CodeLoadFailed, "failed to parse "+strings.TrimPrefix(ext, ".")+" config", err)
	}

	return cfg, nil
}

// LoadFromEnv overlays TELEMETRYGEN_* environment variables onto cfg. A .env
// file in the working directory, when present, is loaded first; variables
// already set in the environment win.
func LoadFromEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return generrors.Wrap(generrors.ErrCategoryConfig, generrors.CodeLoadFailed, "failed to load .env", err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return generrors.Wrap(generrors.ErrCategoryConfig, generrors.CodeLoadFailed, "failed to parse environment", err)
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Store.Driver == store.DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Store.Path))
	}
	if c.Publish.Type == PublishLocal {
		dirs = append(dirs, c.Publish.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func parseStart(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func invalid(msg string) error {
	return generrors.NewConfigError(generrors.CodeInvalidValue, msg)
}
