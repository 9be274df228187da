package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/internal/simulation"
	"github.com/arkilian/telemetrygen/internal/store"
)

func TestDefaultConfig_MatchesGeneratorConstants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	want := simulation.DefaultParams()
	if !reflect.DeepEqual(p, want) {
		t.Errorf("Params() = %+v, want %+v", p, want)
	}
	if cfg.Simulation.Seed != simulation.DefaultSeed {
		t.Errorf("seed = %d, want %d", cfg.Simulation.Seed, simulation.DefaultSeed)
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/tg"
	cfg.Resolve()

	if cfg.Store.Path != filepath.Join("/tmp/tg", "telemetry.db") {
		t.Errorf("store path = %s", cfg.Store.Path)
	}
	if cfg.Metrics.Textfile != filepath.Join("/tmp/tg", "telemetrygen.prom") {
		t.Errorf("textfile = %s", cfg.Metrics.Textfile)
	}

	cfg = DefaultConfig()
	cfg.Store.Path = "custom.db"
	cfg.Metrics.Textfile = "-"
	cfg.Resolve()
	if cfg.Store.Path != "custom.db" {
		t.Errorf("explicit store path overwritten: %s", cfg.Store.Path)
	}
	if cfg.MetricsEnabled() {
		t.Error("metrics should be disabled by \"-\"")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero days", func(c *Config) { c.Simulation.Days = 0 }},
		{"negative players", func(c *Config) { c.Simulation.Players = -1 }},
		{"zero peak", func(c *Config) { c.Simulation.PeakDAU = 0 }},
		{"zero batch", func(c *Config) { c.Simulation.BatchSize = 0 }},
		{"core share above one", func(c *Config) { c.Simulation.CoreShare = 1.5 }},
		{"empty experiment", func(c *Config) { c.Simulation.Experiment = "" }},
		{"bad start date", func(c *Config) { c.Simulation.StartDate = "01/01/2025" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = store.DriverPostgres }},
		{"unknown publish type", func(c *Config) { c.Publish.Type = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Publish.Type = PublishS3 }},
		{"publish from memory", func(c *Config) {
			c.Store.Driver = store.DriverMemory
			c.Publish.Type = PublishLocal
		}},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if generrors.GetCategory(err) != generrors.ErrCategoryConfig {
				t.Errorf("category = %s, want CONFIG", generrors.GetCategory(err))
			}
		})
	}
}

func TestLoadFromFile_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"run.yaml": "data_dir: /data\nsimulation:\n  days: 30\n  patch_days: [10, 20]\nstore:\n  driver: memory\n",
		"run.json": `{"data_dir": "/data", "simulation": {"days": 30, "patch_days": [10, 20]}, "store": {"driver": "memory"}}`,
		"run.toml": "data_dir = \"/data\"\n[simulation]\ndays = 30\npatch_days = [10, 20]\n[store]\ndriver = \"memory\"\n",
	}

	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile failed: %v", err)
			}
			if cfg.DataDir != "/data" {
				t.Errorf("data_dir = %s", cfg.DataDir)
			}
			if cfg.Simulation.Days != 30 {
				t.Errorf("days = %d, want 30", cfg.Simulation.Days)
			}
			if !reflect.DeepEqual(cfg.Simulation.PatchDays, []int{10, 20}) {
				t.Errorf("patch days = %v", cfg.Simulation.PatchDays)
			}
			if cfg.Store.Driver != store.DriverMemory {
				t.Errorf("driver = %s", cfg.Store.Driver)
			}
			// Unset keys keep their defaults
			if cfg.Simulation.Players != simulation.DefaultPlayers {
				t.Errorf("players = %d, want default", cfg.Simulation.Players)
			}
		})
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); generrors.GetCode(err) != generrors.CodeLoadFailed {
		t.Errorf("missing file: code = %s", generrors.GetCode(err))
	}

	ini := filepath.Join(dir, "run.ini")
	if err := os.WriteFile(ini, []byte("x=1"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFromFile(ini); generrors.GetCode(err) != generrors.CodeUnknownFormat {
		t.Errorf("ini: code = %s", generrors.GetCode(err))
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFromFile(bad); generrors.GetCode(err) != generrors.CodeLoadFailed {
		t.Errorf("bad json: code = %s", generrors.GetCode(err))
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TELEMETRYGEN_DATA_DIR", "/env/data")
	t.Setenv("TELEMETRYGEN_SIM_SEED", "42")
	t.Setenv("TELEMETRYGEN_SIM_PEAK_DAU", "900")
	t.Setenv("TELEMETRYGEN_SIM_PATCH_DAYS", "5,15")
	t.Setenv("TELEMETRYGEN_STORE_DRIVER", "postgres")
	t.Setenv("TELEMETRYGEN_STORE_DSN", "postgres://localhost/tg")
	t.Setenv("TELEMETRYGEN_PUBLISH_COMPRESS", "true")
	t.Setenv("TELEMETRYGEN_LOG_FORMAT", "json")

	// Run from an empty directory so no stray .env is picked up
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.DataDir != "/env/data" {
		t.Errorf("data_dir = %s", cfg.DataDir)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %d", cfg.Simulation.Seed)
	}
	if cfg.Simulation.PeakDAU != 900 {
		t.Errorf("peak = %d", cfg.Simulation.PeakDAU)
	}
	if !reflect.DeepEqual(cfg.Simulation.PatchDays, []int{5, 15}) {
		t.Errorf("patch days = %v", cfg.Simulation.PatchDays)
	}
	if cfg.Store.Driver != store.DriverPostgres || cfg.Store.DSN != "postgres://localhost/tg" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if !cfg.Publish.Compress {
		t.Error("compress not set")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %s", cfg.Log.Format)
	}
	// Untouched values keep their defaults
	if cfg.Simulation.Days != simulation.DefaultDays {
		t.Errorf("days = %d, want default", cfg.Simulation.Days)
	}
}

func TestLoadFromEnv_DotEnv(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEMETRYGEN_SIM_DAYS=12\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)
	defer os.Unsetenv("TELEMETRYGEN_SIM_DAYS")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Simulation.Days != 12 {
		t.Errorf("days = %d, want 12", cfg.Simulation.Days)
	}
}

func TestParams_StartDate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.StartDate = "2024-03-10"
	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	if !p.Start.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", p.Start)
	}

	// Params owns its patch list
	p.PatchDays[0] = -1
	if cfg.Simulation.PatchDays[0] == -1 {
		t.Error("Params shares the patch slice with the config")
	}
}
