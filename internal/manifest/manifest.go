// Package manifest records what a generation run produced.
//
// A manifest is a JSON sidecar written next to the database. It carries the
// run identity and parameters plus, for every table, the row count, the id
// range, the time range and a murmur3 fingerprint of the rows in write order.
// Two runs with the same seed and parameters produce manifests that differ
// only in RunID and GeneratedAt.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Suffix is appended to the database path to name the manifest file.
const Suffix = ".manifest.json"

// Manifest is the sidecar of one generation run.
type Manifest struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Seed        int64     `json:"seed"`
	StartDate   string    `json:"start_date"`
	Days        int       `json:"days"`
	Players     int       `json:"players"`
	PeakDAU     int       `json:"peak_dau"`
	PatchDays   []int     `json:"patch_days"`
	BatchSize   int       `json:"batch_size"`
	Experiment  string    `json:"experiment"`
	Driver      string    `json:"driver"`

	Tables map[string]TableStats `json:"tables"`

	// Activity totals not visible in the table counts
	SkippedDays  int   `json:"skipped_days"`
	Matches      int64 `json:"matches"`
	RevenueCents int64 `json:"revenue_eur_cents"`
	Flushes      int   `json:"flushes"`
}

// New creates a manifest with a fresh run id.
func New(seed int64) *Manifest {
	return &Manifest{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Seed:        seed,
		Tables:      make(map[string]TableStats),
	}
}

// PathFor returns the manifest path for a database path.
func PathFor(dbPath string) string {
	return dbPath + Suffix
}

// WriteToFile writes the manifest as indented JSON, creating parent
// directories as needed.
func (m *Manifest) WriteToFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: failed to marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("manifest: failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: failed to write file: %w", err)
	}
	return nil
}

// ReadFromFile loads a manifest written by WriteToFile.
func ReadFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to read file: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: failed to parse: %w", err)
	}
	return &m, nil
}

// SameOutput reports whether two manifests describe identical table
// contents. The run id and timestamps are ignored.
func (m *Manifest) SameOutput(other *Manifest) bool {
	if len(m.Tables) != len(other.Tables) {
		return false
	}
	for name, a := range m.Tables {
		b, ok := other.Tables[name]
		if !ok || a != b {
			return false
		}
	}
	return true
}

// TotalRows sums the row counts of every table.
func (m *Manifest) TotalRows() int64 {
	var n int64
	for _, t := range m.Tables {
		n += t.Rows
	}
	return n
}
