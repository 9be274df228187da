// Package simulation generates the synthetic game population and its
// day-by-day activity.
package simulation

import (
	"fmt"
	"time"
)

// Defaults for a laptop-sized run: about six months, a few minutes of
// generation and a database well below 1 GB.
const (
	DefaultDays             = 180
	DefaultPlayers          = 40_000
	DefaultPeakDAU          = 15_000
	DefaultSeed             = 131287
	DefaultMeanLifetimeDays = 45.0
	DefaultCoreShare        = 0.15
	DefaultBatchSize        = 50_000
	DefaultExperimentName   = "shop_pricing_v1"
	DefaultStartDate        = "2025-01-01"

	// SeasonLengthDays is the length of one ranked season.
	SeasonLengthDays = 60
)

// DefaultPatchDays are the content-patch days that spike the DAU curve.
var DefaultPatchDays = []int{60, 120, 180}

// Params controls one generation run.
type Params struct {
	// Start is midnight UTC of simulation day 0
	Start time.Time

	// Days is the simulation horizon
	Days int

	// Players is the size of the synthetic population
	Players int

	// PeakDAU is the design peak of the DAU curve; realized DAU is capped by
	// the number of live players
	PeakDAU int

	// PatchDays are the day indexes of content patches
	PatchDays []int

	// MeanLifetimeDays is the mean extra lifetime of non-core players
	MeanLifetimeDays float64

	// CoreShare is the fraction of players who never churn inside the horizon
	CoreShare float64

	// BatchSize is the buffered row count that triggers a flush
	BatchSize int

	// ExperimentName is the single experiment every player is assigned to
	ExperimentName string
}

// DefaultParams returns the default run parameters.
func DefaultParams() Params {
	start, _ := time.Parse("2006-01-02", DefaultStartDate)
	patches := make([]int, len(DefaultPatchDays))
	copy(patches, DefaultPatchDays)
	return Params{
		Start:            start.UTC(),
		Days:             DefaultDays,
		Players:          DefaultPlayers,
		PeakDAU:          DefaultPeakDAU,
		PatchDays:        patches,
		MeanLifetimeDays: DefaultMeanLifetimeDays,
		CoreShare:        DefaultCoreShare,
		BatchSize:        DefaultBatchSize,
		ExperimentName:   DefaultExperimentName,
	}
}

// Validate checks the preconditions the generators rely on.
func (p Params) Validate() error {
	if p.Days <= 0 {
		return fmt.Errorf("simulation: days must be positive, got %d", p.Days)
	}
	if p.Players <= 0 {
		return fmt.Errorf("simulation: players must be positive, got %d", p.Players)
	}
	if p.PeakDAU < 0 {
		return fmt.Errorf("simulation: peak DAU must not be negative, got %d", p.PeakDAU)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("simulation: batch size must be positive, got %d", p.BatchSize)
	}
	if p.CoreShare < 0 || p.CoreShare > 1 {
		return fmt.Errorf("simulation: core share must be in [0,1], got %v", p.CoreShare)
	}
	if p.MeanLifetimeDays <= 0 {
		return fmt.Errorf("simulation: mean lifetime must be positive, got %v", p.MeanLifetimeDays)
	}
	if p.ExperimentName == "" {
		return fmt.Errorf("simulation: experiment name is required")
	}
	return nil
}

// DayStart returns midnight UTC of simulation day idx.
func (p Params) DayStart(idx int) time.Time {
	return p.Start.AddDate(0, 0, idx)
}

// LastDay returns the index of the final simulated day.
func (p Params) LastDay() int {
	return p.Days - 1
}

// SeasonFor returns the 1-based season id of a day.
func SeasonFor(day int) int {
	return day/SeasonLengthDays + 1
}
