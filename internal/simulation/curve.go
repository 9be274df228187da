package simulation

import (
	"math"

	"github.com/arkilian/telemetrygen/internal/sampling"
)

// Shape constants of the DAU curve, in relative units before normalization.
const (
	curveFloor       = 0.6 // long-term plateau
	curveLaunchSpike = 0.8 // extra height at t=0 above the plateau
	curveMinTau      = 7.0 // minimum decay time constant in days
	curveTauShare    = 0.10

	summerFrom, summerTo       = 150, 240
	summerMultiplier           = 0.8
	holidayFrom, holidayTo     = 330, 364
	holidayMultiplier          = 1.3
	curveNoiseLo, curveNoiseHi = 0.95, 1.05
)

// patchMultipliers is the boost at distance 0, 1 and 2 from a patch day.
var patchMultipliers = [...]float64{1.4, 1.2, 1.1}

// BuildDAUCurve returns one non-negative DAU target per simulated day.
//
// The curve has a launch spike decaying towards a plateau, a summer dip and a
// holiday boost keyed by a day-of-year mapping of the horizon, short spikes
// around patch days and ±5% uniform noise. The raw series is normalized by its
// maximum and scaled to PeakDAU. One noise draw is consumed per day.
func BuildDAUCurve(src *sampling.Source, p Params) []int {
	if p.Days <= 0 {
		return nil
	}
	tau := math.Max(curveMinTau, float64(p.Days)*curveTauShare)
	rel := make([]float64, p.Days)
	maxRel := 0.0

	for t := 0; t < p.Days; t++ {
		base := curveFloor + curveLaunchSpike*math.Exp(-float64(t)/tau)
		v := base * seasonMultiplier(t, p.Days) * patchMultiplier(t, p.Days, p.PatchDays)
		v *= src.Uniform(curveNoiseLo, curveNoiseHi)
		rel[t] = v
		if v > maxRel {
			maxRel = v
		}
	}

	out := make([]int, p.Days)
	for t, v := range rel {
		out[t] = int(math.Round(float64(p.PeakDAU) * (v / maxRel)))
	}
	return out
}

// seasonMultiplier maps day t of a days-long horizon onto a calendar year.
func seasonMultiplier(t, days int) float64 {
	dayOfYear := int(float64(t) * (365.0 / float64(max(1, days))))
	m := 1.0
	if dayOfYear >= summerFrom && dayOfYear <= summerTo {
		m *= summerMultiplier
	}
	if dayOfYear >= holidayFrom && dayOfYear <= holidayTo {
		m *= holidayMultiplier
	}
	return m
}

// patchMultiplier combines the boosts of every patch day inside the horizon.
func patchMultiplier(t, days int, patchDays []int) float64 {
	m := 1.0
	for _, pd := range patchDays {
		if pd < 0 || pd >= days {
			continue
		}
		dist := t - pd
		if dist < 0 {
			dist = -dist
		}
		if dist < len(patchMultipliers) {
			m *= patchMultipliers[dist]
		}
	}
	return m
}
