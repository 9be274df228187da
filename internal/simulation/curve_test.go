package simulation

import (
	"testing"

	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBuildDAUCurve_LengthAndRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one value per day, inside [0, peak]", prop.ForAll(
		func(seed int64, days, peak int) bool {
			p := DefaultParams()
			p.Days = days
			p.PeakDAU = peak
			curve := BuildDAUCurve(sampling.New(seed), p)
			if len(curve) != days {
				return false
			}
			hitPeak := false
			for _, v := range curve {
				if v < 0 || v > peak {
					return false
				}
				if v == peak {
					hitPeak = true
				}
			}
			// The maximum day always normalizes to exactly the peak.
			return hitPeak
		},
		gen.Int64Range(1, 1<<40),
		gen.IntRange(1, 400),
		gen.IntRange(0, 20000),
	))

	properties.TestingRun(t)
}

func TestBuildDAUCurve_LaunchSpike(t *testing.T) {
	p := DefaultParams()
	for seed := int64(1); seed <= 20; seed++ {
		curve := BuildDAUCurve(sampling.New(seed), p)
		if curve[0] < p.PeakDAU*9/10 {
			t.Errorf("seed %d: day 0 = %d, expected within top decile of peak %d", seed, curve[0], p.PeakDAU)
		}
	}
}

func TestBuildDAUCurve_SameSeedSameCurve(t *testing.T) {
	p := DefaultParams()
	a := BuildDAUCurve(sampling.New(DefaultSeed), p)
	b := BuildDAUCurve(sampling.New(DefaultSeed), p)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("curves diverge at day %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestBuildDAUCurve_EmptyHorizon(t *testing.T) {
	p := DefaultParams()
	p.Days = 0
	if curve := BuildDAUCurve(sampling.New(1), p); len(curve) != 0 {
		t.Errorf("expected empty curve, got %d values", len(curve))
	}
}

func TestPatchMultiplier(t *testing.T) {
	patches := []int{60, 120, 180}
	tests := []struct {
		day  int
		want float64
	}{
		{60, 1.4},
		{61, 1.2},
		{58, 1.1},
		{63, 1.0},
		{119, 1.2},
		{179, 1.0}, // day 180 lies outside a 180-day horizon
	}
	for _, tt := range tests {
		if got := patchMultiplier(tt.day, 180, patches); got != tt.want {
			t.Errorf("patchMultiplier(%d) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestSeasonMultiplier(t *testing.T) {
	if got := seasonMultiplier(0, 365); got != 1.0 {
		t.Errorf("day 0: got %v", got)
	}
	if got := seasonMultiplier(200, 365); got != summerMultiplier {
		t.Errorf("summer: got %v", got)
	}
	if got := seasonMultiplier(350, 365); got != holidayMultiplier {
		t.Errorf("holiday: got %v", got)
	}
}
