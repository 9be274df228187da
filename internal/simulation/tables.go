package simulation

import (
	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/arkilian/telemetrygen/pkg/types"
)

// Locale is a country together with the UTC offset its players use.
type Locale struct {
	Country string
	Offset  int
}

// Product is a shop SKU with a fixed EUR price.
type Product struct {
	SKU        string
	Type       string
	PriceCents int64
	SoftGrant  int
	HardGrant  int
}

// ProductID is the value stored in purchases.product_id.
func (p Product) ProductID() string {
	return "prod_" + p.SKU
}

// tierSpec is a team size class and how its capacity is drawn.
type tierSpec struct {
	Tier   types.TeamTier
	MinCap int
	MaxCap int
}

// creationWindow is one bucket of the front-loaded account creation mixture.
type creationWindow struct {
	From int
	To   int
}

// Fixed distributions. US/NA and Western Europe are slightly overweighted;
// OTHER keeps the dataset from being too Euro/US centric.
var (
	localeDist = sampling.Weighted(
		[]Locale{
			{"US", -5}, {"US", -8}, {"CA", -5}, {"GB", 0}, {"DE", 1}, {"FR", 1},
			{"BR", -3}, {"IN", 5}, {"JP", 9}, {"KR", 9}, {"OTHER", 0},
		},
		[]float64{0.12, 0.08, 0.04, 0.08, 0.06, 0.06, 0.08, 0.08, 0.08, 0.08, 0.24},
	)

	platformDist = sampling.Weighted(
		[]string{"Android", "iOS"},
		[]float64{0.6, 0.4},
	)

	engagementDist = sampling.Weighted(
		[]types.EngagementSegment{types.EngagementCasual, types.EngagementMidcore, types.EngagementHeavy},
		[]float64{0.7, 0.2, 0.1},
	)

	// whales 0.2%, dolphins 1.8%, minnows 8%, everyone else pays nothing
	spendDist = sampling.Weighted(
		[]types.SpendSegment{types.SpendWhale, types.SpendDolphin, types.SpendMinnow, types.SpendNonpayer},
		[]float64{0.002, 0.018, 0.08, 0.9},
	)

	// 60% in the first four days, 25% over the next month, 10% over the
	// following two months, 5% trickle in until the end
	creationDist = sampling.Weighted(
		[]creationWindow{{0, 3}, {4, 30}, {31, 90}, {91, -1}},
		[]float64{0.60, 0.25, 0.10, 0.05},
	)

	channelDist = sampling.Weighted(
		[]string{"Organic", "AdsNetworkA", "AdsNetworkB", "CrossPromo"},
		[]float64{0.5, 0.2, 0.2, 0.1},
	)

	campaignDist = sampling.Weighted(
		[]string{"", "Launch2025", "SummerEvent", "HolidayPush"},
		[]float64{1, 1, 1, 1},
	)

	tierDist = sampling.Weighted(
		[]tierSpec{
			{types.TierSmall, 1, 5},
			{types.TierMedium, 25, 25},
			{types.TierLarge, 45, 45},
		},
		[]float64{0.7, 0.2, 0.1},
	)

	variantDist = sampling.Weighted(
		[]string{"Control", "A", "B"},
		[]float64{0.5, 0.25, 0.25},
	)

	casualSessions = sampling.Weighted(
		[]int{1, 2, 3},
		[]float64{0.6, 0.3, 0.1},
	)

	midcoreSessions = sampling.Weighted(
		[]int{1, 2, 3, 4},
		[]float64{0.2, 0.4, 0.3, 0.1},
	)

	localHourDist = sampling.Weighted(
		[]int{12, 15, 18, 20, 22},
		[]float64{0.1, 0.2, 0.4, 0.2, 0.1},
	)

	entryPointDist = sampling.Weighted(
		[]string{"icon_tap", "push", "reengagement_ad"},
		[]float64{1, 1, 1},
	)

	matchCountDist = sampling.Weighted(
		[]int{0, 1, 2, 3, 4},
		[]float64{0.1, 0.4, 0.3, 0.15, 0.05},
	)

	gameModeDist = sampling.Weighted(
		[]string{"solo", "duo", "team"},
		[]float64{0.5, 0.2, 0.3},
	)

	outcomeDist = sampling.Weighted(
		[]string{"win", "loss", "draw"},
		[]float64{0.45, 0.45, 0.10},
	)

	productDist = sampling.Weighted(
		[]Product{
			{SKU: "soft_small", Type: "SoftPack", PriceCents: 199, SoftGrant: 500},
			{SKU: "soft_large", Type: "SoftPack", PriceCents: 999, SoftGrant: 3000},
			{SKU: "hard_small", Type: "HardPack", PriceCents: 499, HardGrant: 50},
			{SKU: "hard_large", Type: "HardPack", PriceCents: 1999, HardGrant: 300},
			{SKU: "bundle", Type: "Bundle", PriceCents: 999, SoftGrant: 2500, HardGrant: 50},
		},
		[]float64{0.3, 0.2, 0.2, 0.1, 0.2},
	)
)

// purchaseProbability is the per-match purchase chance of a spend segment.
func purchaseProbability(s types.SpendSegment) float64 {
	switch s {
	case types.SpendMinnow:
		return 0.01
	case types.SpendDolphin:
		return 0.03
	case types.SpendWhale:
		return 0.10
	default:
		return 0
	}
}

// softDeltaRange is the soft-currency reward range for a match outcome.
func softDeltaRange(outcome string) (lo, hi int) {
	switch outcome {
	case "win":
		return 15, 40
	case "loss":
		return 5, 20
	default:
		return 5, 25
	}
}

// languageFor maps a country to the client language.
func languageFor(country string) string {
	switch country {
	case "DE":
		return "de"
	case "FR":
		return "fr"
	case "BR":
		return "pt"
	case "JP":
		return "ja"
	case "KR":
		return "ko"
	default:
		return "en"
	}
}

// Catalogue returns the shop products in declaration order.
func Catalogue() []Product {
	return productDist.Values()
}

// SpendSegmentProbabilities returns the population share of each spend
// segment, whale first.
func SpendSegmentProbabilities() map[types.SpendSegment]float64 {
	out := make(map[types.SpendSegment]float64, spendDist.Len())
	probs := spendDist.Probabilities()
	for i, seg := range spendDist.Values() {
		out[seg] = probs[i]
	}
	return out
}

// EngagementSegmentProbabilities returns the population share of each
// engagement segment.
func EngagementSegmentProbabilities() map[types.EngagementSegment]float64 {
	out := make(map[types.EngagementSegment]float64, engagementDist.Len())
	probs := engagementDist.Probabilities()
	for i, seg := range engagementDist.Values() {
		out[seg] = probs[i]
	}
	return out
}
