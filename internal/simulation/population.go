package simulation

import (
	"fmt"
	"math"

	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/arkilian/telemetrygen/pkg/types"
)

// GeneratePlayers builds the full synthetic population with ids 1..p.Players.
//
// Core attributes (creation day, locale, platform, segments, churn day) are
// drawn for every player first; acquisition attributes are drawn in a second
// pass over the same arena.
func GeneratePlayers(src *sampling.Source, p Params) []types.Player {
	last := p.LastDay()
	players := make([]types.Player, p.Players)

	for i := range players {
		created := creationDay(src, last)
		locale := localeDist.Draw(src)
		platform := platformDist.Draw(src)
		engagement := engagementDist.Draw(src)
		spend := spendDist.Draw(src)

		players[i] = types.Player{
			PlayerID:          int64(i + 1),
			CreatedAt:         p.DayStart(created),
			CreatedDayIdx:     created,
			ChurnDayIdx:       churnDay(src, created, last, p),
			CountryCode:       locale.Country,
			Platform:          platform,
			TimeZoneOffset:    locale.Offset,
			LanguageCode:      languageFor(locale.Country),
			EngagementSegment: engagement,
			SpendSegment:      spend,
			Level:             1,
		}
	}

	for i := range players {
		drawAcquisition(src, &players[i])
	}
	return players
}

// creationDay draws a front-loaded creation offset clipped to [0, last].
func creationDay(src *sampling.Source, last int) int {
	w := creationDist.Draw(src)
	hi := w.To
	if hi < 0 || hi > last {
		hi = last
	}
	day := src.IntBetween(w.From, hi)
	return clampDay(day, 0, last)
}

// churnDay returns the last day a player created on created may be active.
// Core players stay until the end of the horizon; everyone else gets an
// exponential extra lifetime of at least one day.
func churnDay(src *sampling.Source, created, last int, p Params) int {
	if src.Bernoulli(p.CoreShare) {
		return last
	}
	extra := int(math.Max(1, math.Floor(src.Exponential(p.MeanLifetimeDays))))
	return clampDay(created+extra, created, last)
}

func drawAcquisition(src *sampling.Source, pl *types.Player) {
	pl.AcquisitionChannel = channelDist.Draw(src)
	if pl.AcquisitionChannel != "Organic" {
		pl.AcquisitionCampaign = campaignDist.Draw(src)
	}
	pl.DeviceModel = fmt.Sprintf("%s_Device_%d", pl.Platform, src.IntBetween(1, 5))
	pl.OSVersion = fmt.Sprintf("%d.0", src.IntBetween(12, 16))
}

func clampDay(day, lo, hi int) int {
	if day < lo {
		return lo
	}
	if day > hi {
		return hi
	}
	return day
}
