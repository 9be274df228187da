package simulation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/arkilian/telemetrygen/internal/store"
	"github.com/arkilian/telemetrygen/pkg/types"
)

const (
	levelUpProbability = 0.05
	minSessionSec      = 60
	heavyMinSessions   = 2
	heavyMaxSessions   = 10
	currencyEUR        = "EUR"
)

var (
	sessionMedianLog = math.Log(600)
	sessionSigma     = 0.7

	matchStartedMeta = `{"note": "match_started"}`
	matchEndedMeta   = `{"note": "match_ended"}`
)

// DayStats summarizes one simulated day.
type DayStats struct {
	Day       int
	Target    int
	PoolSize  int
	Admitted  int
	Evicted   int
	Realized  int
	Sessions  int
	Events    int
	Purchases int

	// Skipped is set when the pool was empty or the target was zero.
	Skipped bool
}

// Summary totals a completed activity run.
type Summary struct {
	Days         int
	SkippedDays  int
	Sessions     int64
	Events       int64
	Purchases    int64
	Matches      int64
	RevenueCents int64
	Flushes      int
}

// Activity generates sessions, events and purchases day by day. It owns the
// active pool and the id counters; the player arena is shared with the
// caller and mutated in place for level and spend.
type Activity struct {
	src     *sampling.Source
	params  Params
	players []types.Player
	buf     *store.Buffer

	// byCreation holds arena indices ordered by creation day.
	byCreation []int
	cursor     int
	pool       []int
	scratch    []int

	nextSession  int64
	nextEvent    int64
	nextPurchase int64
	nextMatch    int64

	onDay func(DayStats)
}

// NewActivity prepares a generator over players that writes through buf.
func NewActivity(src *sampling.Source, p Params, players []types.Player, buf *store.Buffer) *Activity {
	order := make([]int, len(players))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return players[order[a]].CreatedDayIdx < players[order[b]].CreatedDayIdx
	})

	return &Activity{
		src:          src,
		params:       p,
		players:      players,
		buf:          buf,
		byCreation:   order,
		nextSession:  1,
		nextEvent:    1,
		nextPurchase: 1,
		nextMatch:    1,
	}
}

// OnDay registers an observer called once per simulated day, skipped days
// included.
func (a *Activity) OnDay(fn func(DayStats)) {
	a.onDay = fn
}

// Run simulates every day of curve. The buffer is flushed whenever it fills
// and once more at the end. Cancellation is checked at each day boundary.
func (a *Activity) Run(ctx context.Context, curve []int) (Summary, error) {
	var sum Summary
	for day, target := range curve {
		if err := ctx.Err(); err != nil {
			return sum, generrors.NewGenerationError(generrors.CodeCancelled,
				fmt.Sprintf("activity aborted before day %d", day), err)
		}

		stats, err := a.simulateDay(ctx, day, target)
		if err != nil {
			return sum, err
		}
		sum.Days++
		if stats.Skipped {
			sum.SkippedDays++
		}
		sum.Sessions += int64(stats.Sessions)
		sum.Events += int64(stats.Events)
		sum.Purchases += int64(stats.Purchases)
		if a.onDay != nil {
			a.onDay(stats)
		}
	}

	if err := a.flush(ctx); err != nil {
		return sum, err
	}
	sum.Matches = a.nextMatch - 1
	sum.Flushes = a.buf.Flushes()
	for i := range a.players {
		sum.RevenueCents += a.players[i].TotalSpendCents
	}
	return sum, nil
}

// PoolSize returns the current number of players in the active pool.
func (a *Activity) PoolSize() int {
	return len(a.pool)
}

func (a *Activity) simulateDay(ctx context.Context, day, target int) (DayStats, error) {
	stats := DayStats{Day: day, Target: target}

	// Evict churned players so the pool never holds anyone past their last day.
	kept := a.pool[:0]
	for _, idx := range a.pool {
		if a.players[idx].ChurnDayIdx >= day {
			kept = append(kept, idx)
		}
	}
	stats.Evicted = len(a.pool) - len(kept)
	a.pool = kept

	for a.cursor < len(a.byCreation) && a.players[a.byCreation[a.cursor]].CreatedDayIdx <= day {
		a.pool = append(a.pool, a.byCreation[a.cursor])
		a.cursor++
		stats.Admitted++
	}
	stats.PoolSize = len(a.pool)

	realized := min(target, len(a.pool))
	if len(a.pool) == 0 || realized <= 0 {
		stats.Skipped = true
		return stats, nil
	}
	stats.Realized = realized

	dayStart := a.params.DayStart(day)
	season := SeasonFor(day)

	a.scratch = sampling.Sample(a.src, a.pool, realized, a.scratch)
	for _, idx := range a.scratch {
		pl := &a.players[idx]
		sessions := a.sessionsToday(pl.EngagementSegment)
		for s := 0; s < sessions; s++ {
			events, purchases := a.emitSession(pl, dayStart, season)
			stats.Sessions++
			stats.Events += events
			stats.Purchases += purchases
			if a.buf.Full() {
				if err := a.flush(ctx); err != nil {
					return stats, err
				}
			}
		}
	}
	return stats, nil
}

func (a *Activity) sessionsToday(seg types.EngagementSegment) int {
	switch seg {
	case types.EngagementCasual:
		return casualSessions.Draw(a.src)
	case types.EngagementMidcore:
		return midcoreSessions.Draw(a.src)
	default:
		raw := int(math.Floor(a.src.Pareto(2.0)))
		return max(heavyMinSessions, min(raw, heavyMaxSessions))
	}
}

// emitSession buffers one session with its matches and purchases and returns
// the number of events and purchases it produced.
func (a *Activity) emitSession(pl *types.Player, dayStart time.Time, season int) (events, purchases int) {
	localHour := localHourDist.Draw(a.src)
	minute := a.src.IntBetween(0, 59)
	// Everything a session emits stays on the simulated UTC day, which keeps
	// it inside the player's lifetime window.
	lastInstant := dayStart.Add(24*time.Hour - time.Second)
	utcHour := ((localHour-pl.TimeZoneOffset)%24 + 24) % 24
	start := dayStart.Add(time.Duration(utcHour)*time.Hour + time.Duration(minute)*time.Minute)
	start = clampTime(start, lastInstant.Add(-minSessionSec*time.Second))

	duration := max(minSessionSec, int(a.src.LogNormal(sessionMedianLog, sessionSigma)))
	duration = min(duration, int(lastInstant.Sub(start)/time.Second))
	session := types.Session{
		SessionID:     a.nextSession,
		PlayerID:      pl.PlayerID,
		Start:         start,
		End:           start.Add(time.Duration(duration) * time.Second),
		DurationSec:   duration,
		ClientVersion: fmt.Sprintf("1.0.%d", a.src.IntBetween(0, 20)),
		BuildNumber:   fmt.Sprintf("%d", a.src.IntBetween(1000, 2000)),
		CountryCode:   pl.CountryCode,
		Platform:      pl.Platform,
		EntryPoint:    entryPointDist.Draw(a.src),
		SeasonID:      season,
	}
	a.nextSession++
	a.buf.AddSession(session)

	matches := matchCountDist.Draw(a.src)
	if matches == 0 {
		return 0, 0
	}

	matchStart := clampTime(start.Add(time.Duration(a.src.IntBetween(0, duration/3))*time.Second), lastInstant)
	for m := 0; m < matches; m++ {
		matchID := a.nextMatch
		a.nextMatch++

		mode := gameModeDist.Draw(a.src)
		outcome := outcomeDist.Draw(a.src)
		lo, hi := softDeltaRange(outcome)
		softDelta := a.src.IntBetween(lo, hi)

		a.buf.AddEvent(types.Event{
			EventID:      a.nextEvent,
			PlayerID:     pl.PlayerID,
			SessionID:    session.SessionID,
			Time:         matchStart,
			EventType:    types.EventMatchStart,
			GameMode:     mode,
			Level:        pl.Level,
			MatchID:      matchID,
			MetadataJSON: matchStartedMeta,
		})
		a.nextEvent++

		end := clampTime(matchStart.Add(time.Duration(a.src.IntBetween(60, 900))*time.Second), lastInstant)
		a.buf.AddEvent(types.Event{
			EventID:      a.nextEvent,
			PlayerID:     pl.PlayerID,
			SessionID:    session.SessionID,
			Time:         end,
			EventType:    types.EventMatchEnd,
			GameMode:     mode,
			MatchOutcome: outcome,
			Level:        pl.Level,
			MatchID:      matchID,
			SoftDelta:    softDelta,
			MetadataJSON: matchEndedMeta,
		})
		a.nextEvent++
		events += 2

		if a.src.Bernoulli(levelUpProbability) {
			pl.Level++
		}

		if pl.SpendSegment.IsPayer() && a.src.Bernoulli(purchaseProbability(pl.SpendSegment)) {
			a.emitPurchase(pl, session.SessionID, end, lastInstant)
			purchases++
		}

		matchStart = clampTime(end.Add(time.Duration(a.src.IntBetween(10, 120))*time.Second), lastInstant)
	}
	return events, purchases
}

func (a *Activity) emitPurchase(pl *types.Player, sessionID int64, matchEnd, lastInstant time.Time) {
	product := productDist.Draw(a.src)
	at := clampTime(matchEnd.Add(time.Duration(a.src.IntBetween(5, 60))*time.Second), lastInstant)

	a.buf.AddPurchase(types.Purchase{
		PurchaseID:       a.nextPurchase,
		PlayerID:         pl.PlayerID,
		SessionID:        sessionID,
		Time:             at,
		ProductID:        product.ProductID(),
		ProductType:      product.Type,
		CurrencyCode:     currencyEUR,
		PriceLocalCents:  product.PriceCents,
		PriceEURCents:    product.PriceCents,
		Quantity:         1,
		GrantsSoftAmount: product.SoftGrant,
		GrantsHardAmount: product.HardGrant,
		Platform:         pl.Platform,
		CountryCode:      pl.CountryCode,
	})
	a.nextPurchase++
	pl.TotalSpendCents += product.PriceCents
}

// clampTime caps t at limit.
func clampTime(t, limit time.Time) time.Time {
	if t.After(limit) {
		return limit
	}
	return t
}

// flush keeps the sink's error category so constraint failures surface as
// STORAGE errors.
func (a *Activity) flush(ctx context.Context) error {
	return a.buf.Flush(ctx)
}
