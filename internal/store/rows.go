package store

import (
	"fmt"
	"strings"

	"github.com/arkilian/telemetrygen/pkg/types"
)

// Column lists in insertion order. Every sink binds values in this order.
var (
	playerColumns = []string{
		"player_id", "created_at_utc", "country_code", "platform", "device_model",
		"os_version", "acquisition_channel", "acquisition_campaign", "language_code",
		"time_zone", "engagement_segment", "spend_segment", "level", "total_spend_eur",
	}
	teamColumns = []string{
		"team_id", "created_at_utc", "disbanded_at_utc", "tier_level", "max_members",
	}
	membershipColumns = []string{
		"membership_id", "player_id", "team_id", "joined_at_utc", "left_at_utc", "is_leader",
	}
	assignmentColumns = []string{
		"experiment_name", "player_id", "variant", "assigned_at_utc",
	}
	sessionColumns = []string{
		"session_id", "player_id", "session_start_utc", "session_end_utc", "duration_sec",
		"client_version", "build_number", "country_code", "platform", "entry_point", "season_id",
	}
	eventColumns = []string{
		"event_id", "player_id", "session_id", "event_time_utc", "event_type", "game_mode",
		"match_outcome", "level", "match_id", "soft_delta", "soft_currency_purchased",
		"hard_delta", "metadata_json",
	}
	purchaseColumns = []string{
		"purchase_id", "player_id", "session_id", "purchase_time_utc", "product_id",
		"product_type", "currency_code", "price_local", "price_eur", "quantity",
		"grants_soft_amount", "grants_hard_amount", "platform", "country_code",
	}
)

func playerValues(p *types.Player) []interface{} {
	return []interface{}{
		p.PlayerID, types.FormatUTC(p.CreatedAt), p.CountryCode, p.Platform, p.DeviceModel,
		p.OSVersion, p.AcquisitionChannel, p.AcquisitionCampaign, p.LanguageCode,
		p.TimeZone(), string(p.EngagementSegment), string(p.SpendSegment), p.Level, p.TotalSpendCents,
	}
}

func teamValues(t *types.Team) []interface{} {
	return []interface{}{
		t.TeamID, types.FormatUTC(t.CreatedAt), nil, int(t.Tier), t.MaxMembers,
	}
}

func membershipValues(m *types.Membership) []interface{} {
	return []interface{}{
		m.MembershipID, m.PlayerID, m.TeamID, types.FormatUTC(m.JoinedAt), nil, m.IsLeader,
	}
}

func assignmentValues(a *types.Assignment) []interface{} {
	return []interface{}{
		a.ExperimentName, a.PlayerID, a.Variant, types.FormatUTC(a.AssignedAt),
	}
}

func sessionValues(s *types.Session) []interface{} {
	return []interface{}{
		s.SessionID, s.PlayerID, types.FormatUTC(s.Start), types.FormatUTC(s.End), s.DurationSec,
		s.ClientVersion, s.BuildNumber, s.CountryCode, s.Platform, s.EntryPoint, s.SeasonID,
	}
}

func eventValues(e *types.Event) []interface{} {
	return []interface{}{
		e.EventID, e.PlayerID, e.SessionID, types.FormatUTC(e.Time), e.EventType, nullString(e.GameMode),
		nullString(e.MatchOutcome), e.Level, e.MatchID, e.SoftDelta, e.SoftCurrencyPurchased,
		e.HardDelta, nullString(e.MetadataJSON),
	}
}

func purchaseValues(p *types.Purchase) []interface{} {
	return []interface{}{
		p.PurchaseID, p.PlayerID, p.SessionID, types.FormatUTC(p.Time), p.ProductID,
		p.ProductType, p.CurrencyCode, p.PriceLocalCents, p.PriceEURCents, p.Quantity,
		p.GrantsSoftAmount, p.GrantsHardAmount, p.Platform, p.CountryCode,
	}
}

// insertSQL builds a positional INSERT statement for table.
func insertSQL(table string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), marks)
}
