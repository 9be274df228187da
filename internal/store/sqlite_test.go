package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/pkg/types"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func openTestSQLite(t *testing.T) *SQLiteSink {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "telemetrygen-store-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	schema, err := LoadSchema(DriverSQLite, "")
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}
	sink, err := OpenSQLite(context.Background(), filepath.Join(tmpDir, "game.db"), schema)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { sink.Close() })
	return sink
}

func samplePlayers() []types.Player {
	return []types.Player{
		{
			PlayerID: 1, CreatedAt: testStart, CountryCode: "DE", Platform: "iOS",
			TimeZoneOffset: 1, DeviceModel: "iOS_Device_2", OSVersion: "14.0",
			AcquisitionChannel: "Organic", LanguageCode: "de",
			EngagementSegment: types.EngagementCasual, SpendSegment: types.SpendNonpayer, Level: 1,
		},
		{
			PlayerID: 2, CreatedAt: testStart.AddDate(0, 0, 1), CountryCode: "US", Platform: "Android",
			TimeZoneOffset: -5, DeviceModel: "Android_Device_1", OSVersion: "12.0",
			AcquisitionChannel: "AdsNetworkA", AcquisitionCampaign: "Launch2025", LanguageCode: "en",
			EngagementSegment: types.EngagementHeavy, SpendSegment: types.SpendWhale, Level: 1,
		},
	}
}

func countRows(t *testing.T, sink *SQLiteSink, table string) int {
	t.Helper()
	var n int
	if err := sink.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSQLiteSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sink := openTestSQLite(t)
	players := samplePlayers()

	if err := sink.WritePlayers(ctx, players); err != nil {
		t.Fatalf("WritePlayers failed: %v", err)
	}
	teams := []types.Team{{TeamID: 1, CreatedAt: testStart, Tier: types.TierSmall, MaxMembers: 3}}
	members := []types.Membership{
		{MembershipID: 1, PlayerID: 1, TeamID: 1, JoinedAt: testStart, IsLeader: true},
		{MembershipID: 2, PlayerID: 2, TeamID: 1, JoinedAt: testStart.AddDate(0, 0, 2)},
	}
	if err := sink.WriteTeams(ctx, teams, members); err != nil {
		t.Fatalf("WriteTeams failed: %v", err)
	}
	if err := sink.WriteAssignments(ctx, []types.Assignment{
		{ExperimentName: "shop_pricing_v1", PlayerID: 1, Variant: "Control", AssignedAt: testStart},
		{ExperimentName: "shop_pricing_v1", PlayerID: 2, Variant: "A", AssignedAt: testStart},
	}); err != nil {
		t.Fatalf("WriteAssignments failed: %v", err)
	}

	start := testStart.Add(17 * time.Hour)
	batch := &Batch{
		Sessions: []types.Session{{
			SessionID: 1, PlayerID: 2, Start: start, End: start.Add(10 * time.Minute), DurationSec: 600,
			ClientVersion: "1.0.3", BuildNumber: "1500", CountryCode: "US", Platform: "Android",
			EntryPoint: "push", SeasonID: 1,
		}},
		Events: []types.Event{
			{EventID: 1, PlayerID: 2, SessionID: 1, Time: start, EventType: types.EventMatchStart,
				GameMode: "solo", Level: 1, MatchID: 1, MetadataJSON: `{"note": "match_started"}`},
			{EventID: 2, PlayerID: 2, SessionID: 1, Time: start.Add(5 * time.Minute), EventType: types.EventMatchEnd,
				GameMode: "solo", MatchOutcome: "win", Level: 1, MatchID: 1, SoftDelta: 20},
		},
		Purchases: []types.Purchase{{
			PurchaseID: 1, PlayerID: 2, SessionID: 1, Time: start.Add(6 * time.Minute),
			ProductID: "prod_bundle", ProductType: "Bundle", CurrencyCode: "EUR",
			PriceLocalCents: 999, PriceEURCents: 999, Quantity: 1, GrantsSoftAmount: 2500,
			GrantsHardAmount: 50, Platform: "Android", CountryCode: "US",
		}},
	}
	if err := sink.WriteActivity(ctx, batch); err != nil {
		t.Fatalf("WriteActivity failed: %v", err)
	}

	players[1].Level = 3
	players[1].TotalSpendCents = 999
	if err := sink.UpdatePlayerProgress(ctx, players); err != nil {
		t.Fatalf("UpdatePlayerProgress failed: %v", err)
	}

	want := map[string]int{
		types.TablePlayers: 2, types.TableTeams: 1, types.TableTeamMemberships: 2,
		types.TableExperimentAssignments: 2, types.TableSessions: 1, types.TableEvents: 2,
		types.TablePurchases: 1,
	}
	for table, n := range want {
		if got := countRows(t, sink, table); got != n {
			t.Errorf("%s: expected %d rows, got %d", table, n, got)
		}
	}

	var level int
	var spend int64
	var tz string
	var campaign *string
	row := sink.DB().QueryRow("SELECT level, total_spend_eur, time_zone, acquisition_campaign FROM players WHERE player_id = 2")
	if err := row.Scan(&level, &spend, &tz, &campaign); err != nil {
		t.Fatalf("scan player: %v", err)
	}
	if level != 3 || spend != 999 || tz != "UTC-5" {
		t.Errorf("player 2: level=%d spend=%d tz=%s", level, spend, tz)
	}
	if campaign == nil || *campaign != "Launch2025" {
		t.Errorf("expected campaign Launch2025, got %v", campaign)
	}

	// Organic players carry an empty campaign, not NULL
	var organic *string
	if err := sink.DB().QueryRow("SELECT acquisition_campaign FROM players WHERE player_id = 1").Scan(&organic); err != nil {
		t.Fatalf("scan organic player: %v", err)
	}
	if organic == nil || *organic != "" {
		t.Errorf("organic campaign should be the empty string, got %v", organic)
	}

	var outcome *string
	var ts string
	if err := sink.DB().QueryRow("SELECT match_outcome, event_time_utc FROM events WHERE event_id = 1").Scan(&outcome, &ts); err != nil {
		t.Fatalf("scan event: %v", err)
	}
	if outcome != nil {
		t.Errorf("match_start outcome should be NULL, got %q", *outcome)
	}
	if ts != "2025-01-01T17:00:00Z" {
		t.Errorf("unexpected timestamp %q", ts)
	}

	var leaders int
	if err := sink.DB().QueryRow("SELECT COUNT(*) FROM team_memberships WHERE is_leader = 1").Scan(&leaders); err != nil {
		t.Fatalf("count leaders: %v", err)
	}
	if leaders != 1 {
		t.Errorf("expected exactly one leader, got %d", leaders)
	}
}

func TestSQLiteSink_ForeignKeyViolation(t *testing.T) {
	ctx := context.Background()
	sink := openTestSQLite(t)
	if err := sink.WritePlayers(ctx, samplePlayers()); err != nil {
		t.Fatalf("WritePlayers failed: %v", err)
	}

	// Event referencing a session that was never written.
	batch := &Batch{Events: []types.Event{{
		EventID: 1, PlayerID: 1, SessionID: 42, Time: testStart, EventType: types.EventMatchStart, MatchID: 1,
	}}}
	err := sink.WriteActivity(ctx, batch)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
	if generrors.GetCategory(err) != generrors.ErrCategoryStorage || generrors.GetCode(err) != generrors.CodeConstraint {
		t.Errorf("expected STORAGE/CONSTRAINT, got %v", err)
	}
}

func TestOpenSQLite_ReplacesExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "game.db")
	if err := os.WriteFile(path, []byte("not a database"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	schema, _ := LoadSchema(DriverSQLite, "")
	sink, err := OpenSQLite(context.Background(), path, schema)
	if err != nil {
		t.Fatalf("OpenSQLite over stale file failed: %v", err)
	}
	defer sink.Close()
	if got := countRows(t, sink, types.TablePlayers); got != 0 {
		t.Errorf("expected empty players table, got %d", got)
	}
}

func TestOpenSQLite_BadSchema(t *testing.T) {
	_, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), "CREATE TABLE (")
	if generrors.GetCategory(err) != generrors.ErrCategorySchema {
		t.Errorf("expected SCHEMA error, got %v", err)
	}
}

func TestLoadSchema(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverPostgres} {
		script, err := LoadSchema(driver, "")
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		stmts := SplitStatements(script)
		var tables int
		for _, s := range stmts {
			if strings.HasPrefix(s, "CREATE TABLE") {
				tables++
			}
		}
		if tables != len(types.AllTables()) {
			t.Errorf("%s: expected %d tables, got %d", driver, len(types.AllTables()), tables)
		}
	}

	_, err := LoadSchema(DriverSQLite, filepath.Join(t.TempDir(), "missing.sql"))
	if generrors.GetCategory(err) != generrors.ErrCategorySchema || generrors.GetCode(err) != generrors.CodeSchemaMissing {
		t.Errorf("expected SCHEMA/SCHEMA_MISSING, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (x INT);\n\n  ;\nCREATE INDEX i ON a(x);\n"
	stmts := SplitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x INT)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	sink, err := Open(ctx, Options{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := sink.(*MemorySink); !ok {
		t.Errorf("expected *MemorySink, got %T", sink)
	}

	_, err = Open(ctx, Options{Driver: "oracle"})
	if generrors.GetCategory(err) != generrors.ErrCategoryConfig {
		t.Errorf("expected CONFIG error, got %v", err)
	}

	dir := t.TempDir()
	_, err = Open(ctx, Options{Driver: DriverSQLite, Path: filepath.Join(dir, "g.db"), SchemaPath: filepath.Join(dir, "nope.sql")})
	if generrors.GetCategory(err) != generrors.ErrCategorySchema {
		t.Errorf("expected SCHEMA error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "g.db")); !os.IsNotExist(statErr) {
		t.Error("missing schema must not leave a database file behind")
	}
}
