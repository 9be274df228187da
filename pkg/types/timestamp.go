package types

import "time"

// TimestampLayout is the ISO-8601 layout used for every *_utc column.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Table names of the generated relational store.
const (
	TablePlayers               = "players"
	TableTeams                 = "teams"
	TableTeamMemberships       = "team_memberships"
	TableExperimentAssignments = "experiment_assignments"
	TableSessions              = "sessions"
	TableEvents                = "events"
	TablePurchases             = "purchases"
)

// AllTables lists the tables in the order they are populated.
func AllTables() []string {
	return []string{
		TablePlayers,
		TableTeams,
		TableTeamMemberships,
		TableExperimentAssignments,
		TableSessions,
		TableEvents,
		TablePurchases,
	}
}

// FormatUTC renders t as a second-precision UTC timestamp with a trailing Z.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseUTC parses a timestamp written by FormatUTC.
func ParseUTC(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
