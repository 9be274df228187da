package types

import "time"

// TeamTier is the size class of a team.
type TeamTier int

const (
	TierSmall  TeamTier = 0
	TierMedium TeamTier = 1
	TierLarge  TeamTier = 2
)

// String returns the tier name.
func (t TeamTier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	case TierLarge:
		return "large"
	default:
		return "unknown"
	}
}

// Team is a guild-like group. Teams are never disbanded by the generator.
type Team struct {
	TeamID     int64     `json:"team_id"`
	CreatedAt  time.Time `json:"created_at_utc"`
	Tier       TeamTier  `json:"tier_level"`
	MaxMembers int       `json:"max_members"`
}

// Membership links a player to a team.
type Membership struct {
	MembershipID int64     `json:"membership_id"`
	PlayerID     int64     `json:"player_id"`
	TeamID       int64     `json:"team_id"`
	JoinedAt     time.Time `json:"joined_at_utc"`
	IsLeader     bool      `json:"is_leader"`
}

// Assignment places a player into one variant of an experiment.
type Assignment struct {
	ExperimentName string    `json:"experiment_name"`
	PlayerID       int64     `json:"player_id"`
	Variant        string    `json:"variant"`
	AssignedAt     time.Time `json:"assigned_at_utc"`
}
