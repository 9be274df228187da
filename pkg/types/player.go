// Package types provides the row records produced by the telemetry generator.
package types

import (
	"fmt"
	"time"
)

// EngagementSegment classifies how often a player plays.
type EngagementSegment string

const (
	EngagementCasual  EngagementSegment = "casual"
	EngagementMidcore EngagementSegment = "midcore"
	EngagementHeavy   EngagementSegment = "heavy"
)

// SpendSegment classifies payer behaviour.
type SpendSegment string

const (
	SpendNonpayer SpendSegment = "nonpayer"
	SpendMinnow   SpendSegment = "minnow"
	SpendDolphin  SpendSegment = "dolphin"
	SpendWhale    SpendSegment = "whale"
)

// IsPayer reports whether the segment is allowed to make purchases.
func (s SpendSegment) IsPayer() bool {
	return s != SpendNonpayer && s != ""
}

// Player is one synthetic account. Players live in a single arena slice for
// the whole run; Level and TotalSpendCents are mutated in place by index.
type Player struct {
	// PlayerID is the 1-based primary key
	PlayerID int64 `json:"player_id"`

	// CreatedAt is midnight UTC of the creation day
	CreatedAt time.Time `json:"created_at_utc"`

	// CreatedDayIdx is the 0-based simulation day the account was created on
	CreatedDayIdx int `json:"-"`

	// ChurnDayIdx is the last simulation day the player may still be active
	ChurnDayIdx int `json:"-"`

	CountryCode string `json:"country_code"`
	Platform    string `json:"platform"`

	// TimeZoneOffset is the UTC offset in whole hours
	TimeZoneOffset int `json:"-"`

	DeviceModel         string `json:"device_model"`
	OSVersion           string `json:"os_version"`
	AcquisitionChannel  string `json:"acquisition_channel"`
	AcquisitionCampaign string `json:"acquisition_campaign"`
	LanguageCode        string `json:"language_code"`

	EngagementSegment EngagementSegment `json:"engagement_segment"`
	SpendSegment      SpendSegment      `json:"spend_segment"`

	Level           int   `json:"level"`
	TotalSpendCents int64 `json:"total_spend_eur"`
}

// TimeZone renders the offset the way the players table stores it, e.g. "UTC-5".
func (p *Player) TimeZone() string {
	return fmt.Sprintf("UTC%+d", p.TimeZoneOffset)
}

// ActiveOn reports whether day lies inside the player's lifetime window.
func (p *Player) ActiveOn(day int) bool {
	return day >= p.CreatedDayIdx && day <= p.ChurnDayIdx
}
