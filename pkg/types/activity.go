package types

import "time"

// Event types emitted by the match loop.
const (
	EventMatchStart = "match_start"
	EventMatchEnd   = "match_end"
)

// Session is one play session of a player.
type Session struct {
	SessionID     int64     `json:"session_id"`
	PlayerID      int64     `json:"player_id"`
	Start         time.Time `json:"session_start_utc"`
	End           time.Time `json:"session_end_utc"`
	DurationSec   int       `json:"duration_sec"`
	ClientVersion string    `json:"client_version"`
	BuildNumber   string    `json:"build_number"`
	CountryCode   string    `json:"country_code"`
	Platform      string    `json:"platform"`
	EntryPoint    string    `json:"entry_point"`
	SeasonID      int       `json:"season_id"`
}

// Event is a single telemetry event inside a session.
type Event struct {
	EventID   int64     `json:"event_id"`
	PlayerID  int64     `json:"player_id"`
	SessionID int64     `json:"session_id"`
	Time      time.Time `json:"event_time_utc"`
	EventType string    `json:"event_type"`
	GameMode  string    `json:"game_mode"`

	// MatchOutcome is empty on match_start and stored as NULL
	MatchOutcome string `json:"match_outcome,omitempty"`

	Level                 int    `json:"level"`
	MatchID               int64  `json:"match_id"`
	SoftDelta             int    `json:"soft_delta"`
	SoftCurrencyPurchased int    `json:"soft_currency_purchased"`
	HardDelta             int    `json:"hard_delta"`
	MetadataJSON          string `json:"metadata_json"`
}

// Purchase is an in-app purchase. Amounts are integer cents.
type Purchase struct {
	PurchaseID       int64     `json:"purchase_id"`
	PlayerID         int64     `json:"player_id"`
	SessionID        int64     `json:"session_id"`
	Time             time.Time `json:"purchase_time_utc"`
	ProductID        string    `json:"product_id"`
	ProductType      string    `json:"product_type"`
	CurrencyCode     string    `json:"currency_code"`
	PriceLocalCents  int64     `json:"price_local"`
	PriceEURCents    int64     `json:"price_eur"`
	Quantity         int       `json:"quantity"`
	GrantsSoftAmount int       `json:"grants_soft_amount"`
	GrantsHardAmount int       `json:"grants_hard_amount"`
	Platform         string    `json:"platform"`
	CountryCode      string    `json:"country_code"`
}
