package models

import "time"

// LobbyConfig is a static preset describing one contest tier: how much it
// costs to enter, how the board looks, how long a player gets, and how the
// prize pool is split by rank.
type LobbyConfig struct {
	LobbyType          string    `yaml:"lobby_type" json:"lobby_type"`
	Name               string    `yaml:"name" json:"name"`
	EntryFee           int       `yaml:"entry_fee" json:"entry_fee"`
	BoardSize          int       `yaml:"board_size" json:"board_size"`
	GameDuration       int       `yaml:"game_duration" json:"game_duration"` // seconds
	MaxPlayers         int       `yaml:"max_players" json:"max_players"`
	PayoutMultipliers  []float64 `yaml:"payout_multipliers" json:"payout_multipliers"`
	TotalPrizePool     int       `yaml:"total_prize_pool" json:"total_prize_pool"`
	TimeBonusPerSecond float64   `yaml:"time_bonus_per_second" json:"time_bonus_per_second"`
	TimeBonusMaxPoints int       `yaml:"time_bonus_max_points" json:"time_bonus_max_points"`
}

// Duration returns the per-player play window.
func (c LobbyConfig) Duration() time.Duration {
	return time.Duration(c.GameDuration) * time.Second
}
