package models

import "time"

// LeagueMode represents the league's roster-building format.
type LeagueMode string

const (
	LeagueModeRedraft LeagueMode = "REDRAFT"
	LeagueModeDynasty LeagueMode = "DYNASTY"
	LeagueModeDevy    LeagueMode = "DEVY"
)

// LeagueStatus tracks where the league sits in its season cycle.
type LeagueStatus string

const (
	LeagueStatusPending  LeagueStatus = "PENDING"
	LeagueStatusDrafting LeagueStatus = "DRAFTING"
	LeagueStatusInSeason LeagueStatus = "IN_SEASON"
	LeagueStatusComplete LeagueStatus = "COMPLETE"
)

// League represents a fantasy sports league.
type League struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	Mode               LeagueMode   `json:"mode"`
	Status             LeagueStatus `json:"status"`
	Season             int          `json:"season"`
	CommissionerUserID int64        `json:"commissioner_user_id"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}
