package models

import "time"

// PlayerClass separates pro players from college (devy) prospects.
type PlayerClass string

const (
	PlayerClassNFL     PlayerClass = "NFL"
	PlayerClassCollege PlayerClass = "COLLEGE"
)

// Player represents a draftable player.
type Player struct {
	ID         int64       `json:"id"`
	ExternalID string      `json:"external_id"`
	FullName   string      `json:"full_name"`
	Class      PlayerClass `json:"class"`
	Position   string      `json:"position"`           // 'QB', 'RB', 'WR', etc.
	Team       *string     `json:"team,omitempty"`     // NFL team or college program
	YearsExp   *int        `json:"years_exp,omitempty"` // nil means unknown, treated as veteran
	ADP        *float64    `json:"adp,omitempty"`       // average draft position, lower is better
	Active     bool        `json:"active"`
	CreatedAt  time.Time   `json:"created_at"`
}

// InPool reports whether the player belongs to the given draftable class.
func (p Player) InPool(pool PlayerPool) bool {
	switch pool {
	case PlayerPoolVeteran:
		return p.Class == PlayerClassNFL && (p.YearsExp == nil || *p.YearsExp > 0)
	case PlayerPoolRookie:
		return p.Class == PlayerClassNFL && p.YearsExp != nil && *p.YearsExp == 0
	case PlayerPoolCollege:
		return p.Class == PlayerClassCollege
	default:
		return false
	}
}
