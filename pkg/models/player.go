package models

import (
	"strings"
	"time"
)

// Player is the canonical identity for a real player
type Player struct {
	ID           string    `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	NameKey      string    `json:"-" db:"name_key"`
	Team         string    `json:"team" db:"team"`
	TeamKey      string    `json:"-" db:"team_key"`
	Position     *string   `json:"position,omitempty" db:"position"`
	ClassYear    int       `json:"class_year" db:"class_year"`
	Hometown     *string   `json:"hometown,omitempty" db:"hometown"`
	SourceSystem *string   `json:"source_system,omitempty" db:"source_system"`
	SourceID     *string   `json:"source_id,omitempty" db:"source_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins the first and last name
func (p *Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PopulatedFields counts the identity fields that carry a value.
// Used to prefer the more complete record when scores tie.
func (p *Player) PopulatedFields() int {
	count := 0
	for _, s := range []string{p.FirstName, p.LastName, p.Team} {
		if s != "" {
			count++
		}
	}
	for _, s := range []*string{p.Position, p.Hometown, p.SourceSystem, p.SourceID} {
		if s != nil && *s != "" {
			count++
		}
	}
	if p.ClassYear != 0 {
		count++
	}
	return count
}

// UpsertPlayerRequest carries an insert-or-update keyed by (name, team, class year).
// Nil optional fields never overwrite stored values.
type UpsertPlayerRequest struct {
	Name         string  `json:"name" validate:"required"`
	Team         string  `json:"team" validate:"required"`
	ClassYear    int     `json:"class_year" validate:"required"`
	Position     *string `json:"position,omitempty"`
	Hometown     *string `json:"hometown,omitempty"`
	SourceSystem *string `json:"source_system,omitempty"`
	SourceID     *string `json:"source_id,omitempty"`
}

// CandidateFilter narrows the fuzzy candidate pool
type CandidateFilter struct {
	TeamKey  *string
	Position *string
}
