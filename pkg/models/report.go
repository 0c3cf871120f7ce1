package models

import "time"

// Report is a crawled source document with the player mentions extracted from it
type Report struct {
	ID        string             `json:"id" validate:"required"`
	SourceURL *string            `json:"source_url,omitempty"`
	Teams     []string           `json:"teams,omitempty"`
	Mentions  []CandidateMention `json:"mentions"` // invalid mentions are skipped by the linker, not rejected here
}

// AttachMethodCreated marks a report attachment to a player minted from the mention itself
const AttachMethodCreated MatchMethod = "created"

// ReportPlayer attaches a resolved player to the report that mentioned it
type ReportPlayer struct {
	ReportID   string      `json:"report_id" db:"report_id"`
	PlayerID   string      `json:"player_id" db:"player_id"`
	SourceURL  *string     `json:"source_url,omitempty" db:"source_url"`
	Method     MatchMethod `json:"method" db:"method"`
	Confidence float64     `json:"confidence" db:"confidence"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// LinkStats summarises a link run
type LinkStats struct {
	ReportsProcessed int `json:"reports_processed"`
	ReportsLinked    int `json:"reports_linked"`
	PlayersLinked    int `json:"players_linked"`
	Queued           int `json:"queued"`
	Created          int `json:"created"`
	Skipped          int `json:"skipped"`
	Errors           int `json:"errors"`
}

// Add folds another stats value into s
func (s *LinkStats) Add(o LinkStats) {
	s.ReportsProcessed += o.ReportsProcessed
	s.ReportsLinked += o.ReportsLinked
	s.PlayersLinked += o.PlayersLinked
	s.Queued += o.Queued
	s.Created += o.Created
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}
