package models

import "time"

// PendingLinkStatus is the review state of a pending link
type PendingLinkStatus string

const (
	PendingLinkStatusPending  PendingLinkStatus = "pending"
	PendingLinkStatusApproved PendingLinkStatus = "approved"
	PendingLinkStatusRejected PendingLinkStatus = "rejected"
)

// IsValid reports whether the status is a known value
func (s PendingLinkStatus) IsValid() bool {
	switch s {
	case PendingLinkStatusPending, PendingLinkStatusApproved, PendingLinkStatusRejected:
		return true
	}
	return false
}

// PendingLink is a queued uncertain match awaiting human review
type PendingLink struct {
	ID                string            `json:"id" db:"id"`
	SourceName        string            `json:"source_name" db:"source_name"`
	SourceTeam        *string           `json:"source_team,omitempty" db:"source_team"`
	SourceContext     map[string]any    `json:"source_context,omitempty" db:"-"`
	CandidatePlayerID *string           `json:"candidate_player_id,omitempty" db:"candidate_player_id"`
	MatchScore        float64           `json:"match_score" db:"match_score"`
	MatchMethod       MatchMethod       `json:"match_method" db:"match_method"`
	Status            PendingLinkStatus `json:"status" db:"status"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	ReviewedAt        *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
}
