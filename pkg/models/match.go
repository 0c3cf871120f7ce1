package models

// MatchMethod names the tier that produced a match
type MatchMethod string

const (
	MatchMethodDeterministic MatchMethod = "deterministic"
	MatchMethodVector        MatchMethod = "vector"
	MatchMethodFuzzy         MatchMethod = "fuzzy"
)

// MatchOutcome tags the result of a match call
type MatchOutcome string

const (
	MatchOutcomeMatched MatchOutcome = "matched"
	MatchOutcomeQueued  MatchOutcome = "queued"
	MatchOutcomeNoMatch MatchOutcome = "no_match"
)

// CandidateMention is a single player reference awaiting resolution.
// Optional fields are nil when the source did not provide them.
type CandidateMention struct {
	Name          string         `json:"name" validate:"required"`
	Team          *string        `json:"team,omitempty"`
	Position      *string        `json:"position,omitempty"`
	ClassYear     *int           `json:"class_year,omitempty"`
	SourceSystem  *string        `json:"source_system,omitempty"`
	SourceID      *string        `json:"source_id,omitempty"`
	SourceContext map[string]any `json:"source_context,omitempty"`
}

// MatchResult is the tagged outcome of resolving a mention.
// PlayerID, Player, Confidence and Method are set when Outcome is matched,
// PendingLinkID when it is queued.
type MatchResult struct {
	Outcome       MatchOutcome `json:"outcome"`
	PlayerID      string       `json:"player_id,omitempty"`
	Player        *Player      `json:"player,omitempty"`
	Confidence    float64      `json:"confidence,omitempty"`
	Method        MatchMethod  `json:"method,omitempty"`
	PendingLinkID string       `json:"pending_link_id,omitempty"`
}

// Matched builds a matched result
func Matched(player *Player, confidence float64, method MatchMethod) *MatchResult {
	return &MatchResult{
		Outcome:    MatchOutcomeMatched,
		PlayerID:   player.ID,
		Player:     player,
		Confidence: confidence,
		Method:     method,
	}
}

// Queued builds a queued-for-review result
func Queued(pendingLinkID string) *MatchResult {
	return &MatchResult{Outcome: MatchOutcomeQueued, PendingLinkID: pendingLinkID}
}

// NoMatch builds a no-match result
func NoMatch() *MatchResult {
	return &MatchResult{Outcome: MatchOutcomeNoMatch}
}
