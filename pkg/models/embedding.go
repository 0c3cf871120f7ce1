package models

import "time"

// IdentityEmbedding is the stored vector for a canonical player. One per owner.
type IdentityEmbedding struct {
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	IdentityText string    `json:"identity_text" db:"identity_text"`
	TeamKey      string    `json:"team_key" db:"team_key"`
	Vector       []float32 `json:"-" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// SimilarIdentity is one nearest-neighbour hit joined to its player
type SimilarIdentity struct {
	Player       Player  `json:"player"`
	IdentityText string  `json:"identity_text"`
	TeamKey      string  `json:"team_key"`
	Similarity   float64 `json:"similarity"`
}
