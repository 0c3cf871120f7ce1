package embedding

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Embedder turns identity text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store persists one embedding per owner. Get returns nil, nil when none exists.
type Store interface {
	Get(ctx context.Context, ownerID string) (*models.IdentityEmbedding, error)
	Replace(ctx context.Context, embedding *models.IdentityEmbedding) error
}

// Generator keeps a player's stored embedding in step with its identity text
type Generator struct {
	embedder Embedder
	store    Store
	logger   ectologger.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(embedder Embedder, store Store, logger ectologger.Logger) *Generator {
	return &Generator{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Ensure embeds the player unless a stored embedding already has the same identity text.
// force re-embeds regardless. It reports whether the embedder was called.
func (g *Generator) Ensure(ctx context.Context, player *models.Player, force bool) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "embedding.Generator.Ensure")
	defer span.End()

	text := BuildIdentityText(PlayerFields(player))

	if !force {
		existing, err := g.store.Get(ctx, player.ID)
		if err != nil {
			return false, err
		}
		if existing != nil && existing.IdentityText == text {
			return false, nil
		}
	}

	vector, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return false, err
	}

	err = g.store.Replace(ctx, &models.IdentityEmbedding{
		OwnerID:      player.ID,
		IdentityText: text,
		TeamKey:      normalizers.TeamKey(player.Team),
		Vector:       vector,
	})
	if err != nil {
		return true, fmt.Errorf("failed to store embedding for player %s: %w", player.ID, err)
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"player_id":     player.ID,
		"identity_text": text,
	}).Debug("Stored identity embedding")

	return true, nil
}
