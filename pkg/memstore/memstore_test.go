package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestPlayers_UpsertMergesKnownFields(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.Players.Upsert(ctx, &models.UpsertPlayerRequest{
		Name: "Arch Manning", Team: "Texas", ClassYear: 2025, Position: strPtr("qb"),
	})
	require.NoError(t, err)

	again, err := store.Players.Upsert(ctx, &models.UpsertPlayerRequest{
		Name: "Arch Manning", Team: "Texas", ClassYear: 2025, Position: strPtr("qb"),
	})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	merged, err := store.Players.Upsert(ctx, &models.UpsertPlayerRequest{
		Name: " arch manning", Team: "TEXAS", ClassYear: 2025, SourceID: strPtr("247-1"),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, "QB", *merged.Position)
	assert.Equal(t, "247-1", *merged.SourceID)
	assert.Equal(t, 1, store.Players.Len())
}

func TestEmbeddings_Nearest(t *testing.T) {
	store := New()
	ctx := context.Background()

	a, _ := store.Players.Upsert(ctx, &models.UpsertPlayerRequest{Name: "A One", Team: "Texas", ClassYear: 2025})
	b, _ := store.Players.Upsert(ctx, &models.UpsertPlayerRequest{Name: "B Two", Team: "Texas", ClassYear: 2025})

	require.NoError(t, store.Embeddings.Replace(ctx, &models.IdentityEmbedding{OwnerID: a.ID, TeamKey: "texas", Vector: []float32{1, 0}}))
	require.NoError(t, store.Embeddings.Replace(ctx, &models.IdentityEmbedding{OwnerID: b.ID, TeamKey: "texas", Vector: []float32{0, 1}}))

	results, err := store.Embeddings.Nearest(ctx, []float32{1, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].Player.ID)
	assert.InDelta(t, 0.995, results[0].Similarity, 0.001)
}

func TestPendingLinks_SetStatusTwice(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.PendingLinks.Enqueue(ctx, &models.PendingLink{SourceName: "Jon Smith", MatchScore: 0.85, MatchMethod: models.MatchMethodFuzzy})
	require.NoError(t, err)

	_, err = store.PendingLinks.SetStatus(ctx, id, models.PendingLinkStatusApproved)
	require.NoError(t, err)

	_, err = store.PendingLinks.SetStatus(ctx, id, models.PendingLinkStatusApproved)
	var transitionErr *models.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
