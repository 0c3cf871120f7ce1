package pendinglink_test

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/internal/repositories/pendinglink"
	"github.com/Ramsey-B/sage/internal/repositories/player"
	"github.com/Ramsey-B/sage/internal/testhelpers"
	"github.com/Ramsey-B/sage/pkg/models"
)

func setup(t *testing.T) (*pendinglink.Repository, *models.Player) {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	testDB.Truncate(t, "pending_links", "players")

	candidate, err := player.NewRepository(testDB.DB, testhelpers.Logger()).Upsert(context.Background(),
		&models.UpsertPlayerRequest{Name: "John Smith", Team: "State U", ClassYear: 2025})
	require.NoError(t, err)

	return pendinglink.NewRepository(testDB.DB, testhelpers.Logger()), candidate
}

func newLink(candidateID string) *models.PendingLink {
	team := "State U"
	return &models.PendingLink{
		SourceName:        "Jon Smith",
		SourceTeam:        &team,
		SourceContext:     map[string]any{"report_id": "r-1", "page": float64(2)},
		CandidatePlayerID: &candidateID,
		MatchScore:        0.85,
		MatchMethod:       models.MatchMethodFuzzy,
	}
}

func TestRepository_EnqueueAndGet(t *testing.T) {
	repo, candidate := setup(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, newLink(candidate.ID))
	require.NoError(t, err)

	link, err := repo.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "Jon Smith", link.SourceName)
	assert.Equal(t, "State U", *link.SourceTeam)
	assert.Equal(t, candidate.ID, *link.CandidatePlayerID)
	assert.InDelta(t, 0.85, link.MatchScore, 1e-9)
	assert.Equal(t, models.MatchMethodFuzzy, link.MatchMethod)
	assert.Equal(t, models.PendingLinkStatusPending, link.Status)
	assert.Equal(t, map[string]any{"report_id": "r-1", "page": float64(2)}, link.SourceContext)
	assert.Nil(t, link.ReviewedAt)
}

func TestRepository_EnqueueNeverDedupes(t *testing.T) {
	repo, candidate := setup(t)
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, newLink(candidate.ID))
	require.NoError(t, err)
	second, err := repo.Enqueue(ctx, newLink(candidate.ID))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	links, err := repo.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.ElementsMatch(t, []string{first, second}, []string{links[0].ID, links[1].ID})
	assert.False(t, links[0].CreatedAt.Before(links[1].CreatedAt))
}

func TestRepository_SetStatus(t *testing.T) {
	repo, candidate := setup(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, newLink(candidate.ID))
	require.NoError(t, err)

	approved, err := repo.SetStatus(ctx, id, models.PendingLinkStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PendingLinkStatusApproved, approved.Status)
	assert.NotNil(t, approved.ReviewedAt)

	_, err = repo.SetStatus(ctx, id, models.PendingLinkStatusRejected)
	var transitionErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.PendingLinkStatusApproved, transitionErr.From)

	pending := models.PendingLinkStatusPending
	links, err := repo.List(ctx, &pending, 10)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestRepository_SetStatusInvalidTarget(t *testing.T) {
	repo, candidate := setup(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, newLink(candidate.ID))
	require.NoError(t, err)

	_, err = repo.SetStatus(ctx, id, models.PendingLinkStatusPending)
	var transitionErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestRepository_SetStatusMissing(t *testing.T) {
	repo, _ := setup(t)

	_, err := repo.SetStatus(context.Background(), "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", models.PendingLinkStatusApproved)
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, pendinglink.ClampLimit(0))
	assert.Equal(t, 100, pendinglink.ClampLimit(-3))
	assert.Equal(t, 7, pendinglink.ClampLimit(7))
	assert.Equal(t, 500, pendinglink.ClampLimit(10000))
}
