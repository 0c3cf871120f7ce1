package player_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/internal/repositories/player"
	"github.com/Ramsey-B/sage/internal/testhelpers"
	"github.com/Ramsey-B/sage/pkg/models"
)

func strPtr(s string) *string { return &s }

func setup(t *testing.T) *player.Repository {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	testDB.Truncate(t, "players")
	return player.NewRepository(testDB.DB, testhelpers.Logger())
}

func TestRepository_UpsertIdempotent(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	req := &models.UpsertPlayerRequest{Name: "Arch Manning", Team: "Texas", ClassYear: 2025, Position: strPtr("qb")}

	first, err := repo.Upsert(ctx, req)
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "QB", *second.Position)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	all, err := repo.ListAll(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_UpsertKeepsKnownFields(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &models.UpsertPlayerRequest{
		Name:      "Arch Manning",
		Team:      "Texas",
		ClassYear: 2025,
		Position:  strPtr("QB"),
		Hometown:  strPtr("New Orleans, LA"),
	})
	require.NoError(t, err)

	updated, err := repo.Upsert(ctx, &models.UpsertPlayerRequest{
		Name:      "arch  manning",
		Team:      "TEXAS",
		ClassYear: 2025,
		SourceID:  strPtr("247-123"),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Position)
	assert.Equal(t, "QB", *updated.Position)
	assert.Equal(t, "New Orleans, LA", *updated.Hometown)
	assert.Equal(t, "247-123", *updated.SourceID)
}

func TestRepository_ConcurrentUpsertConverges(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := repo.Upsert(ctx, &models.UpsertPlayerRequest{Name: "Quinn Ewers", Team: "Texas", ClassYear: 2024})
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRepository_Lookups(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	arch, err := repo.Upsert(ctx, &models.UpsertPlayerRequest{
		Name: "Arch Manning", Team: "Texas", ClassYear: 2025, Position: strPtr("QB"), SourceID: strPtr("247-123"),
	})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &models.UpsertPlayerRequest{Name: "Ryan Williams", Team: "Alabama", ClassYear: 2025, Position: strPtr("WR")})
	require.NoError(t, err)

	found, err := repo.FindBySourceID(ctx, "247-123")
	require.NoError(t, err)
	assert.Equal(t, arch.ID, found.ID)

	found, err = repo.FindBySourceID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByExactKey(ctx, " ARCH manning", "texas ", 2025)
	require.NoError(t, err)
	assert.Equal(t, arch.ID, found.ID)

	found, err = repo.FindByExactKey(ctx, "Arch Manning", "Texas", 2024)
	require.NoError(t, err)
	assert.Nil(t, found)

	texas := "texas"
	candidates, err := repo.ListCandidates(ctx, models.CandidateFilter{TeamKey: &texas})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, arch.ID, candidates[0].ID)

	wr := "WR"
	candidates, err = repo.ListCandidates(ctx, models.CandidateFilter{Position: &wr})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Ryan", candidates[0].FirstName)

	candidates, err = repo.ListCandidates(ctx, models.CandidateFilter{})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	got, err := repo.Get(ctx, arch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Manning", got.LastName)

	_, err = repo.Get(ctx, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}
