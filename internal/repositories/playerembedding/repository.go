package playerembedding

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pgvector/pgvector-go"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const table = "player_embeddings"

type embeddingRow struct {
	OwnerID      string          `db:"owner_id"`
	IdentityText string          `db:"identity_text"`
	TeamKey      string          `db:"team_key"`
	Embedding    pgvector.Vector `db:"embedding"`
	CreatedAt    time.Time       `db:"created_at"`
}

type nearestRow struct {
	models.Player
	IdentityText     string  `db:"identity_text"`
	EmbeddingTeamKey string  `db:"embedding_team_key"`
	Similarity       float64 `db:"similarity"`
}

// nearestQuery ranks by cosine distance so the hnsw index is used, then reports similarity
const nearestQuery = `
	SELECT p.id, p.first_name, p.last_name, p.name_key, p.team, p.team_key, p.position, p.class_year,
		p.hometown, p.source_system, p.source_id, p.created_at, p.updated_at,
		e.identity_text, e.team_key AS embedding_team_key,
		1 - (e.embedding <=> $1) AS similarity
	FROM player_embeddings e
	JOIN players p ON p.id = e.owner_id
	ORDER BY e.embedding <=> $1
	LIMIT $2
`

// Repository handles identity embedding persistence and nearest-neighbour search
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new embedding repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get returns the stored embedding for a player, or nil
func (r *Repository) Get(ctx context.Context, ownerID string) (*models.IdentityEmbedding, error) {
	ctx, span := tracing.StartSpan(ctx, "playerembedding.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("owner_id", "identity_text", "team_key", "embedding", "created_at")
	sb.From(table)
	sb.Where(sb.Equal("owner_id", ownerID))

	query, args := sb.Build()
	var row embeddingRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("owner_id", ownerID).Error("Failed to get embedding")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get embedding")
	}

	return &models.IdentityEmbedding{
		OwnerID:      row.OwnerID,
		IdentityText: row.IdentityText,
		TeamKey:      row.TeamKey,
		Vector:       row.Embedding.Slice(),
		CreatedAt:    row.CreatedAt,
	}, nil
}

// Replace stores the embedding for its owner, overwriting any previous one
func (r *Repository) Replace(ctx context.Context, embedding *models.IdentityEmbedding) error {
	ctx, span := tracing.StartSpan(ctx, "playerembedding.Repository.Replace")
	defer span.End()

	embedding.CreatedAt = time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("owner_id", "identity_text", "team_key", "embedding", "created_at")
	ib.Values(embedding.OwnerID, embedding.IdentityText, embedding.TeamKey, pgvector.NewVector(embedding.Vector), embedding.CreatedAt)

	ub := ib.OnConflict("owner_id")
	ub.Set(
		ub.Assign("identity_text", database.Excluded("identity_text")),
		ub.Assign("team_key", database.Excluded("team_key")),
		ub.Assign("embedding", database.Excluded("embedding")),
		ub.Assign("created_at", database.Excluded("created_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("owner_id", embedding.OwnerID).Error("Failed to store embedding")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store embedding")
	}

	return nil
}

// Nearest returns the k stored identities most similar to vector, most similar first
func (r *Repository) Nearest(ctx context.Context, vector []float32, k int) ([]models.SimilarIdentity, error) {
	ctx, span := tracing.StartSpan(ctx, "playerembedding.Repository.Nearest")
	defer span.End()

	var rows []nearestRow
	if err := r.db.SelectContext(ctx, &rows, nearestQuery, pgvector.NewVector(vector), k); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search embeddings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search embeddings")
	}

	results := make([]models.SimilarIdentity, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.SimilarIdentity{
			Player:       row.Player,
			IdentityText: row.IdentityText,
			TeamKey:      row.EmbeddingTeamKey,
			Similarity:   row.Similarity,
		})
	}
	return results, nil
}
