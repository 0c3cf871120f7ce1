package player

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const table = "players"

var columns = []string{
	"id", "first_name", "last_name", "name_key", "team", "team_key", "position", "class_year",
	"hometown", "source_system", "source_id", "created_at", "updated_at",
}

// touchedAt only moves updated_at when the merge changes a stored value
var touchedAt = sqlbuilder.Raw(`CASE WHEN
	(COALESCE(EXCLUDED.position, players.position), COALESCE(EXCLUDED.hometown, players.hometown),
	 COALESCE(EXCLUDED.source_system, players.source_system), COALESCE(EXCLUDED.source_id, players.source_id))
	IS DISTINCT FROM (players.position, players.hometown, players.source_system, players.source_id)
	THEN EXCLUDED.updated_at ELSE players.updated_at END`)

// Repository handles canonical player persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new player repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a player by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("player %s not found", id))
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	player, err := r.getOne(ctx, sb)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("player %s not found", id))
	}
	return player, nil
}

// FindBySourceID returns the player carrying the upstream source id, or nil
func (r *Repository) FindBySourceID(ctx context.Context, sourceID string) (*models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.FindBySourceID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("source_id", sourceID))
	sb.OrderBy("created_at", "id")
	sb.Limit(1)

	return r.getOne(ctx, sb)
}

// FindByExactKey returns the player with the same normalized name, team and class year, or nil
func (r *Repository) FindByExactKey(ctx context.Context, name, team string, classYear int) (*models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.FindByExactKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("name_key", normalizers.NameKey(name)),
		sb.Equal("team_key", normalizers.TeamKey(team)),
		sb.Equal("class_year", classYear),
	)

	return r.getOne(ctx, sb)
}

// ListCandidates returns the fuzzy-tier pool, narrowed by team and position when set
func (r *Repository) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ListCandidates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	if filter.TeamKey != nil {
		sb.Where(sb.Equal("team_key", *filter.TeamKey))
	}
	if filter.Position != nil {
		sb.Where(sb.Equal("position", *filter.Position))
	}
	sb.OrderBy("id")

	query, args := sb.Build()
	var players []models.Player
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list candidate players")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list candidate players")
	}

	return players, nil
}

// ListAll pages through players in id order, starting after afterID
func (r *Repository) ListAll(ctx context.Context, afterID string, limit int) ([]models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	if afterID != "" {
		sb.Where(sb.GreaterThan("id", afterID))
	}
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()
	var players []models.Player
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list players")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list players")
	}

	return players, nil
}

// Upsert inserts a player or merges into the row with the same (name, team, class year).
// Null incoming fields keep the stored values.
func (r *Repository) Upsert(ctx context.Context, req *models.UpsertPlayerRequest) (*models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Upsert")
	defer span.End()

	first, last := normalizers.SplitName(req.Name)
	if first == "" {
		return nil, &models.InvalidMentionError{Reason: "name is empty"}
	}
	team := normalizers.CollapseWhitespace(req.Team)
	if team == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "team is required")
	}

	var position *string
	if req.Position != nil {
		if p := normalizers.Position(*req.Position); p != "" {
			position = &p
		}
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(
		uuid.New().String(), first, last, normalizers.NameKey(req.Name), team, normalizers.TeamKey(team),
		position, req.ClassYear, req.Hometown, req.SourceSystem, req.SourceID, now, now,
	)

	ub := ib.OnConflict("name_key", "team_key", "class_year")
	ub.Set(
		ub.Assign("position", database.CoalesceExcluded(table, "position")),
		ub.Assign("hometown", database.CoalesceExcluded(table, "hometown")),
		ub.Assign("source_system", database.CoalesceExcluded(table, "source_system")),
		ub.Assign("source_id", database.CoalesceExcluded(table, "source_id")),
		ub.Assign("updated_at", touchedAt),
	)

	query, args := ib.BuildReturning(columns...)

	var player models.Player
	if err := r.db.GetContext(ctx, &player, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"name":       req.Name,
			"team":       team,
			"class_year": req.ClassYear,
		}).Error("Failed to upsert player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert player")
	}

	return &player, nil
}

func (r *Repository) getOne(ctx context.Context, sb *sqlbuilder.SelectBuilder) (*models.Player, error) {
	query, args := sb.Build()

	var player models.Player
	if err := r.db.GetContext(ctx, &player, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get player")
	}

	return &player, nil
}
