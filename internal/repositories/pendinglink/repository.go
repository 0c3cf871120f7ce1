package pendinglink

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
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const (
	table        = "pending_links"
	defaultLimit = 100
	maxLimit     = 500
)

var columns = []string{
	"id", "source_name", "source_team", "source_context", "candidate_player_id", "match_score",
	"match_method", "status", "created_at", "reviewed_at",
}

type row struct {
	models.PendingLink
	Context database.JSONB[map[string]any] `db:"source_context"`
}

func (r row) toModel() *models.PendingLink {
	link := r.PendingLink
	link.SourceContext = r.Context.GetValue()
	return &link
}

// Repository is the durable review queue
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pending link repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Enqueue always inserts a new pending link and returns its id
func (r *Repository) Enqueue(ctx context.Context, link *models.PendingLink) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "pendinglink.Repository.Enqueue")
	defer span.End()

	link.ID = uuid.New().String()
	link.Status = models.PendingLinkStatusPending
	link.CreatedAt = time.Now().UTC()
	link.ReviewedAt = nil

	var sourceContext any
	if link.SourceContext != nil {
		sourceContext = database.NewJSONB(link.SourceContext)
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(link.ID, link.SourceName, link.SourceTeam, sourceContext, link.CandidatePlayerID, link.MatchScore,
		link.MatchMethod, link.Status, link.CreatedAt, link.ReviewedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("source_name", link.SourceName).Error("Failed to enqueue pending link")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to enqueue pending link")
	}

	return link.ID, nil
}

// Get retrieves a pending link by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "pendinglink.Repository.Get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var link row
	if err := r.db.GetContext(ctx, &link, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, notFound(id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pending link")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pending link")
	}

	return link.toModel(), nil
}

// List returns links newest first, filtered by status when set. limit is clamped to 1..500, default 100.
func (r *Repository) List(ctx context.Context, status *models.PendingLinkStatus, limit int) ([]models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "pendinglink.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	if status != nil {
		sb.Where(sb.Equal("status", *status))
	}
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(ClampLimit(limit))

	query, args := sb.Build()
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending links")
	}

	links := make([]models.PendingLink, 0, len(rows))
	for _, rw := range rows {
		links = append(links, *rw.toModel())
	}
	return links, nil
}

// SetStatus moves a pending link to approved or rejected and stamps reviewed_at.
// A link that is no longer pending yields *models.InvalidTransitionError.
func (r *Repository) SetStatus(ctx context.Context, id string, status models.PendingLinkStatus) (*models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "pendinglink.Repository.SetStatus")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var current models.PendingLinkStatus
	if err := tx.GetContext(ctx, &current, "SELECT status FROM pending_links WHERE id = $1 FOR UPDATE", id); err != nil {
		if database.IsNoRows(err) {
			return nil, notFound(id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to lock pending link")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update pending link")
	}

	if current != models.PendingLinkStatusPending ||
		(status != models.PendingLinkStatusApproved && status != models.PendingLinkStatusRejected) {
		return nil, &models.InvalidTransitionError{ID: id, From: current, To: status}
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("reviewed_at", now),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", models.PendingLinkStatusPending),
	)

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update pending link status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update pending link")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, &models.InvalidTransitionError{ID: id, From: current, To: status}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// ClampLimit applies the list limit bounds
func ClampLimit(limit int) int {
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func notFound(id string) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending link %s not found", id))
}
