package reportplayer

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const table = "report_players"

// Repository attaches resolved players to source reports
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new report player repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Attach records that a report mentions a player. Re-attaching the same pair is a no-op.
func (r *Repository) Attach(ctx context.Context, link *models.ReportPlayer) error {
	ctx, span := tracing.StartSpan(ctx, "reportplayer.Repository.Attach")
	defer span.End()

	link.CreatedAt = time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("report_id", "player_id", "source_url", "method", "confidence", "created_at")
	ib.Values(link.ReportID, link.PlayerID, link.SourceURL, link.Method, link.Confidence, link.CreatedAt)
	ib.OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"report_id": link.ReportID,
			"player_id": link.PlayerID,
		}).Error("Failed to attach player to report")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to attach player to report")
	}

	return nil
}

// ListByReport returns the players attached to a report
func (r *Repository) ListByReport(ctx context.Context, reportID string) ([]models.ReportPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "reportplayer.Repository.ListByReport")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("report_id", "player_id", "source_url", "method", "confidence", "created_at")
	sb.From(table)
	sb.Where(sb.Equal("report_id", reportID))
	sb.OrderBy("created_at", "player_id")

	query, args := sb.Build()
	var links []models.ReportPlayer
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list report players")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list report players")
	}

	return links, nil
}
