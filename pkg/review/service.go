// Package review moves pending links through human review
package review

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	sagecontext "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Queue is the persistent review queue
type Queue interface {
	Get(ctx context.Context, id string) (*models.PendingLink, error)
	List(ctx context.Context, status *models.PendingLinkStatus, limit int) ([]models.PendingLink, error)
	SetStatus(ctx context.Context, id string, status models.PendingLinkStatus) (*models.PendingLink, error)
}

// Service lists and resolves pending links
type Service struct {
	queue   Queue
	emitter events.Emitter
	logger  ectologger.Logger
}

// NewService creates a new review Service. A nil emitter discards events.
func NewService(queue Queue, emitter events.Emitter, logger ectologger.Logger) *Service {
	if emitter == nil {
		emitter = events.Noop{}
	}
	return &Service{
		queue:   queue,
		emitter: emitter,
		logger:  logger,
	}
}

// List returns pending links newest first. An empty status lists every status.
func (s *Service) List(ctx context.Context, status string, limit int) ([]models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.List")
	defer span.End()

	var filter *models.PendingLinkStatus
	if status != "" {
		st := models.PendingLinkStatus(status)
		if !st.IsValid() {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid status: "+status)
		}
		filter = &st
	}

	return s.queue.List(ctx, filter, limit)
}

// Get returns a single pending link
func (s *Service) Get(ctx context.Context, id string) (*models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Get")
	defer span.End()

	return s.queue.Get(ctx, id)
}

// Approve accepts the candidate proposed by a pending link
func (s *Service) Approve(ctx context.Context, id string) (*models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Approve")
	defer span.End()

	return s.transition(ctx, id, models.PendingLinkStatusApproved, events.LinkApproved)
}

// Reject discards a pending link
func (s *Service) Reject(ctx context.Context, id string) (*models.PendingLink, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Reject")
	defer span.End()

	return s.transition(ctx, id, models.PendingLinkStatusRejected, events.LinkRejected)
}

func (s *Service) transition(ctx context.Context, id string, status models.PendingLinkStatus, eventType events.Type) (*models.PendingLink, error) {
	reviewer := sagecontext.GetReviewer(ctx)
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"pending_link_id": id,
		"status":          status,
		"reviewer":        reviewer,
	})

	link, err := s.queue.SetStatus(ctx, id, status)
	if err != nil {
		log.WithError(err).Warn("Failed to review pending link")
		return nil, err
	}

	metrics.ReviewTransitionsTotal.WithLabelValues(string(status)).Inc()

	event := &events.Event{
		Type:          eventType,
		PendingLinkID: link.ID,
		Method:        link.MatchMethod,
		Confidence:    link.MatchScore,
		Reviewer:      reviewer,
	}
	if link.CandidatePlayerID != nil {
		event.PlayerID = *link.CandidatePlayerID
	}
	s.emitter.Emit(ctx, event)

	log.Info("Reviewed pending link")
	return link, nil
}
