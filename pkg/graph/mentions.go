package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const mergeMentionCypher = `
	MERGE (r:Report {id: $report_id})
	SET r.source_url = coalesce($source_url, r.source_url)
	MERGE (p:Player {id: $player_id})
	SET p += $player
	MERGE (r)-[m:MENTIONS]->(p)
	SET m.method = $method, m.confidence = $confidence
`

// MentionService records which players a report mentions
type MentionService struct {
	client *Client
	logger ectologger.Logger
}

// NewMentionService creates a new MentionService
func NewMentionService(client *Client, logger ectologger.Logger) *MentionService {
	return &MentionService{
		client: client,
		logger: logger,
	}
}

// Attach merges the report and player nodes and the MENTIONS edge between them.
// Repeating the call updates the edge properties in place.
func (s *MentionService) Attach(ctx context.Context, link *models.ReportPlayer, player *models.Player) error {
	ctx, span := tracing.StartSpan(ctx, "graph.MentionService.Attach")
	defer span.End()

	err := s.client.run(ctx, mergeMentionCypher, mentionParams(link, player))
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"report_id": link.ReportID,
			"player_id": link.PlayerID,
		}).Error("Failed to write mention edge to graph")
		return fmt.Errorf("failed to write mention edge: %w", err)
	}

	return nil
}

func mentionParams(link *models.ReportPlayer, player *models.Player) map[string]any {
	var sourceURL any
	if link.SourceURL != nil {
		sourceURL = *link.SourceURL
	}

	props := map[string]any{}
	if player != nil {
		props["name"] = player.FullName()
		props["team"] = player.Team
		props["class_year"] = int64(player.ClassYear)
		if player.Position != nil {
			props["position"] = *player.Position
		}
	}

	return map[string]any{
		"report_id":  link.ReportID,
		"source_url": sourceURL,
		"player_id":  link.PlayerID,
		"player":     props,
		"method":     string(link.Method),
		"confidence": link.Confidence,
	}
}
