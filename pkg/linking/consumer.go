// Package linking applies match outcomes for the mentions extracted from source reports
package linking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Matcher resolves a single mention
type Matcher interface {
	Match(ctx context.Context, mention models.CandidateMention) (*models.MatchResult, error)
}

// PlayerStore mints or updates canonical players
type PlayerStore interface {
	Upsert(ctx context.Context, req *models.UpsertPlayerRequest) (*models.Player, error)
}

// ReportStore records report attachments
type ReportStore interface {
	Attach(ctx context.Context, link *models.ReportPlayer) error
}

// GraphWriter mirrors report attachments into the graph
type GraphWriter interface {
	Attach(ctx context.Context, link *models.ReportPlayer, player *models.Player) error
}

// EmbeddingEnsurer embeds newly minted players
type EmbeddingEnsurer interface {
	Ensure(ctx context.Context, player *models.Player, force bool) (bool, error)
}

// Config controls the consumer
type Config struct {
	WorkerCount      int
	DefaultClassYear int
}

// Consumer links reports to canonical players
type Consumer struct {
	logger    ectologger.Logger
	matcher   Matcher
	players   PlayerStore
	reports   ReportStore
	graph     GraphWriter
	generator EmbeddingEnsurer
	emitter   events.Emitter
	config    Config
}

// NewConsumer creates a new Consumer. graph, generator and emitter may be nil.
func NewConsumer(
	logger ectologger.Logger,
	matcher Matcher,
	players PlayerStore,
	reports ReportStore,
	graph GraphWriter,
	generator EmbeddingEnsurer,
	emitter events.Emitter,
	config Config,
) *Consumer {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.DefaultClassYear == 0 {
		config.DefaultClassYear = 2025
	}
	if emitter == nil {
		emitter = events.Noop{}
	}
	return &Consumer{
		logger:    logger,
		matcher:   matcher,
		players:   players,
		reports:   reports,
		graph:     graph,
		generator: generator,
		emitter:   emitter,
		config:    config,
	}
}

// LinkBatch links every report. A failing report is counted and does not stop the batch.
func (c *Consumer) LinkBatch(ctx context.Context, reports []models.Report) models.LinkStats {
	ctx, span := tracing.StartSpan(ctx, "linking.Consumer.LinkBatch")
	defer span.End()

	var (
		mu    sync.Mutex
		total models.LinkStats
		wg    sync.WaitGroup
	)

	workers := c.config.WorkerCount
	if workers > len(reports) {
		workers = len(reports)
	}

	queue := make(chan *models.Report)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for report := range queue {
				stats, err := c.LinkReport(ctx, report)
				if err != nil {
					stats.Errors++
				}
				mu.Lock()
				total.Add(stats)
				mu.Unlock()
			}
		}()
	}

	for i := range reports {
		if ctx.Err() != nil {
			break
		}
		queue <- &reports[i]
	}
	close(queue)
	wg.Wait()

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reports_processed": total.ReportsProcessed,
		"reports_linked":    total.ReportsLinked,
		"players_linked":    total.PlayersLinked,
		"queued":            total.Queued,
		"created":           total.Created,
		"skipped":           total.Skipped,
		"errors":            total.Errors,
	}).Info("Finished linking batch")

	return total
}

// LinkReport resolves each mention of one report and attaches the resolved players.
// Attachments made before a failure are kept; the error aborts the rest of the report.
func (c *Consumer) LinkReport(ctx context.Context, report *models.Report) (models.LinkStats, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Consumer.LinkReport",
		attribute.String("report.id", report.ID),
		attribute.Int("report.mentions", len(report.Mentions)),
	)
	defer span.End()

	stats := models.LinkStats{ReportsProcessed: 1}
	log := c.logger.WithContext(ctx).WithField("report_id", report.ID)

	var defaultTeam *string
	teams := ectolinq.Filter(report.Teams, func(team string) bool {
		return normalizers.CollapseWhitespace(team) != ""
	})
	if len(teams) > 0 {
		team := ectolinq.First(teams)
		defaultTeam = &team
	}

	for _, mention := range report.Mentions {
		result, err := c.linkMention(ctx, report, mention, defaultTeam)
		if err != nil {
			var invalid *models.InvalidMentionError
			if errors.As(err, &invalid) {
				log.WithError(err).Warn("Skipping invalid mention")
				metrics.LinkMentionsTotal.WithLabelValues("invalid").Inc()
				stats.Skipped++
				continue
			}
			metrics.LinkMentionsTotal.WithLabelValues("error").Inc()
			tracing.RecordError(span, err)
			log.WithError(err).WithField("mention_name", mention.Name).Error("Failed to link report")
			return stats, fmt.Errorf("failed to link report %s: %w", report.ID, err)
		}

		metrics.LinkMentionsTotal.WithLabelValues(string(result)).Inc()
		switch result {
		case resultQueued:
			stats.Queued++
		case resultSkipped:
			stats.Skipped++
		case resultCreated:
			stats.Created++
			stats.PlayersLinked++
		case resultLinked:
			stats.PlayersLinked++
		}
	}

	stats.ReportsLinked = 1
	log.WithFields(map[string]any{
		"players_linked": stats.PlayersLinked,
		"queued":         stats.Queued,
		"skipped":        stats.Skipped,
	}).Debug("Linked report")

	return stats, nil
}

// HandleMessage adapts LinkReport to the Kafka consumer
func (c *Consumer) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	report, err := msg.ParseReport()
	if err != nil {
		// a malformed message will never parse, so it is logged and committed
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Error("Dropping unparseable report message")
		return nil
	}

	_, err = c.LinkReport(ctx, report)
	return err
}

type linkResult string

const (
	resultLinked  linkResult = "linked"
	resultCreated linkResult = "created"
	resultQueued  linkResult = "queued"
	resultSkipped linkResult = "skipped"
)

func (c *Consumer) linkMention(ctx context.Context, report *models.Report, mention models.CandidateMention, defaultTeam *string) (linkResult, error) {
	if mention.Team == nil || normalizers.CollapseWhitespace(*mention.Team) == "" {
		mention.Team = defaultTeam
	}
	mention.SourceContext = sourceContext(report, mention.SourceContext)

	result, err := c.matcher.Match(ctx, mention)
	if err != nil {
		return "", err
	}

	switch result.Outcome {
	case models.MatchOutcomeQueued:
		c.emitter.Emit(ctx, &events.Event{
			Type:          events.LinkQueued,
			PendingLinkID: result.PendingLinkID,
			ReportID:      report.ID,
		})
		return resultQueued, nil

	case models.MatchOutcomeMatched:
		player, err := c.recordSourceID(ctx, result.Player, mention)
		if err != nil {
			return "", err
		}
		if err := c.attach(ctx, report, player, result.Method, result.Confidence); err != nil {
			return "", err
		}
		c.emitter.Emit(ctx, &events.Event{
			Type:       events.PlayerMatched,
			PlayerID:   player.ID,
			ReportID:   report.ID,
			Method:     result.Method,
			Confidence: result.Confidence,
		})
		return resultLinked, nil

	default:
		if mention.Team == nil {
			return resultSkipped, nil
		}
		player, err := c.create(ctx, mention)
		if err != nil {
			return "", err
		}
		if err := c.attach(ctx, report, player, models.AttachMethodCreated, 1.0); err != nil {
			return "", err
		}
		c.emitter.Emit(ctx, &events.Event{
			Type:     events.PlayerCreated,
			PlayerID: player.ID,
			ReportID: report.ID,
		})
		return resultCreated, nil
	}
}

// recordSourceID stores the mention's foreign key on a matched player that has none
func (c *Consumer) recordSourceID(ctx context.Context, player *models.Player, mention models.CandidateMention) (*models.Player, error) {
	if mention.SourceID == nil || *mention.SourceID == "" || player.SourceID != nil {
		return player, nil
	}
	return c.players.Upsert(ctx, &models.UpsertPlayerRequest{
		Name:         player.FullName(),
		Team:         player.Team,
		ClassYear:    player.ClassYear,
		SourceSystem: mention.SourceSystem,
		SourceID:     mention.SourceID,
	})
}

func (c *Consumer) create(ctx context.Context, mention models.CandidateMention) (*models.Player, error) {
	year := c.config.DefaultClassYear
	if mention.ClassYear != nil {
		year = *mention.ClassYear
	}

	player, err := c.players.Upsert(ctx, &models.UpsertPlayerRequest{
		Name:         mention.Name,
		Team:         *mention.Team,
		ClassYear:    year,
		Position:     mention.Position,
		SourceSystem: mention.SourceSystem,
		SourceID:     mention.SourceID,
	})
	if err != nil {
		return nil, err
	}

	if c.generator != nil {
		// the backfill job picks up players whose embedding failed here
		if _, err := c.generator.Ensure(ctx, player, false); err != nil {
			c.logger.WithContext(ctx).WithError(err).WithField("player_id", player.ID).Warn("Failed to embed new player")
		}
	}

	return player, nil
}

func (c *Consumer) attach(ctx context.Context, report *models.Report, player *models.Player, method models.MatchMethod, confidence float64) error {
	link := &models.ReportPlayer{
		ReportID:   report.ID,
		PlayerID:   player.ID,
		SourceURL:  report.SourceURL,
		Method:     method,
		Confidence: confidence,
	}
	if err := c.reports.Attach(ctx, link); err != nil {
		return err
	}

	if c.graph != nil {
		if err := c.graph.Attach(ctx, link, player); err != nil {
			c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"report_id": report.ID,
				"player_id": player.ID,
			}).Warn("Failed to mirror report attachment to graph")
		}
	}
	return nil
}

// sourceContext layers the report reference over whatever context the mention carried
func sourceContext(report *models.Report, own map[string]any) map[string]any {
	ctx := make(map[string]any, len(own)+2)
	for k, v := range own {
		ctx[k] = v
	}
	ctx["report_id"] = report.ID
	if report.SourceURL != nil {
		ctx["source_url"] = *report.SourceURL
	} else {
		ctx["source_url"] = nil
	}
	return ctx
}
