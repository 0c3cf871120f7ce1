package embedding

import (
	"context"

	"github.com/Gobusters/ectologger"
	"golang.org/x/time/rate"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// PlayerLister pages through players ordered by id, starting after afterID
type PlayerLister interface {
	ListAll(ctx context.Context, afterID string, limit int) ([]models.Player, error)
}

// BackfillOptions controls a backfill run
type BackfillOptions struct {
	BatchSize int
	Limit     int  // stop after this many players, 0 for all
	Force     bool // re-embed even when the identity text is unchanged
}

// BackfillStats summarises a backfill run
type BackfillStats struct {
	Processed int `json:"processed"`
	Embedded  int `json:"embedded"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Backfiller embeds every stored player whose identity text has no current embedding
type Backfiller struct {
	players   PlayerLister
	generator *Generator
	logger    ectologger.Logger
}

// NewBackfiller creates a backfiller. requestsPerSecond bounds calls to the embedding service, 0 disables the limit.
func NewBackfiller(players PlayerLister, store Store, embedder Embedder, requestsPerSecond float64, logger ectologger.Logger) *Backfiller {
	if requestsPerSecond > 0 {
		embedder = &limitedEmbedder{
			inner:   embedder,
			limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		}
	}
	return &Backfiller{
		players:   players,
		generator: NewGenerator(embedder, store, logger),
		logger:    logger,
	}
}

// Run walks the players in id order. A failing player is counted and skipped;
// listing failures and cancellation stop the run.
func (b *Backfiller) Run(ctx context.Context, opts BackfillOptions) (BackfillStats, error) {
	ctx, span := tracing.StartSpan(ctx, "embedding.Backfiller.Run")
	defer span.End()

	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}

	var stats BackfillStats
	afterID := ""

	for {
		batchSize := opts.BatchSize
		if opts.Limit > 0 && opts.Limit-stats.Processed < batchSize {
			batchSize = opts.Limit - stats.Processed
		}
		if batchSize <= 0 {
			break
		}

		players, err := b.players.ListAll(ctx, afterID, batchSize)
		if err != nil {
			return stats, err
		}
		if len(players) == 0 {
			break
		}

		for i := range players {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			stats.Processed++
			embedded, err := b.generator.Ensure(ctx, &players[i], opts.Force)
			switch {
			case err != nil:
				stats.Errors++
				b.logger.WithContext(ctx).WithError(err).WithField("player_id", players[i].ID).Warn("Failed to embed player")
			case embedded:
				stats.Embedded++
			default:
				stats.Skipped++
			}
		}

		afterID = players[len(players)-1].ID
		b.logger.WithContext(ctx).WithFields(map[string]any{
			"processed": stats.Processed,
			"embedded":  stats.Embedded,
			"errors":    stats.Errors,
		}).Info("Backfill batch complete")

		if len(players) < batchSize {
			break
		}
	}

	return stats, nil
}

type limitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

func (l *limitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.Embed(ctx, text)
}
