// Package matching resolves player mentions to canonical identities
package matching

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sage/pkg/embedding"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// IdentityStore is the read side of the canonical player store.
// Find methods return nil, nil when nothing matches.
type IdentityStore interface {
	FindBySourceID(ctx context.Context, sourceID string) (*models.Player, error)
	FindByExactKey(ctx context.Context, name, team string, classYear int) (*models.Player, error)
	ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Player, error)
}

// EmbeddingIndex returns the stored identities nearest to a vector, most similar first
type EmbeddingIndex interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]models.SimilarIdentity, error)
}

// Embedder turns identity text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NameScorer scores two names on a 0-100 scale
type NameScorer interface {
	Score(a, b string) float64
}

// ReviewQueue persists uncertain matches for human review
type ReviewQueue interface {
	Enqueue(ctx context.Context, link *models.PendingLink) (string, error)
}

// Config contains the tier thresholds
type Config struct {
	VectorAcceptThreshold float64       // cosine similarity that auto-accepts a vector candidate
	FuzzyAcceptScore      float64       // fuzzy score (0-100) that auto-accepts
	ReviewFloorScore      float64       // lowest fuzzy score that is queued for review
	TopK                  int           // nearest neighbours fetched in the vector tier
	DefaultClassYear      int           // class year assumed when a mention has none
	EmbeddingTimeout      time.Duration // bound on the embedding service call
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		VectorAcceptThreshold: 0.92,
		FuzzyAcceptScore:      90,
		ReviewFloorScore:      80,
		TopK:                  5,
		DefaultClassYear:      2025,
		EmbeddingTimeout:      10 * time.Second,
	}
}

// Matcher runs the deterministic, vector and fuzzy tiers in order
type Matcher struct {
	logger   ectologger.Logger
	store    IdentityStore
	index    EmbeddingIndex
	embedder Embedder
	scorer   NameScorer
	queue    ReviewQueue
	config   Config
}

// NewMatcher creates a new Matcher. index and embedder may be nil, which disables the vector tier.
func NewMatcher(
	logger ectologger.Logger,
	store IdentityStore,
	index EmbeddingIndex,
	embedder Embedder,
	scorer NameScorer,
	queue ReviewQueue,
	config Config,
) *Matcher {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Matcher{
		logger:   logger,
		store:    store,
		index:    index,
		embedder: embedder,
		scorer:   scorer,
		queue:    queue,
		config:   config,
	}
}

// Match resolves a mention. "No match" and "queued" are outcomes, not errors;
// the only mention-level error is *models.InvalidMentionError.
func (m *Matcher) Match(ctx context.Context, mention models.CandidateMention) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Match")
	defer span.End()

	start := time.Now()

	mention.Name = normalizers.CollapseWhitespace(mention.Name)
	if mention.Name == "" {
		return nil, &models.InvalidMentionError{Reason: "name is empty"}
	}

	year := m.config.DefaultClassYear
	if mention.ClassYear != nil {
		year = *mention.ClassYear
	}
	teamKey := normalizers.OptionalKey(mention.Team)

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"mention_name": mention.Name,
		"has_team":     teamKey != nil,
		"class_year":   year,
	})

	result, err := m.resolve(ctx, log, mention, year, teamKey)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("match.outcome", string(result.Outcome)),
		attribute.String("match.method", string(result.Method)),
	)

	metrics.MatchOutcomesTotal.WithLabelValues(string(result.Outcome), string(result.Method)).Inc()
	metrics.MatchDuration.WithLabelValues(string(result.Outcome)).Observe(time.Since(start).Seconds())

	log.WithFields(map[string]any{
		"outcome":         result.Outcome,
		"method":          result.Method,
		"player_id":       result.PlayerID,
		"confidence":      result.Confidence,
		"pending_link_id": result.PendingLinkID,
	}).Debug("Resolved mention")

	return result, nil
}

func (m *Matcher) resolve(ctx context.Context, log ectologger.Logger, mention models.CandidateMention, year int, teamKey *string) (*models.MatchResult, error) {
	if result, err := m.matchDeterministic(ctx, mention, year, teamKey); err != nil || result != nil {
		return result, err
	}

	if result, err := m.matchVector(ctx, log, mention, teamKey); err != nil || result != nil {
		return result, err
	}

	return m.matchFuzzy(ctx, mention, teamKey)
}

// =============================================================================
// Tier 1: deterministic
// =============================================================================

func (m *Matcher) matchDeterministic(ctx context.Context, mention models.CandidateMention, year int, teamKey *string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.matchDeterministic")
	defer span.End()

	if mention.SourceID != nil && *mention.SourceID != "" {
		player, err := m.store.FindBySourceID(ctx, *mention.SourceID)
		if err != nil {
			return nil, err
		}
		if player != nil {
			return models.Matched(player, 1.0, models.MatchMethodDeterministic), nil
		}
	}

	if teamKey != nil {
		player, err := m.store.FindByExactKey(ctx, mention.Name, *mention.Team, year)
		if err != nil {
			return nil, err
		}
		if player != nil {
			return models.Matched(player, 1.0, models.MatchMethodDeterministic), nil
		}
	}

	return nil, nil
}

// =============================================================================
// Tier 2: vector similarity
// =============================================================================

func (m *Matcher) matchVector(ctx context.Context, log ectologger.Logger, mention models.CandidateMention, teamKey *string) (*models.MatchResult, error) {
	if m.embedder == nil || m.index == nil {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.matchVector")
	defer span.End()

	text := embedding.BuildIdentityText(embedding.MentionFields(&mention, m.config.DefaultClassYear))

	vector, err := m.embed(ctx, text)
	if err != nil {
		// the vector tier is unavailable for this mention only
		log.WithError(err).Warn("Embedding service unavailable, falling back to fuzzy matching")
		metrics.VectorTierFallbacksTotal.Inc()
		return nil, nil
	}

	candidates, err := m.index.Nearest(ctx, vector, m.config.TopK)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return outranks(candidates[i].Similarity, &candidates[i].Player, candidates[j].Similarity, &candidates[j].Player)
	})

	for i := range candidates {
		candidate := candidates[i]
		if teamKey != nil && candidate.TeamKey != *teamKey {
			continue
		}
		if candidate.Similarity < m.config.VectorAcceptThreshold {
			break
		}
		player := candidate.Player
		return models.Matched(&player, candidate.Similarity, models.MatchMethodVector), nil
	}

	return nil, nil
}

func (m *Matcher) embed(ctx context.Context, text string) ([]float32, error) {
	if m.config.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.EmbeddingTimeout)
		defer cancel()
	}
	return m.embedder.Embed(ctx, text)
}

// =============================================================================
// Tier 3: fuzzy with confidence banding
// =============================================================================

func (m *Matcher) matchFuzzy(ctx context.Context, mention models.CandidateMention, teamKey *string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.matchFuzzy")
	defer span.End()

	filter := models.CandidateFilter{TeamKey: teamKey}
	if mention.Position != nil {
		if position := normalizers.Position(*mention.Position); position != "" {
			filter.Position = &position
		}
	}

	players, err := m.store.ListCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	var best *models.Player
	bestScore := -1.0
	for i := range players {
		score := m.scorer.Score(mention.Name, players[i].FullName())
		if best == nil || outranks(score, &players[i], bestScore, best) {
			best = &players[i]
			bestScore = score
		}
	}

	switch {
	case best == nil:
		return models.NoMatch(), nil
	case bestScore >= m.config.FuzzyAcceptScore:
		return models.Matched(best, bestScore/100, models.MatchMethodFuzzy), nil
	case bestScore >= m.config.ReviewFloorScore:
		return m.enqueue(ctx, mention, best, bestScore/100)
	default:
		return models.NoMatch(), nil
	}
}

func (m *Matcher) enqueue(ctx context.Context, mention models.CandidateMention, candidate *models.Player, score float64) (*models.MatchResult, error) {
	var sourceTeam *string
	if mention.Team != nil {
		if team := normalizers.CollapseWhitespace(*mention.Team); team != "" {
			sourceTeam = &team
		}
	}
	candidateID := candidate.ID

	id, err := m.queue.Enqueue(ctx, &models.PendingLink{
		SourceName:        mention.Name,
		SourceTeam:        sourceTeam,
		SourceContext:     mention.SourceContext,
		CandidatePlayerID: &candidateID,
		MatchScore:        score,
		MatchMethod:       models.MatchMethodFuzzy,
		Status:            models.PendingLinkStatusPending,
	})
	if err != nil {
		return nil, err
	}
	return models.Queued(id), nil
}

// outranks orders candidates by score, then completeness, then lowest id
func outranks(scoreA float64, a *models.Player, scoreB float64, b *models.Player) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	if fa, fb := a.PopulatedFields(), b.PopulatedFields(); fa != fb {
		return fa > fb
	}
	return a.ID < b.ID
}
