package linking_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/linking"
	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/memstore"
	"github.com/Ramsey-B/sage/pkg/models"
)

func strPtr(s string) *string { return &s }

func discardLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeEnsurer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeEnsurer) Ensure(_ context.Context, player *models.Player, _ bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, player.ID)
	return f.err == nil, f.err
}

type fakeGraph struct {
	mu    sync.Mutex
	links []models.ReportPlayer
	err   error
}

func (f *fakeGraph) Attach(_ context.Context, link *models.ReportPlayer, _ *models.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, *link)
	return f.err
}

type stubMatcher struct {
	mu       sync.Mutex
	mentions []models.CandidateMention
	match    func(models.CandidateMention) (*models.MatchResult, error)
}

func (s *stubMatcher) Match(_ context.Context, mention models.CandidateMention) (*models.MatchResult, error) {
	s.mu.Lock()
	s.mentions = append(s.mentions, mention)
	s.mu.Unlock()
	return s.match(mention)
}

type harness struct {
	store     *memstore.Store
	recorder  *events.Recorder
	graph     *fakeGraph
	generator *fakeEnsurer
	consumer  *linking.Consumer
}

func newHarness(t *testing.T, matcher linking.Matcher, workers int) *harness {
	t.Helper()
	h := &harness{
		store:     memstore.New(),
		recorder:  &events.Recorder{},
		graph:     &fakeGraph{},
		generator: &fakeEnsurer{},
	}
	if matcher == nil {
		matcher = matching.NewMatcher(discardLogger(), h.store.Players, nil, nil, nil, h.store.PendingLinks, matching.DefaultConfig())
	}
	h.consumer = linking.NewConsumer(
		discardLogger(),
		matcher,
		h.store.Players,
		h.store.ReportPlayers,
		h.graph,
		h.generator,
		h.recorder,
		linking.Config{WorkerCount: workers, DefaultClassYear: 2025},
	)
	return h
}

func (h *harness) seed(t *testing.T, name, team string) *models.Player {
	t.Helper()
	p, err := h.store.Players.Upsert(context.Background(), &models.UpsertPlayerRequest{Name: name, Team: team, ClassYear: 2025})
	require.NoError(t, err)
	return p
}

func TestLinkReport_MatchedRecordsSourceID(t *testing.T) {
	h := newHarness(t, nil, 1)
	arch := h.seed(t, "Arch Manning", "Texas")

	report := &models.Report{
		ID:        "report-1",
		SourceURL: strPtr("https://example.com/texas"),
		Teams:     []string{"Texas"},
		Mentions: []models.CandidateMention{
			{Name: "Arch Manning", SourceSystem: strPtr("espn"), SourceID: strPtr("espn-1")},
		},
	}

	stats, err := h.consumer.LinkReport(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, models.LinkStats{ReportsProcessed: 1, ReportsLinked: 1, PlayersLinked: 1}, stats)

	stored, err := h.store.Players.Get(context.Background(), arch.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SourceID)
	assert.Equal(t, "espn-1", *stored.SourceID)

	attached, err := h.store.ReportPlayers.ListByReport(context.Background(), "report-1")
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, arch.ID, attached[0].PlayerID)
	assert.Equal(t, models.MatchMethodDeterministic, attached[0].Method)
	assert.Equal(t, 1.0, attached[0].Confidence)

	assert.Len(t, h.graph.links, 1)
	assert.Len(t, h.recorder.OfType(events.PlayerMatched), 1)
	assert.Empty(t, h.generator.calls)
}

func TestLinkReport_ExistingSourceIDIsKept(t *testing.T) {
	h := newHarness(t, nil, 1)
	_, err := h.store.Players.Upsert(context.Background(), &models.UpsertPlayerRequest{
		Name: "Arch Manning", Team: "Texas", ClassYear: 2025, SourceID: strPtr("roster-9"),
	})
	require.NoError(t, err)

	_, err = h.consumer.LinkReport(context.Background(), &models.Report{
		ID:       "report-1",
		Mentions: []models.CandidateMention{{Name: "Arch Manning", Team: strPtr("Texas"), SourceID: strPtr("espn-1")}},
	})
	require.NoError(t, err)

	p, err := h.store.Players.FindBySourceID(context.Background(), "roster-9")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestLinkReport_CreatesUnknownPlayer(t *testing.T) {
	h := newHarness(t, nil, 1)

	stats, err := h.consumer.LinkReport(context.Background(), &models.Report{
		ID:    "report-1",
		Teams: []string{"Ohio State"},
		Mentions: []models.CandidateMention{
			{Name: "Jeremiah Smith", Position: strPtr("wr")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.PlayersLinked)
	require.Equal(t, 1, h.store.Players.Len())

	p, err := h.store.Players.FindByExactKey(context.Background(), "Jeremiah Smith", "ohio state", 2025)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "WR", *p.Position)

	assert.Equal(t, []string{p.ID}, h.generator.calls)

	attached, err := h.store.ReportPlayers.ListByReport(context.Background(), "report-1")
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, models.AttachMethodCreated, attached[0].Method)
	assert.Len(t, h.recorder.OfType(events.PlayerCreated), 1)
}

func TestLinkReport_UnknownTeamIsSkipped(t *testing.T) {
	h := newHarness(t, nil, 1)

	stats, err := h.consumer.LinkReport(context.Background(), &models.Report{
		ID:       "report-1",
		Mentions: []models.CandidateMention{{Name: "Jeremiah Smith"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, h.store.Players.Len())
}

func TestLinkReport_InvalidMentionIsSkipped(t *testing.T) {
	h := newHarness(t, nil, 1)

	stats, err := h.consumer.LinkReport(context.Background(), &models.Report{
		ID:    "report-1",
		Teams: []string{"Texas"},
		Mentions: []models.CandidateMention{
			{Name: "   "},
			{Name: "Arch Manning"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Created)
}

func TestLinkReport_QueuedIsNotAttached(t *testing.T) {
	matcher := &stubMatcher{match: func(models.CandidateMention) (*models.MatchResult, error) {
		return models.Queued("pending-1"), nil
	}}
	h := newHarness(t, matcher, 1)

	stats, err := h.consumer.LinkReport(context.Background(), &models.Report{
		ID:        "report-1",
		SourceURL: strPtr("https://example.com/a"),
		Teams:     []string{"Texas"},
		Mentions: []models.CandidateMention{
			{Name: "Arch Mannin", SourceContext: map[string]any{"paragraph": 3, "report_id": "stale"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Queued)
	assert.Zero(t, stats.PlayersLinked)

	require.Len(t, matcher.mentions, 1)
	sent := matcher.mentions[0]
	require.NotNil(t, sent.Team)
	assert.Equal(t, "Texas", *sent.Team)
	assert.Equal(t, map[string]any{
		"paragraph":  3,
		"report_id":  "report-1",
		"source_url": "https://example.com/a",
	}, sent.SourceContext)

	attached, err := h.store.ReportPlayers.ListByReport(context.Background(), "report-1")
	require.NoError(t, err)
	assert.Empty(t, attached)

	queued := h.recorder.OfType(events.LinkQueued)
	require.Len(t, queued, 1)
	assert.Equal(t, "pending-1", queued[0].PendingLinkID)
}

func TestLinkReport_SideEffectFailuresAreNotFatal(t *testing.T) {
	h := newHarness(t, nil, 1)
	h.graph.err = errors.New("graph down")
	h.generator.err = &models.EmbeddingServiceError{Err: errors.New("503")}

	stats, err := h.consumer.LinkReport(context.Background(), &models.Report{
		ID:       "report-1",
		Mentions: []models.CandidateMention{{Name: "Arch Manning", Team: strPtr("Texas")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
}

func TestLinkBatch_CountsFailedReports(t *testing.T) {
	matcher := &stubMatcher{match: func(m models.CandidateMention) (*models.MatchResult, error) {
		if m.Name == "Broken Mention" {
			return nil, errors.New("connection reset")
		}
		return models.NoMatch(), nil
	}}
	h := newHarness(t, matcher, 3)

	reports := []models.Report{
		{ID: "r1", Teams: []string{"Texas"}, Mentions: []models.CandidateMention{{Name: "Arch Manning"}}},
		{ID: "r2", Teams: []string{"Texas"}, Mentions: []models.CandidateMention{{Name: "Broken Mention"}}},
		{ID: "r3", Teams: []string{"Georgia"}, Mentions: []models.CandidateMention{{Name: "Gunner Stockton"}, {Name: "Nate Frazier"}}},
		{ID: "r4"},
	}

	stats := h.consumer.LinkBatch(context.Background(), reports)

	assert.Equal(t, 4, stats.ReportsProcessed)
	assert.Equal(t, 3, stats.ReportsLinked)
	assert.Equal(t, 3, stats.Created)
	assert.Equal(t, 3, stats.PlayersLinked)
	assert.Equal(t, 1, stats.Errors)
}

func TestHandleMessage(t *testing.T) {
	h := newHarness(t, nil, 1)

	t.Run("links a report", func(t *testing.T) {
		err := h.consumer.HandleMessage(context.Background(), &kafka.IncomingMessage{
			Key:   "report-7",
			Value: []byte(`{"teams":["Texas"],"mentions":[{"name":"Arch Manning"}]}`),
		})
		require.NoError(t, err)

		attached, err := h.store.ReportPlayers.ListByReport(context.Background(), "report-7")
		require.NoError(t, err)
		assert.Len(t, attached, 1)
	})

	t.Run("drops malformed messages", func(t *testing.T) {
		err := h.consumer.HandleMessage(context.Background(), &kafka.IncomingMessage{Value: []byte(`{`)})
		assert.NoError(t, err)
	})
}
