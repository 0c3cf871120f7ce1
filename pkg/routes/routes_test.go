package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/linking"
	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/memstore"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/review"
	"github.com/Ramsey-B/sage/pkg/routes"
	"github.com/Ramsey-B/sage/pkg/routes/health"
)

type api struct {
	e        *echo.Echo
	store    *memstore.Store
	recorder *events.Recorder
	checker  *health.Checker
}

func newAPI(t *testing.T, deps ...health.Dependency) *api {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	store := memstore.New()
	recorder := &events.Recorder{}

	matcher := matching.NewMatcher(logger, store.Players, nil, nil, nil, store.PendingLinks, matching.DefaultConfig())
	consumer := linking.NewConsumer(logger, matcher, store.Players, store.ReportPlayers, nil, nil, recorder, linking.Config{})
	checker := health.NewChecker("test", deps...)

	e := routes.NewEcho(routes.Options{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}, routes.Dependencies{
		Logger:  logger,
		Health:  checker,
		Matcher: matcher,
		Players: store.Players,
		Review:  review.NewService(store.PendingLinks, recorder, logger),
		Linker:  consumer,
		Reports: store.ReportPlayers,
	})

	return &api{e: e, store: store, recorder: recorder, checker: checker}
}

func (a *api) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) seed(t *testing.T, name, team string) *models.Player {
	t.Helper()
	p, err := a.store.Players.Upsert(context.Background(), &models.UpsertPlayerRequest{Name: name, Team: team, ClassYear: 2025})
	require.NoError(t, err)
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestMatch(t *testing.T) {
	a := newAPI(t)
	arch := a.seed(t, "Arch Manning", "Texas")

	t.Run("matched", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/match", `{"name":"arch  manning","team":"TEXAS"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[models.MatchResult](t, rec)
		assert.Equal(t, models.MatchOutcomeMatched, result.Outcome)
		assert.Equal(t, arch.ID, result.PlayerID)
		assert.Equal(t, models.MatchMethodDeterministic, result.Method)
		assert.Equal(t, 1.0, result.Confidence)
	})

	t.Run("no match", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/match", `{"name":"Jeremiah Smith","team":"Ohio State"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.MatchOutcomeNoMatch, decode[models.MatchResult](t, rec).Outcome)
	})

	t.Run("missing name", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/match", `{"team":"Texas"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blank name", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/match", `{"name":"   "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[middleware.ErrorResponse](t, rec)
		assert.Contains(t, resp.Message, "invalid mention")
		assert.NotEmpty(t, resp.RequestID)
	})
}

func TestGetPlayer(t *testing.T) {
	a := newAPI(t)
	arch := a.seed(t, "Arch Manning", "Texas")

	rec := a.do(t, http.MethodGet, "/api/v1/players/"+arch.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Manning", decode[models.Player](t, rec).LastName)

	rec = a.do(t, http.MethodGet, "/api/v1/players/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingLinks(t *testing.T) {
	a := newAPI(t)
	candidate := a.seed(t, "Arch Manning", "Texas").ID
	id, err := a.store.PendingLinks.Enqueue(context.Background(), &models.PendingLink{
		SourceName:        "Arch Mannning",
		CandidatePlayerID: &candidate,
		MatchScore:        0.85,
		MatchMethod:       models.MatchMethodFuzzy,
	})
	require.NoError(t, err)

	rec := a.do(t, http.MethodGet, "/api/v1/pending-links?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.PendingLink](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/api/v1/pending-links?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/pending-links/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Arch Mannning", decode[models.PendingLink](t, rec).SourceName)

	rec = a.do(t, http.MethodPost, "/api/v1/pending-links/"+id+"/approve", "", middleware.HeaderReviewer, "scout")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PendingLinkStatusApproved, decode[models.PendingLink](t, rec).Status)

	approved := a.recorder.OfType(events.LinkApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, "scout", approved[0].Reviewer)

	rec = a.do(t, http.MethodPost, "/api/v1/pending-links/"+id+"/reject", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[middleware.ErrorResponse](t, rec)
	assert.Equal(t, id, resp.Meta["id"])
	assert.Equal(t, "approved", resp.Meta["status"])

	rec = a.do(t, http.MethodPost, "/api/v1/pending-links/missing/approve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLinkReport(t *testing.T) {
	a := newAPI(t)
	a.seed(t, "Arch Manning", "Texas")

	body := `{
		"id": "report-1",
		"source_url": "https://example.com/texas",
		"teams": ["Texas"],
		"mentions": [{"name": "Arch Manning"}, {"name": "Colin Simmons", "position": "edge"}]
	}`
	rec := a.do(t, http.MethodPost, "/api/v1/reports/link", body)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[models.LinkStats](t, rec)
	assert.Equal(t, 2, stats.PlayersLinked)
	assert.Equal(t, 1, stats.Created)

	rec = a.do(t, http.MethodGet, "/api/v1/reports/report-1/players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	links := decode[[]models.ReportPlayer](t, rec)
	require.Len(t, links, 2)
	assert.Equal(t, models.MatchMethodDeterministic, links[0].Method)
	assert.Equal(t, models.AttachMethodCreated, links[1].Method)

	rec = a.do(t, http.MethodGet, "/api/v1/reports/unknown/players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/v1/reports/link", `{"mentions":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinkReport_SkipsInvalidMention(t *testing.T) {
	a := newAPI(t)
	arch := a.seed(t, "Arch Manning", "Texas")

	body := `{
		"id": "report-9",
		"teams": ["Texas"],
		"mentions": [{"name": "Arch Manning"}, {"name": ""}]
	}`
	rec := a.do(t, http.MethodPost, "/api/v1/reports/link", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stats := decode[models.LinkStats](t, rec)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.PlayersLinked)
	assert.Equal(t, 0, stats.Errors)

	rec = a.do(t, http.MethodGet, "/api/v1/reports/report-9/players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	links := decode[[]models.ReportPlayer](t, rec)
	require.Len(t, links, 1)
	assert.Equal(t, arch.ID, links[0].PlayerID)
}

func TestHealth(t *testing.T) {
	var dbErr, cacheErr error
	a := newAPI(t,
		health.Dependency{Name: "database", Ping: func(context.Context) error { return dbErr }},
		health.Dependency{Name: "redis", Ping: func(context.Context) error { return cacheErr }, Optional: true},
	)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/health/live", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, a.do(t, http.MethodGet, "/api/v1/health/ready", "").Code)

	a.checker.SetReady(true)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/health/ready", "").Code)

	rec := a.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[health.Report](t, rec)
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Equal(t, health.StatusHealthy, report.Checks["database"].Status)

	// an optional dependency failing degrades but stays ready
	cacheErr = errors.New("redis timeout")
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/v1/health/ready", "").Code)
	rec = a.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report = decode[health.Report](t, rec)
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.Equal(t, "redis timeout", report.Checks["redis"].Error)

	dbErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, a.do(t, http.MethodGet, "/api/v1/health/ready", "").Code)
	rec = a.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	report = decode[health.Report](t, rec)
	assert.Equal(t, health.StatusUnhealthy, report.Status)
	assert.Equal(t, "connection refused", report.Checks["database"].Error)
}

func TestMetrics(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
