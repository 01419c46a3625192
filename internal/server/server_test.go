package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raidlens/raidlens/internal/core"
	"github.com/raidlens/raidlens/internal/core/store"
	"github.com/raidlens/raidlens/internal/server/handlers"
)

type fakeStore struct {
	fights  map[string][]store.StoredFight
	metrics map[string]map[int]*core.FightMetrics
	runs    map[string][]core.IngestRun
	budget  *core.RateBudgetSnapshot
}

func (f *fakeStore) ListFights(_ context.Context, code string) ([]store.StoredFight, error) {
	return f.fights[code], nil
}

func (f *fakeStore) LoadFightMetrics(_ context.Context, code string, fightID int) (*core.FightMetrics, error) {
	byFight, ok := f.metrics[code]
	if !ok {
		return nil, nil
	}
	return byFight[fightID], nil
}

func (f *fakeStore) ListIngestRuns(_ context.Context, code string) ([]core.IngestRun, error) {
	return f.runs[code], nil
}

func (f *fakeStore) LoadRateBudget(_ context.Context) (*core.RateBudgetSnapshot, error) {
	return f.budget, nil
}

func newTestServer(t *testing.T, db handlers.MetricsStore) *Server {
	t.Helper()

	handlers.SetStore(db)
	t.Cleanup(func() { handlers.SetStore(nil) })
	handlers.ResetHTTPErrorResponder()

	return New("localhost", 0)
}

func TestListFightsEndpoint(t *testing.T) {
	db := &fakeStore{
		fights: map[string][]store.StoredFight{
			"ABC123": {
				{ReportCode: "ABC123", Fight: core.Fight{ID: 1, EncounterName: "Ragnaros", EndTime: 180000, Kill: true}},
			},
		},
	}
	srv := newTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/ABC123/fights", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ReportCode string              `json:"report_code"`
		Fights     []store.StoredFight `json:"fights"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ABC123", body.ReportCode)
	require.Len(t, body.Fights, 1)
	require.Equal(t, "Ragnaros", body.Fights[0].Fight.EncounterName)
}

func TestListFightsNotIngested(t *testing.T) {
	srv := newTestServer(t, &fakeStore{fights: map[string][]store.StoredFight{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/NOPE/fights", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFightMetricsEndpoint(t *testing.T) {
	db := &fakeStore{
		metrics: map[string]map[int]*core.FightMetrics{
			"ABC123": {
				3: {
					ReportCode: "ABC123",
					Fight:      core.Fight{ID: 3, EncounterName: "Onyxia"},
					CastActivity: []core.CastActivity{
						{SourceID: 7, TotalCasts: 40, GCDUptimePct: 50.0},
					},
				},
			},
		},
	}
	srv := newTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/ABC123/fights/3/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var fm core.FightMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fm))
	require.Equal(t, 3, fm.Fight.ID)
	require.Len(t, fm.CastActivity, 1)
	require.Equal(t, 50.0, fm.CastActivity[0].GCDUptimePct)
}

func TestFightMetricsBadFightID(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/ABC123/fights/abc/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateBudgetEndpoint(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &fakeStore{
		budget: &core.RateBudgetSnapshot{PointsSpent: 120, LimitPerHour: 3600, PointsResetIn: 600, UpdatedAt: updated},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ratelimit", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap core.RateBudgetSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, 120.0, snap.PointsSpent)
	require.Equal(t, int64(600), snap.PointsResetIn)
}

func TestUnknownRouteReturnsStructured404(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthEndpoint(t *testing.T) {
	handlers.InitHealthManager("test")
	srv := newTestServer(t, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "healthy")
}
