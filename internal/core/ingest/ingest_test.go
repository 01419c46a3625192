package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raidlens/raidlens/internal/core"
	"github.com/raidlens/raidlens/internal/core/client"
)

type fakeWriter struct {
	mu       sync.Mutex
	replaced []*core.FightMetrics
	runs     []core.IngestRun
	budgets  []core.RateBudgetSnapshot
}

func (f *fakeWriter) ReplaceFightMetrics(_ context.Context, fm *core.FightMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, fm)
	return nil
}

func (f *fakeWriter) RecordIngestRun(_ context.Context, run core.IngestRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeWriter) SaveRateBudget(_ context.Context, snap core.RateBudgetSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgets = append(f.budgets, snap)
	return nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// newReportServer serves one report: a fixed fight list plus per-data-type
// event streams, each in a single page.
func newReportServer(t *testing.T, fights []core.Fight, streams map[string][]core.Event) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var data any
		if strings.Contains(req.Query, "fights") {
			data = map[string]any{
				"reportData": map[string]any{
					"report": map[string]any{"fights": fights},
				},
			}
		} else {
			dataType, _ := req.Variables["dataType"].(string)
			data = map[string]any{
				"reportData": map[string]any{
					"report": map[string]any{
						"events": core.EventPage{Events: streams[dataType]},
					},
				},
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": data,
			"extensions": map[string]any{
				"rateLimitData": map[string]any{
					"pointsSpentThisHour": 25.0,
					"limitPerHour":        3600.0,
					"pointsResetIn":       1800,
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newRunner(t *testing.T, srv *httptest.Server, store MetricsWriter) *Runner {
	t.Helper()

	noSleep := func(context.Context, time.Duration) error { return nil }
	c := &client.Client{
		Endpoint: srv.URL + "/graphql",
		Tokens: &client.TokenProvider{
			TokenURL:     srv.URL + "/oauth/token",
			ClientID:     "id",
			ClientSecret: "secret",
			Sleep:        noSleep,
		},
		Budget: &client.RateBudget{Sleep: noSleep},
		Retry:  client.DefaultRetryPolicy(),
		Sleep:  noSleep,
	}
	return &Runner{Client: c, Store: store}
}

func castEv(ts int64, source, ability int) core.Event {
	return core.Event{Timestamp: ts, Type: core.EventCast, SourceID: source, AbilityID: ability}
}

func TestRunIngestsReport(t *testing.T) {
	fights := []core.Fight{
		{ID: 1, EncounterName: "Ragnaros", StartTime: 0, EndTime: 120000, Kill: true},
	}

	casts := []core.Event{
		castEv(0, 7, 23881),
		castEv(2000, 7, 23881),
		castEv(4000, 7, 12328),
		{Timestamp: 6000, Type: core.EventBeginCast, SourceID: 7, AbilityID: 25},
		castEv(8000, 9, 10207),
	}
	damage := []core.Event{
		{Timestamp: 1000, Type: core.EventDamage, SourceID: 7, Amount: 500},
		{Timestamp: 5000, Type: core.EventDamage, SourceID: 7, Amount: 700},
	}
	resources := []core.Event{
		{Timestamp: 0, Type: core.EventResource, SourceID: 7, ResourceType: 1, Amount: 40},
		{Timestamp: 60000, Type: core.EventResource, SourceID: 7, ResourceType: 1, Amount: 80},
	}
	buffs := []core.Event{
		{Timestamp: 0, Type: core.EventAura, TargetID: 7, AbilityID: 12970},
		{Timestamp: 90000, Type: core.EventAura, TargetID: 7, AbilityID: 12970},
	}

	srv := newReportServer(t, fights, map[string][]core.Event{
		dataTypeCasts:     casts,
		dataTypeDamage:    damage,
		dataTypeResources: resources,
		dataTypeBuffs:     buffs,
	})

	store := &fakeWriter{}
	runner := newRunner(t, srv, store)

	res, err := runner.Run(context.Background(), Options{
		ReportCode:  "ABC123",
		Class:       "warrior",
		Spec:        "warrior/fury",
		SourceID:    7,
		ToolVersion: "test",
	})
	require.NoError(t, err)
	require.Len(t, res.Fights, 1)

	fm := res.Fights[0]
	require.Equal(t, "ABC123", fm.ReportCode)
	require.Equal(t, 1, fm.Fight.ID)

	// Two casting players seen in the stream.
	require.Len(t, fm.CastActivity, 2)
	require.Equal(t, 7, fm.CastActivity[0].SourceID)
	require.Equal(t, 9, fm.CastActivity[1].SourceID)

	// Player 7's begincast at 6000 is a hardcast start, not a completed
	// cast; only the three cast events count.
	require.Equal(t, 3, fm.CastActivity[0].TotalCasts)
	require.Equal(t, 1, fm.CastActivity[1].TotalCasts)

	// Death Wish appears once for the focused warrior.
	var deathWish *core.CooldownUsage
	for i := range fm.CooldownUsage {
		if fm.CooldownUsage[i].AbilityID == 12328 {
			deathWish = &fm.CooldownUsage[i]
		}
	}
	require.NotNil(t, deathWish)
	require.Equal(t, 1, deathWish.TimesUsed)

	require.NotEmpty(t, fm.Resources)
	require.NotEmpty(t, fm.PhaseMetrics)

	require.NotNil(t, fm.Rotation)
	require.Equal(t, "warrior/fury", fm.Rotation.Spec)
	require.Equal(t, 3, fm.Rotation.RulesChecked)

	// Persistence: one fight bundle, one run record, one budget snapshot.
	require.Len(t, store.replaced, 1)
	require.Len(t, store.runs, 1)
	run := store.runs[0]
	require.Equal(t, "ABC123", run.ReportCode)
	require.Equal(t, 1, run.Fights)
	require.Equal(t, "test", run.ToolVersion)
	require.Positive(t, run.Requests)
	require.Positive(t, run.Pages)

	require.Len(t, store.budgets, 1)
	require.Equal(t, 25.0, store.budgets[0].PointsSpent)
}

func TestRunFiltersFights(t *testing.T) {
	fights := []core.Fight{
		{ID: 1, EncounterName: "Ragnaros", StartTime: 0, EndTime: 60000},
		{ID: 2, EncounterName: "Onyxia", StartTime: 70000, EndTime: 150000},
	}
	srv := newReportServer(t, fights, map[string][]core.Event{
		dataTypeCasts: {castEv(0, 7, 100)},
	})

	store := &fakeWriter{}
	runner := newRunner(t, srv, store)

	res, err := runner.Run(context.Background(), Options{
		ReportCode: "ABC123",
		FightIDs:   []int{2},
	})
	require.NoError(t, err)
	require.Len(t, res.Fights, 1)
	require.Equal(t, 2, res.Fights[0].Fight.ID)
}

func TestRunNoMatchingFights(t *testing.T) {
	srv := newReportServer(t, []core.Fight{{ID: 1, EndTime: 1000}}, nil)
	runner := newRunner(t, srv, nil)

	_, err := runner.Run(context.Background(), Options{ReportCode: "ABC123", FightIDs: []int{99}})
	require.Error(t, err)
}

func TestRunRequiresReportCode(t *testing.T) {
	srv := newReportServer(t, nil, nil)
	runner := newRunner(t, srv, nil)

	_, err := runner.Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestBuffUptimes(t *testing.T) {
	events := []core.Event{
		{Timestamp: 0, Type: core.EventAura, TargetID: 7, AbilityID: 100},
		{Timestamp: 30000, Type: core.EventAura, TargetID: 7, AbilityID: 100},
		// Second application never removed: counts to fight end.
		{Timestamp: 90000, Type: core.EventAura, TargetID: 7, AbilityID: 100},
		// Another player's aura is ignored.
		{Timestamp: 0, Type: core.EventAura, TargetID: 9, AbilityID: 100},
	}

	uptimes := buffUptimes(events, 7, 120000)
	require.InDelta(t, 50.0, uptimes[100], 0.001)
}

func TestMostActiveSource(t *testing.T) {
	casts := []core.Event{
		castEv(0, 7, 1),
		castEv(1, 7, 1),
		castEv(2, 9, 1),
	}
	require.Equal(t, 7, mostActiveSource(casts, []int{7, 9}))
}
