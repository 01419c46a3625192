package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/raidlens/raidlens/internal/core"
	"github.com/raidlens/raidlens/internal/core/store"
	apperrors "github.com/raidlens/raidlens/internal/errors"
)

// MetricsStore is the read-only slice of the store the API needs.
type MetricsStore interface {
	ListFights(ctx context.Context, reportCode string) ([]store.StoredFight, error)
	LoadFightMetrics(ctx context.Context, reportCode string, fightID int) (*core.FightMetrics, error)
	ListIngestRuns(ctx context.Context, reportCode string) ([]core.IngestRun, error)
	LoadRateBudget(ctx context.Context) (*core.RateBudgetSnapshot, error)
}

var (
	metricsStore   MetricsStore
	metricsStoreMu sync.RWMutex
)

// SetStore injects the store used by the report handlers.
func SetStore(s MetricsStore) {
	metricsStoreMu.Lock()
	defer metricsStoreMu.Unlock()
	metricsStore = s
}

func getStore() MetricsStore {
	metricsStoreMu.RLock()
	defer metricsStoreMu.RUnlock()
	return metricsStore
}

// ListFightsHandler returns the stored fights for one report.
func ListFightsHandler(w http.ResponseWriter, r *http.Request) {
	db := getStore()
	if db == nil {
		respondWithError(w, r, apperrors.NewInternalError("store not configured"))
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("report code is required"))
		return
	}

	fights, err := db.ListFights(r.Context(), code)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list fights"))
		return
	}
	if len(fights) == 0 {
		respondWithError(w, r, apperrors.NewNotFoundError("no fights ingested for report"))
		return
	}

	writeJSON(w, map[string]any{
		"report_code": code,
		"fights":      fights,
	})
}

// FightMetricsHandler returns the full derived-metrics bundle for a fight.
func FightMetricsHandler(w http.ResponseWriter, r *http.Request) {
	db := getStore()
	if db == nil {
		respondWithError(w, r, apperrors.NewInternalError("store not configured"))
		return
	}

	code := chi.URLParam(r, "code")
	fightID, err := strconv.Atoi(chi.URLParam(r, "fightID"))
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("fight id must be an integer"))
		return
	}

	fm, err := db.LoadFightMetrics(r.Context(), code, fightID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load fight metrics"))
		return
	}
	if fm == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("fight not ingested"))
		return
	}

	writeJSON(w, fm)
}

// IngestRunsHandler returns ingestion provenance for one report.
func IngestRunsHandler(w http.ResponseWriter, r *http.Request) {
	db := getStore()
	if db == nil {
		respondWithError(w, r, apperrors.NewInternalError("store not configured"))
		return
	}

	code := chi.URLParam(r, "code")
	runs, err := db.ListIngestRuns(r.Context(), code)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list ingest runs"))
		return
	}

	writeJSON(w, map[string]any{
		"report_code": code,
		"runs":        runs,
	})
}

// RateBudgetHandler returns the last persisted rate-budget snapshot.
func RateBudgetHandler(w http.ResponseWriter, r *http.Request) {
	db := getStore()
	if db == nil {
		respondWithError(w, r, apperrors.NewInternalError("store not configured"))
		return
	}

	snap, err := db.LoadRateBudget(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load rate budget"))
		return
	}
	if snap == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("no rate budget recorded yet"))
		return
	}

	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
