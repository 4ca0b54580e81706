package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/database"
	"github.com/rentscope/backend/pkg/logger"
	"github.com/rentscope/backend/pkg/redis"
)

// StatusHandler reports source freshness and recompute history
type StatusHandler struct {
	db         *database.DB
	scores     contracts.ScoreRepository
	batches    contracts.BatchRepository
	cache      *redis.Cache
	fiscalYear int
	logger     *logger.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(
	db *database.DB,
	scores contracts.ScoreRepository,
	batches contracts.BatchRepository,
	cache *redis.Cache,
	fiscalYear int,
	log *logger.Logger,
) *StatusHandler {
	return &StatusHandler{
		db:         db,
		scores:     scores,
		batches:    batches,
		cache:      cache,
		fiscalYear: fiscalYear,
		logger:     log,
	}
}

// SourceFreshness is the newest observation in each source table
type SourceFreshness struct {
	HomeValueMonth *string `json:"home_value_month"`
	TaxVintage     *int    `json:"tax_vintage"`
	DemandMonth    *string `json:"demand_month"`
}

// GetStatus returns database health, source freshness and the version
// the scores currently sit at
// GET /api/status?fiscal_year=2026
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fiscalYear := h.fiscalYear
	if yearStr := r.URL.Query().Get("fiscal_year"); yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil {
			fiscalYear = y
		}
	}

	health, err := h.db.HealthCheck(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success":  false,
			"database": health,
		})
		return
	}

	freshness, err := h.sourceFreshness(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read source freshness")
		respondError(w, http.StatusInternalServerError, "Failed to read source freshness")
		return
	}

	version, err := h.scores.GetLatestVersion(ctx, fiscalYear)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest score version")
		respondError(w, http.StatusInternalServerError, "Failed to read score version")
		return
	}

	batches, err := h.batches.ListRecent(ctx, 5)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list recent batches")
		respondError(w, http.StatusInternalServerError, "Failed to read batch history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"database":       health,
			"fiscal_year":    fiscalYear,
			"sources":        freshness,
			"score_version":  version,
			"recent_batches": batches,
		},
	})
}

// sourceFreshness reads the newest observation per source table. A
// version selected for scoring lags these while a recompute is due.
func (h *StatusHandler) sourceFreshness(ctx context.Context) (*SourceFreshness, error) {
	freshness := &SourceFreshness{}

	// MAX over an empty table yields a NULL row, never zero rows.
	var homeValueMonth *time.Time
	if err := h.db.Pool.QueryRow(ctx, `SELECT MAX(month) FROM data.home_values`).Scan(&homeValueMonth); err != nil {
		return nil, err
	}
	if homeValueMonth != nil {
		formatted := homeValueMonth.Format("2006-01")
		freshness.HomeValueMonth = &formatted
	}

	if err := h.db.Pool.QueryRow(ctx, `SELECT MAX(vintage) FROM data.tax_rates`).Scan(&freshness.TaxVintage); err != nil {
		return nil, err
	}

	var demandMonth *time.Time
	if err := h.db.Pool.QueryRow(ctx, `SELECT MAX(month) FROM data.demand_index`).Scan(&demandMonth); err != nil {
		return nil, err
	}
	if demandMonth != nil {
		formatted := demandMonth.Format("2006-01")
		freshness.DemandMonth = &formatted
	}

	return freshness, nil
}

// ListBatches returns recent scoring runs, newest first
// GET /api/batches?limit=20
func (h *StatusHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	batches, err := h.batches.ListRecent(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list batches")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve batches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"count":   len(batches),
			"batches": batches,
		},
	})
}

// GetBatch returns one scoring run by its ID
// GET /api/batches/{id}
func (h *StatusHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid batch id")
		return
	}

	cacheKey := redis.BatchStatusKey(id.String())
	var cached contracts.ScoreBatch
	if found, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    &cached,
		})
		return
	}

	batch, err := h.batches.GetByID(ctx, id)
	if err != nil {
		h.logger.WithError(err).WithField("batch_id", id).Error("Failed to get batch")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve batch")
		return
	}
	if batch == nil {
		respondError(w, http.StatusNotFound, "Batch not found")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, batch, redis.TTLShort); err != nil {
		h.logger.WithError(err).Warn("Failed to cache batch status")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    batch,
	})
}
