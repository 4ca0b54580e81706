package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/internal/scoreconfig"
	"github.com/rentscope/backend/internal/scoring"
	"github.com/rentscope/backend/pkg/logger"
	"github.com/rentscope/backend/pkg/redis"
)

// ScoreHandler handles investment-score API endpoints
type ScoreHandler struct {
	scores     contracts.ScoreRepository
	yields     contracts.YieldRepository
	engine     contracts.ScoreEngine
	cache      *redis.Cache
	scoring    *scoreconfig.Config
	fiscalYear int
	logger     *logger.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(
	scores contracts.ScoreRepository,
	yields contracts.YieldRepository,
	engine contracts.ScoreEngine,
	cache *redis.Cache,
	scoring *scoreconfig.Config,
	fiscalYear int,
	log *logger.Logger,
) *ScoreHandler {
	return &ScoreHandler{
		scores:     scores,
		yields:     yields,
		engine:     engine,
		cache:      cache,
		scoring:    scoring,
		fiscalYear: fiscalYear,
		logger:     log,
	}
}

// GetByZIP returns score records for a ZIP at the newest persisted
// version. With ?bedrooms=N it returns the single matching record.
// GET /api/scores/{zip}?fiscal_year=2026&bedrooms=3
func (h *ScoreHandler) GetByZIP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	zip := vars["zip"]

	if zip == "" {
		respondError(w, http.StatusBadRequest, "zip is required")
		return
	}

	fiscalYear := h.fiscalYear
	if yearStr := r.URL.Query().Get("fiscal_year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid fiscal_year")
			return
		}
		fiscalYear = y
	}

	version, err := h.scores.GetLatestVersion(ctx, fiscalYear)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest score version")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve scores")
		return
	}
	if version == nil {
		respondError(w, http.StatusNotFound, "No scores computed for this fiscal year")
		return
	}

	if bedroomsStr := r.URL.Query().Get("bedrooms"); bedroomsStr != "" {
		bedrooms, err := strconv.Atoi(bedroomsStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid bedrooms")
			return
		}
		h.getSingle(w, r, zip, bedrooms, fiscalYear, *version)
		return
	}

	records, err := h.scores.ListByZIP(ctx, zip, fiscalYear)
	if err != nil {
		h.logger.WithError(err).WithField("zip", zip).Error("Failed to list scores")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve scores")
		return
	}

	// Older versions survive recomputes; only the newest is served.
	current := make([]*contracts.InvestmentScoreRecord, 0, len(records))
	for _, rec := range records {
		if rec.Version.Equal(*version) {
			current = append(current, rec)
		}
	}

	if len(current) == 0 {
		respondError(w, http.StatusNotFound, "No scores for this zip")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"zip":         zip,
			"fiscal_year": fiscalYear,
			"version":     version.Key(),
			"records":     current,
		},
	})
}

func (h *ScoreHandler) getSingle(w http.ResponseWriter, r *http.Request, zip string, bedrooms, fiscalYear int, version contracts.DataVersion) {
	ctx := r.Context()
	cacheKey := redis.ScoreKey(zip, bedrooms, fiscalYear)

	var cached contracts.InvestmentScoreRecord
	if found, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    &cached,
		})
		return
	}

	record, err := h.scores.GetByKey(ctx, zip, bedrooms, version)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"zip":      zip,
			"bedrooms": bedrooms,
		}).Error("Failed to get score")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve score")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "No score for this zip and bedroom count")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, record, redis.TTLMedium); err != nil {
		h.logger.WithError(err).Warn("Failed to cache score")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    record,
	})
}

// RecomputeRequest triggers a scoring batch for one state
type RecomputeRequest struct {
	State      string `json:"state"`
	FiscalYear int    `json:"fiscal_year"`
	Bedrooms   []int  `json:"bedrooms"`
}

// Recompute runs a scoring batch synchronously and returns its summary
// POST /api/scores/recompute
func (h *ScoreHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state := strings.ToUpper(strings.TrimSpace(req.State))
	if state == "" {
		respondError(w, http.StatusBadRequest, "state is required")
		return
	}

	fiscalYear := req.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = h.fiscalYear
	}

	medianYield, err := h.yields.GetMedianYield(ctx, fiscalYear)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get median yield")
		respondError(w, http.StatusInternalServerError, "Failed to resolve median yield")
		return
	}
	if medianYield == nil {
		respondError(w, http.StatusConflict, "No median yield loaded for this fiscal year")
		return
	}

	taxFallback := h.scoring.Scoring.DefaultTaxRate

	h.logger.WithFields(map[string]interface{}{
		"state":       state,
		"fiscal_year": fiscalYear,
	}).Info("Recompute triggered")

	result, err := h.engine.ScoreBatch(ctx, contracts.BatchRequest{
		State:       state,
		FiscalYear:  fiscalYear,
		Bedrooms:    req.Bedrooms,
		MedianYield: *medianYield,
		TaxFallback: &taxFallback,
	})
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scoring.ErrNoEligibleZIPs):
			respondError(w, http.StatusConflict, "No zips with usable source data in this state")
		default:
			h.logger.WithError(err).WithField("state", state).Error("Recompute failed")
			respondError(w, http.StatusInternalServerError, "Recompute failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"batch_id":     result.BatchID,
			"version":      result.Version.Key(),
			"zip_count":    result.ZIPCount,
			"scored":       result.Scored,
			"insufficient": result.Insufficient,
			"failed":       result.Failed,
		},
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
